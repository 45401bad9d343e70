package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/larder/internal/calendar"
	"git.home.luguber.info/inful/larder/internal/events"
	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/ingredient"
	"git.home.luguber.info/inful/larder/internal/logfields"
	"git.home.luguber.info/inful/larder/internal/metrics"
	"git.home.luguber.info/inful/larder/internal/monitor"
	"git.home.luguber.info/inful/larder/internal/stats"
	"git.home.luguber.info/inful/larder/internal/store"
)

// TrackedUpdater is the slice of the change monitor the service needs:
// after a mutation it hands over the fresh collection so the tracked set
// never holds stale ids.
type TrackedUpdater interface {
	UpdateTracked(items []*ingredient.Ingredient)
}

// Service is the inventory facade the daemon and CLI operate through. It
// wraps the persistence store, publishes orchestration events after every
// mutation, and serves statistics from a debounce-refreshed cache.
type Service struct {
	store      store.Store
	bus        *events.Bus
	aggregator *stats.Aggregator
	recorder   metrics.Recorder
	now        func() time.Time

	trackedMu sync.RWMutex
	tracked   TrackedUpdater

	cacheMu sync.RWMutex
	cache   map[calendar.Timeframe]stats.Summary
}

type ServiceConfig struct {
	Store      store.Store
	Bus        *events.Bus
	Aggregator *stats.Aggregator
	Recorder   metrics.Recorder
	Now        func() time.Time
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, ferrors.ValidationError("store is required").Build()
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = stats.New(nil)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:      cfg.Store,
		bus:        cfg.Bus,
		aggregator: cfg.Aggregator,
		recorder:   cfg.Recorder,
		now:        cfg.Now,
		cache:      make(map[calendar.Timeframe]stats.Summary),
	}, nil
}

// SetTracked wires the change monitor in after both exist. May be nil.
func (s *Service) SetTracked(t TrackedUpdater) {
	s.trackedMu.Lock()
	s.tracked = t
	s.trackedMu.Unlock()
}

func (s *Service) Add(ctx context.Context, item *ingredient.Ingredient) (*ingredient.Ingredient, error) {
	added, err := s.store.Add(ctx, item)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, "add", added.ID, true)
	return added, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ingredient.Ingredient, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, item *ingredient.Ingredient) (*ingredient.Ingredient, error) {
	updated, err := s.store.Update(ctx, item)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, "update", updated.ID, false)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.afterMutation(ctx, "delete", id, true)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*ingredient.Ingredient, error) {
	return s.store.List(ctx)
}

// SetUsed toggles the sticky used override. Marking removes the item from
// monitoring; un-marking re-enters it with a freshly computed status.
func (s *Service) SetUsed(ctx context.Context, id string, used bool) (*ingredient.Ingredient, error) {
	item, err := s.store.SetUsed(ctx, id, used)
	if err != nil {
		return nil, err
	}
	reason := "mark_used"
	if !used {
		reason = "unmark_used"
	}
	s.afterMutation(ctx, reason, id, true)
	return item, nil
}

// CheckStored recomputes every non-used item's status against the stored
// one, persists the result, and returns the transitions. This is the
// one-shot counterpart of the monitor's periodic check: it surfaces what
// changed while no daemon was watching.
func (s *Service) CheckStored(ctx context.Context) ([]monitor.StatusChangeEvent, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var changes []monitor.StatusChangeEvent
	for _, item := range items {
		if item == nil || item.Status == ingredient.StatusUsed {
			continue
		}
		oldStatus := item.Status

		// Update re-derives status and score before persisting.
		updated, err := s.store.Update(ctx, item)
		if err != nil {
			return nil, err
		}

		changeType := monitor.Classify(oldStatus, updated.Status)
		if changeType == "" {
			continue
		}
		changes = append(changes, monitor.StatusChangeEvent{
			ItemID:     updated.ID,
			ItemName:   updated.Name,
			OldStatus:  oldStatus,
			NewStatus:  updated.Status,
			ChangeType: changeType,
			OccurredAt: now,
		})
	}
	return changes, nil
}

// Sweep deletes used items whose last update predates the start of the
// current week. trigger is "schedule" or "manual".
func (s *Service) Sweep(ctx context.Context, trigger string) (int, error) {
	cutoff := calendar.WeekStart(s.now())
	deleted, err := s.store.SweepUsed(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.recorder.AddSweepDeleted(deleted)
	slog.Info("Cleanup sweep completed",
		logfields.Count(deleted),
		slog.String("trigger", trigger),
		slog.Time("cutoff", cutoff))

	if deleted > 0 {
		s.afterMutation(ctx, "sweep", "", true)
	}
	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.SweepCompleted{
			Deleted:   deleted,
			SweptAt:   s.now(),
			Triggered: trigger,
		})
	}
	return deleted, nil
}

// Stats returns the summary for the timeframe, preferring the refreshed
// cache and falling back to a direct computation on a cold cache.
func (s *Service) Stats(ctx context.Context, tf calendar.Timeframe) (stats.Summary, error) {
	s.cacheMu.RLock()
	cached, ok := s.cache[tf]
	s.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}
	return s.computeStats(ctx, tf)
}

// Trend returns the recent per-window score series. Always computed
// directly; trends are an on-demand view.
func (s *Service) Trend(ctx context.Context, tf calendar.Timeframe) ([]stats.TrendPoint, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Trend(items, tf, s.now()), nil
}

// RefreshStats recomputes and caches summaries for every timeframe. The
// daemon invokes it on each RefreshNow event.
func (s *Service) RefreshStats(ctx context.Context) error {
	items, err := s.store.List(ctx)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStore, "list items for stats refresh").Build()
	}

	now := s.now()
	fresh := make(map[calendar.Timeframe]stats.Summary)
	for _, tf := range []calendar.Timeframe{
		calendar.TimeframeAll,
		calendar.TimeframeWeek,
		calendar.TimeframeMonth,
		calendar.TimeframeQuarter,
		calendar.TimeframeYear,
	} {
		summary := s.aggregator.Aggregate(items, tf, now)
		fresh[tf] = summary
		s.recorder.SetFreshnessScore(tf.String(), summary.FreshnessScore)
	}

	s.cacheMu.Lock()
	s.cache = fresh
	s.cacheMu.Unlock()

	slog.Debug("Statistics refreshed", logfields.Count(len(items)))
	return nil
}

func (s *Service) computeStats(ctx context.Context, tf calendar.Timeframe) (stats.Summary, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return stats.Summary{}, err
	}
	summary := s.aggregator.Aggregate(items, tf, s.now())

	s.cacheMu.Lock()
	s.cache[tf] = summary
	s.cacheMu.Unlock()
	return summary, nil
}

// afterMutation publishes a refresh request and, for collection-shape
// changes, syncs the monitor's tracked set. Event delivery is best-effort:
// the mutation already committed.
func (s *Service) afterMutation(ctx context.Context, reason, itemID string, shapeChanged bool) {
	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.RefreshRequested{
			Reason:      reason,
			ItemID:      itemID,
			RequestedAt: s.now(),
		})
		if shapeChanged {
			_ = s.bus.Publish(ctx, events.CollectionChanged{
				Reason:    reason,
				ItemID:    itemID,
				ChangedAt: s.now(),
			})
		}
	}

	s.trackedMu.RLock()
	tracked := s.tracked
	s.trackedMu.RUnlock()
	if tracked == nil {
		return
	}
	items, err := s.store.List(ctx)
	if err != nil {
		slog.Warn("Tracked-set sync listing failed", logfields.Error(err))
		return
	}
	tracked.UpdateTracked(items)
}
