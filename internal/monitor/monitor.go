// Package monitor implements the change monitor: it owns a snapshot of
// last-known statuses, recomputes them on ticks or explicit checks, diffs
// against the snapshot, and hands qualifying transitions to the
// notification dispatcher.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/freshness"
	"git.home.luguber.info/inful/larder/internal/ingredient"
	"git.home.luguber.info/inful/larder/internal/logfields"
	"git.home.luguber.info/inful/larder/internal/metrics"
)

// DefaultInterval is the periodic recomputation cadence.
const DefaultInterval = 5 * time.Minute

// ItemSource supplies the current ingredient collection; the persistence
// store implements it.
type ItemSource interface {
	List(ctx context.Context) ([]*ingredient.Ingredient, error)
}

// Dispatcher receives qualifying status-change events. Delivery is
// best-effort: a dispatcher failure never rolls back a snapshot update.
type Dispatcher interface {
	Dispatch(ctx context.Context, event StatusChangeEvent) error
}

// TickScheduler is the cancellable timer abstraction driving periodic
// checks. Production wiring uses the gocron-backed daemon scheduler; tests
// drive ticks by calling CheckNow directly.
type TickScheduler interface {
	ScheduleEvery(name string, every time.Duration, task func()) (string, error)
	Cancel(id string) error
}

// Config tunes the monitor.
type Config struct {
	// Interval between scheduled recomputations; non-positive selects
	// DefaultInterval.
	Interval time.Duration

	// Alerts gates which transition classes are dispatched.
	Alerts AlertClasses

	// Profile supplies per-category near-expiry thresholds; nil selects
	// the engine defaults.
	Profile freshness.CategoryProfile

	// Now is the clock; nil selects time.Now. Tests inject fixed clocks.
	Now func() time.Time
}

// Monitor diffs recomputed statuses against its owned snapshot.
//
// The snapshot map is exclusively owned and mutated by the monitor; callers
// only observe state through returned events. Items in the used state are
// out of band: they leave monitoring when marked and re-enter with a
// cleanly computed status when un-marked.
type Monitor struct {
	source     ItemSource
	dispatcher Dispatcher
	scheduler  TickScheduler
	recorder   metrics.Recorder
	cfg        Config

	mu         sync.Mutex
	snapshot   map[string]ingredient.Status
	running    bool
	generation uint64
	jobID      string
}

// New constructs a monitor. source is required; dispatcher, scheduler and
// recorder may be nil (events are then only returned, never dispatched).
func New(source ItemSource, dispatcher Dispatcher, scheduler TickScheduler, recorder metrics.Recorder, cfg Config) (*Monitor, error) {
	if source == nil {
		return nil, ferrors.ValidationError("item source is required").Build()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Profile == nil {
		cfg.Profile = freshness.DefaultProfile{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Monitor{
		source:     source,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		recorder:   recorder,
		cfg:        cfg,
	}, nil
}

// Start baselines the snapshot from the current collection and begins
// periodic recomputation. Any prior snapshot is discarded: restarting
// always re-baselines rather than resuming.
func (m *Monitor) Start(ctx context.Context) error {
	items, err := m.source.List(ctx)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryMonitor, "baseline listing failed").Build()
	}

	m.mu.Lock()
	m.generation++
	m.running = true
	m.snapshot = make(map[string]ingredient.Status, len(items))
	now := m.cfg.Now()
	for _, item := range items {
		if item == nil || item.Status == ingredient.StatusUsed {
			continue
		}
		m.snapshot[item.ID] = m.computeStatus(item, now)
	}
	tracked := len(m.snapshot)
	m.mu.Unlock()

	m.recorder.SetTrackedItems(tracked)

	if m.scheduler != nil {
		jobID, err := m.scheduler.ScheduleEvery("change-monitor", m.cfg.Interval, m.tick)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryMonitor, "schedule periodic check").Build()
		}
		m.mu.Lock()
		m.jobID = jobID
		m.mu.Unlock()
	}

	slog.Info("Change monitor started",
		logfields.Count(tracked),
		slog.Duration("interval", m.cfg.Interval))
	return nil
}

// Stop halts monitoring and clears the timer. Bumping the generation
// guarantees no notification fires after Stop returns, including from a
// tick that had already listed items.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.generation++
	m.snapshot = nil
	jobID := m.jobID
	m.jobID = ""
	m.mu.Unlock()

	m.recorder.SetTrackedItems(0)

	if m.scheduler != nil && jobID != "" {
		if err := m.scheduler.Cancel(jobID); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryMonitor, "cancel periodic check").Build()
		}
	}

	slog.Info("Change monitor stopped")
	return nil
}

// CheckNow recomputes every tracked item's status, updates the snapshot,
// dispatches qualifying transitions, and returns all observed transitions.
func (m *Monitor) CheckNow(ctx context.Context) ([]StatusChangeEvent, error) {
	return m.check(ctx, "manual")
}

// UpdateTracked syncs the tracked set with the given collection: new
// non-used items are baselined immediately and removed ids dropped, so the
// snapshot never holds stale ids. No events are produced.
func (m *Monitor) UpdateTracked(items []*ingredient.Ingredient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	now := m.cfg.Now()
	next := make(map[string]ingredient.Status, len(items))
	for _, item := range items {
		if item == nil || item.Status == ingredient.StatusUsed {
			continue
		}
		if prev, ok := m.snapshot[item.ID]; ok {
			next[item.ID] = prev
		} else {
			next[item.ID] = m.computeStatus(item, now)
		}
	}
	m.snapshot = next
	m.recorder.SetTrackedItems(len(next))
}

// Tracked returns the number of items currently in the snapshot.
func (m *Monitor) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshot)
}

// tick is the scheduled entry point.
func (m *Monitor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := m.check(ctx, "schedule"); err != nil {
		slog.Error("Scheduled check failed", logfields.Error(err))
	}
}

func (m *Monitor) check(ctx context.Context, trigger string) ([]StatusChangeEvent, error) {
	start := time.Now()
	m.recorder.IncCheck(trigger)

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil, ferrors.MonitorError("monitor is not running").Build()
	}
	gen := m.generation
	m.mu.Unlock()

	items, err := m.source.List(ctx)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryMonitor, "list items for check").Build()
	}

	events := m.diff(items, gen)
	m.dispatch(ctx, events, gen)

	m.recorder.ObserveCheckDuration(time.Since(start))
	return events, nil
}

// diff recomputes statuses, updates the snapshot, and returns the observed
// transitions. A generation mismatch means Stop (or a restart) won the
// race; the stale result is discarded.
func (m *Monitor) diff(items []*ingredient.Ingredient, gen uint64) []StatusChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.generation != gen {
		return nil
	}

	now := m.cfg.Now()
	var events []StatusChangeEvent
	next := make(map[string]ingredient.Status, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}
		// Used items leave monitoring silently; they re-enter with a
		// clean computed status once un-marked.
		if item.Status == ingredient.StatusUsed {
			continue
		}

		newStatus := m.computeStatus(item, now)
		next[item.ID] = newStatus

		oldStatus, tracked := m.snapshot[item.ID]
		if !tracked {
			continue
		}
		changeType := Classify(oldStatus, newStatus)
		if changeType == "" {
			continue
		}

		m.recorder.IncTransition(changeType.String())
		events = append(events, StatusChangeEvent{
			ItemID:     item.ID,
			ItemName:   item.Name,
			OldStatus:  oldStatus,
			NewStatus:  newStatus,
			ChangeType: changeType,
			OccurredAt: now,
		})
	}

	m.snapshot = next
	m.recorder.SetTrackedItems(len(next))
	return events
}

// dispatch forwards alertable events, re-checking the generation before
// each delivery so nothing fires after Stop. Dispatcher failures are
// logged and counted but never propagated: notification delivery is
// decoupled from lifecycle-state correctness.
func (m *Monitor) dispatch(ctx context.Context, events []StatusChangeEvent, gen uint64) {
	if m.dispatcher == nil {
		return
	}
	for _, evt := range events {
		if !m.cfg.Alerts.enabled(evt.ChangeType) {
			m.recorder.IncNotification("suppressed")
			continue
		}

		m.mu.Lock()
		stale := !m.running || m.generation != gen
		m.mu.Unlock()
		if stale {
			return
		}

		if err := m.dispatcher.Dispatch(ctx, evt); err != nil {
			m.recorder.IncNotification("failed")
			slog.Warn("Notification dispatch failed",
				logfields.ItemID(evt.ItemID),
				logfields.ChangeType(evt.ChangeType.String()),
				logfields.Error(err))
			continue
		}
		m.recorder.IncNotification("dispatched")
		slog.Debug("Status change dispatched",
			logfields.ItemID(evt.ItemID),
			logfields.OldStatus(evt.OldStatus.String()),
			logfields.NewStatus(evt.NewStatus.String()))
	}
}

func (m *Monitor) computeStatus(item *ingredient.Ingredient, now time.Time) ingredient.Status {
	threshold := m.cfg.Profile.NearExpiryThresholdDays(item.Category)
	return freshness.ComputeStatus(item.ExpirationDate, now, threshold)
}
