package daemon

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/larder/internal/events"
	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
)

type RefreshDebouncerConfig struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration
}

// RefreshDebouncer coalesces bursts of RefreshRequested events into a
// single RefreshNow.
//
// Every store mutation publishes a refresh request; a bulk import would
// otherwise recompute statistics once per item. The debouncer waits for a
// quiet window after the last request, but never postpones past MaxDelay
// from the first request of the burst.
//
// It is safe to run as a single goroutine.
type RefreshDebouncer struct {
	bus *events.Bus
	cfg RefreshDebouncerConfig

	mu        sync.Mutex
	readyOnce sync.Once
	ready     chan struct{}

	pending        bool
	firstRequestAt time.Time
	lastRequestAt  time.Time
	lastReason     string
	lastItemID     string
	requestCount   int
}

func NewRefreshDebouncer(bus *events.Bus, cfg RefreshDebouncerConfig) (*RefreshDebouncer, error) {
	if bus == nil {
		return nil, ferrors.ValidationError("bus is required").Build()
	}
	if cfg.QuietWindow <= 0 {
		return nil, ferrors.ValidationError("quiet window must be > 0").Build()
	}
	if cfg.MaxDelay <= 0 {
		return nil, ferrors.ValidationError("max delay must be > 0").Build()
	}

	return &RefreshDebouncer{bus: bus, cfg: cfg, ready: make(chan struct{})}, nil
}

// Ready is closed once Run has subscribed to events. Intended for tests
// and deterministic startup sequencing.
func (d *RefreshDebouncer) Ready() <-chan struct{} {
	return d.ready
}

func (d *RefreshDebouncer) Run(ctx context.Context) error {
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}

	reqCh, unsubscribe := events.Subscribe[events.RefreshRequested](d.bus, 64)
	defer unsubscribe()

	d.readyOnce.Do(func() { close(d.ready) })

	quietTimer := time.NewTimer(time.Hour)
	if !quietTimer.Stop() {
		select {
		case <-quietTimer.C:
		default:
		}
	}
	maxTimer := time.NewTimer(time.Hour)
	if !maxTimer.Stop() {
		select {
		case <-maxTimer.C:
		default:
		}
	}

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
	)

	resetTimer := func(t *time.Timer, after time.Duration) {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(after)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-reqCh:
			if !ok {
				return nil
			}
			d.onRequest(req)

			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C

			if d.isFirstOfBurst() {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			d.emit(ctx, "quiet")
			quietC = nil
			maxC = nil

		case <-maxC:
			d.emit(ctx, "max_delay")
			quietC = nil
			maxC = nil
		}
	}
}

func (d *RefreshDebouncer) onRequest(req events.RefreshRequested) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := req.RequestedAt
	if now.IsZero() {
		now = time.Now()
	}

	if !d.pending {
		d.pending = true
		d.firstRequestAt = now
		d.requestCount = 0
	}

	d.lastRequestAt = now
	d.lastReason = req.Reason
	d.lastItemID = req.ItemID
	d.requestCount++
}

func (d *RefreshDebouncer) isFirstOfBurst() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending && d.requestCount == 1
}

func (d *RefreshDebouncer) emit(ctx context.Context, cause string) {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	evt := events.RefreshNow{
		TriggeredAt:   time.Now(),
		RequestCount:  d.requestCount,
		LastReason:    d.lastReason,
		LastItemID:    d.lastItemID,
		FirstRequest:  d.firstRequestAt,
		LastRequest:   d.lastRequestAt,
		DebounceCause: cause,
	}
	d.pending = false
	d.mu.Unlock()

	_ = d.bus.Publish(ctx, evt)
}
