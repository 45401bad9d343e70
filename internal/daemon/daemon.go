// Package daemon wires the larder engine into a long-running service: the
// persistence store, change monitor, statistics refresh debouncing, the
// cleanup sweep schedule, notification dispatch, and the admin HTTP
// surface.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/larder/internal/config"
	"git.home.luguber.info/inful/larder/internal/events"
	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/logfields"
	"git.home.luguber.info/inful/larder/internal/metrics"
	"git.home.luguber.info/inful/larder/internal/monitor"
	"git.home.luguber.info/inful/larder/internal/notify"
	"git.home.luguber.info/inful/larder/internal/retry"
	"git.home.luguber.info/inful/larder/internal/stats"
	"git.home.luguber.info/inful/larder/internal/store"
)

// Daemon is the larder service: it owns every long-lived component and
// sequences their startup and shutdown.
type Daemon struct {
	cfg      *config.Config
	profile  *HotProfile
	registry *prom.Registry
	recorder metrics.Recorder

	store      store.Store
	bus        *events.Bus
	service    *Service
	monitor    *monitor.Monitor
	scheduler  *Scheduler
	debouncer  *RefreshDebouncer
	dispatcher monitor.Dispatcher
	natsClose  func() error
	httpServer *HTTPServer
	watcher    *SettingsWatcher

	mu        sync.Mutex
	running   bool
	startTime time.Time
	cancel    context.CancelFunc
	loopDone  chan struct{}
}

// Status is the daemon state reported on /api/status.
type Status struct {
	Running      bool      `json:"running"`
	StartedAt    time.Time `json:"started_at"`
	TrackedItems int       `json:"tracked_items"`
	StorePath    string    `json:"store_path"`
	NATSEnabled  bool      `json:"nats_enabled"`
}

// New assembles a daemon from configuration. Nothing starts until Start.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := prom.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	recorder := metrics.NewPrometheusRecorder(registry)

	profile := NewHotProfile(cfg.Settings)

	st, err := store.NewSQLiteStore(cfg.Store.Path, profile, nil)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()

	service, err := NewService(ServiceConfig{
		Store:      st,
		Bus:        bus,
		Aggregator: stats.New(profile),
		Recorder:   recorder,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	dispatchers := notify.Multi{notify.LogDispatcher{}}
	var natsClose func() error
	if cfg.NATS.Enabled {
		nd, err := notify.NewNATSDispatcher(cfg.NATS)
		if err != nil {
			st.Close()
			return nil, err
		}
		retrying, err := notify.NewRetrying(nd, retry.DefaultPolicy())
		if err != nil {
			nd.Close()
			st.Close()
			return nil, err
		}
		dispatchers = append(dispatchers, retrying)
		natsClose = nd.Close
	}

	scheduler, err := NewScheduler()
	if err != nil {
		st.Close()
		return nil, err
	}

	mon, err := monitor.New(st, dispatchers, scheduler, recorder, monitor.Config{
		Interval: cfg.Monitor.Interval.Std(),
		Alerts:   cfg.Monitor.Alerts,
		Profile:  profile,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	service.SetTracked(mon)

	debouncer, err := NewRefreshDebouncer(bus, RefreshDebouncerConfig{
		QuietWindow: cfg.Refresh.QuietWindow.Std(),
		MaxDelay:    cfg.Refresh.MaxDelay.Std(),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	d := &Daemon{
		cfg:        cfg,
		profile:    profile,
		registry:   registry,
		recorder:   recorder,
		store:      st,
		bus:        bus,
		service:    service,
		monitor:    mon,
		scheduler:  scheduler,
		debouncer:  debouncer,
		dispatcher: dispatchers,
		natsClose:  natsClose,
	}
	if cfg.HTTP.Enabled {
		d.httpServer = NewHTTPServer(cfg.HTTP.Addr, d)
	}
	return d, nil
}

// Service exposes the inventory facade, mainly for the CLI and tests.
func (d *Daemon) Service() *Service { return d.service }

// StartTime reports when the daemon was started.
func (d *Daemon) StartTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startTime
}

// Status reports the current daemon state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Running:      d.running,
		StartedAt:    d.startTime,
		TrackedItems: d.monitor.Tracked(),
		StorePath:    d.cfg.Store.Path,
		NATSEnabled:  d.cfg.NATS.Enabled,
	}
}

// Start brings up all components. The order matters: the event loop and
// debouncer must be consuming before any mutation can publish, and the
// monitor baseline must exist before its first scheduled tick.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ferrors.DaemonError("daemon already running").Build()
	}
	d.running = true
	d.startTime = time.Now()
	loopCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.loopDone = make(chan struct{})
	d.mu.Unlock()

	slog.Info("Starting larder daemon",
		slog.String("store", d.cfg.Store.Path),
		slog.Duration("monitor_interval", d.cfg.Monitor.Interval.Std()))

	go func() {
		if err := d.debouncer.Run(loopCtx); err != nil {
			slog.Error("Refresh debouncer stopped", logfields.Error(err))
		}
	}()
	<-d.debouncer.Ready()

	go d.eventLoop(loopCtx)

	if err := d.monitor.Start(ctx); err != nil {
		d.abortStart(ctx)
		return err
	}

	if d.cfg.Cleanup.Enabled {
		if _, err := d.scheduler.ScheduleCron("cleanup-sweep", d.cfg.Cleanup.Schedule, d.scheduledSweep); err != nil {
			d.abortStart(ctx)
			return err
		}
	}
	d.scheduler.Start(ctx)

	if d.httpServer != nil {
		if err := d.httpServer.Start(ctx); err != nil {
			d.abortStart(ctx)
			return err
		}
	}

	// Prime the statistics cache so the first read is served hot.
	if err := d.service.RefreshStats(ctx); err != nil {
		slog.Warn("Initial statistics refresh failed", logfields.Error(err))
	}

	slog.Info("Larder daemon started")
	return nil
}

// WatchSettings begins hot-reloading the config file at path. Call after
// Start; stops with the daemon.
func (d *Daemon) WatchSettings(ctx context.Context, path string) error {
	watcher, err := NewSettingsWatcher(path, d.applySettings)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	d.watcher = watcher
	d.mu.Unlock()
	return nil
}

// applySettings takes over the hot-applicable parts of a reloaded config:
// category thresholds, shelf lives, and alert classes.
func (d *Daemon) applySettings(cfg *config.Config) error {
	d.profile.Swap(cfg.Settings)

	d.mu.Lock()
	d.cfg.Settings = cfg.Settings
	d.cfg.Monitor.Alerts = cfg.Monitor.Alerts
	d.mu.Unlock()

	// Recompute immediately so changed thresholds show up without
	// waiting for the next tick.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := d.monitor.CheckNow(ctx); err != nil {
		slog.Warn("Post-reload check failed", logfields.Error(err))
	}
	return d.service.RefreshStats(ctx)
}

// Stop shuts everything down in reverse startup order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	watcher := d.watcher
	d.watcher = nil
	d.mu.Unlock()

	slog.Info("Stopping larder daemon")

	if watcher != nil {
		if err := watcher.Stop(ctx); err != nil {
			slog.Error("Settings watcher stop failed", logfields.Error(err))
		}
	}
	d.teardown(ctx)
	slog.Info("Larder daemon stopped")
	return nil
}

// abortStart unwinds a partially started daemon.
func (d *Daemon) abortStart(ctx context.Context) {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	d.teardown(ctx)
}

func (d *Daemon) teardown(ctx context.Context) {
	if d.httpServer != nil {
		if err := d.httpServer.Stop(ctx); err != nil {
			slog.Error("Admin server stop failed", logfields.Error(err))
		}
	}
	if err := d.monitor.Stop(ctx); err != nil {
		slog.Error("Monitor stop failed", logfields.Error(err))
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		slog.Error("Scheduler stop failed", logfields.Error(err))
	}

	d.mu.Lock()
	cancel := d.cancel
	loopDone := d.loopDone
	d.cancel = nil
	d.loopDone = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if loopDone != nil {
		select {
		case <-loopDone:
		case <-time.After(5 * time.Second):
			slog.Warn("Event loop did not drain in time")
		}
	}

	d.bus.Close()
	if d.natsClose != nil {
		if err := d.natsClose(); err != nil {
			slog.Error("NATS close failed", logfields.Error(err))
		}
	}
	if err := d.store.Close(); err != nil {
		slog.Error("Store close failed", logfields.Error(err))
	}
}

// eventLoop consumes orchestration events for the daemon's lifetime.
func (d *Daemon) eventLoop(ctx context.Context) {
	defer close(d.loopDone)

	refreshCh, unsubRefresh := events.Subscribe[events.RefreshNow](d.bus, 16)
	defer unsubRefresh()
	changedCh, unsubChanged := events.Subscribe[events.CollectionChanged](d.bus, 64)
	defer unsubChanged()
	sweepCh, unsubSweep := events.Subscribe[events.SweepCompleted](d.bus, 4)
	defer unsubSweep()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-refreshCh:
			if !ok {
				return
			}
			refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := d.service.RefreshStats(refreshCtx); err != nil {
				slog.Error("Statistics refresh failed", logfields.Error(err))
			} else {
				slog.Debug("Refresh burst handled",
					logfields.Count(evt.RequestCount),
					slog.String("cause", evt.DebounceCause))
			}
			cancel()

		case evt, ok := <-changedCh:
			if !ok {
				return
			}
			slog.Debug("Collection changed",
				logfields.ItemID(evt.ItemID),
				slog.String("reason", evt.Reason))

		case evt, ok := <-sweepCh:
			if !ok {
				return
			}
			slog.Debug("Sweep event observed", logfields.Count(evt.Deleted))
		}
	}
}

// scheduledSweep is the cron entry point for the cleanup sweep.
func (d *Daemon) scheduledSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := d.service.Sweep(ctx, "schedule"); err != nil {
		slog.Error("Scheduled sweep failed", logfields.Error(err))
	}
}
