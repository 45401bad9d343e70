// Package notify delivers status-change events to the outside world.
// Delivery is best-effort by contract: the change monitor's snapshot is
// already updated by the time a dispatcher runs, and failures only surface
// as logs and metrics.
package notify

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/larder/internal/logfields"
	"git.home.luguber.info/inful/larder/internal/monitor"
)

// LogDispatcher writes status-change events to the structured log. It is
// the default dispatcher when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, evt monitor.StatusChangeEvent) error {
	slog.Info("Ingredient status changed",
		logfields.ItemID(evt.ItemID),
		logfields.ItemName(evt.ItemName),
		logfields.OldStatus(evt.OldStatus.String()),
		logfields.NewStatus(evt.NewStatus.String()),
		logfields.ChangeType(evt.ChangeType.String()))
	return nil
}

// Multi fans an event out to several dispatchers. The first error is
// returned after all dispatchers have been attempted.
type Multi []monitor.Dispatcher

func (m Multi) Dispatch(ctx context.Context, evt monitor.StatusChangeEvent) error {
	var firstErr error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, evt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
