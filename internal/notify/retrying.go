package notify

import (
	"context"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/logfields"
	"git.home.luguber.info/inful/larder/internal/monitor"
	"git.home.luguber.info/inful/larder/internal/retry"
)

// Retrying wraps a dispatcher with a backoff policy. Only errors
// classified as retryable are retried; everything else fails immediately.
type Retrying struct {
	inner  monitor.Dispatcher
	policy retry.Policy
}

func NewRetrying(inner monitor.Dispatcher, policy retry.Policy) (*Retrying, error) {
	if inner == nil {
		return nil, ferrors.ValidationError("inner dispatcher is required").Build()
	}
	if err := policy.Validate(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid retry policy").Build()
	}
	return &Retrying{inner: inner, policy: policy}, nil
}

func (r *Retrying) Dispatch(ctx context.Context, evt monitor.StatusChangeEvent) error {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ferrors.WrapError(ctx.Err(), ferrors.CategoryNotify, "dispatch retry canceled").Build()
			case <-time.After(r.policy.Delay(attempt)):
			}
			slog.Debug("Retrying notification dispatch",
				logfields.ItemID(evt.ItemID),
				logfields.Count(attempt))
		}

		lastErr = r.inner.Dispatch(ctx, evt)
		if lastErr == nil {
			return nil
		}
		if classified, ok := ferrors.AsClassified(lastErr); ok && !classified.CanRetry() {
			return lastErr
		}
	}
	return lastErr
}
