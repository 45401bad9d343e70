// Package metrics defines the observability hooks for the lifecycle engine
// and a Prometheus-backed implementation.
package metrics

import "time"

// Recorder defines observability hooks for monitor checks, status
// transitions, notification delivery and cleanup sweeps. All methods must
// be safe on the NoopRecorder so injection stays optional.
type Recorder interface {
	IncCheck(trigger string) // trigger: schedule|manual
	ObserveCheckDuration(d time.Duration)
	IncTransition(changeType string)
	IncNotification(result string) // result: dispatched|suppressed|failed
	SetTrackedItems(n int)
	AddSweepDeleted(n int)
	SetFreshnessScore(timeframe string, score float64)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCheck(string)                    {}
func (NoopRecorder) ObserveCheckDuration(time.Duration) {}
func (NoopRecorder) IncTransition(string)               {}
func (NoopRecorder) IncNotification(string)             {}
func (NoopRecorder) SetTrackedItems(int)                {}
func (NoopRecorder) AddSweepDeleted(int)                {}
func (NoopRecorder) SetFreshnessScore(string, float64)  {}
