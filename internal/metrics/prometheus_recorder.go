package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	checks        *prom.CounterVec
	checkDuration prom.Histogram
	transitions   *prom.CounterVec
	notifications *prom.CounterVec
	trackedItems  prom.Gauge
	sweepDeleted  prom.Counter
	freshness     *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.checks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "larder",
			Name:      "monitor_checks_total",
			Help:      "Change monitor recomputation runs by trigger",
		}, []string{"trigger"})
		pr.checkDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "larder",
			Name:      "monitor_check_duration_seconds",
			Help:      "Duration of change monitor recomputation runs",
			Buckets:   prom.DefBuckets,
		})
		pr.transitions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "larder",
			Name:      "status_transitions_total",
			Help:      "Observed ingredient status transitions by type",
		}, []string{"change_type"})
		pr.notifications = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "larder",
			Name:      "notifications_total",
			Help:      "Notification events by delivery result",
		}, []string{"result"})
		pr.trackedItems = prom.NewGauge(prom.GaugeOpts{
			Namespace: "larder",
			Name:      "monitor_tracked_items",
			Help:      "Items currently tracked by the change monitor",
		})
		pr.sweepDeleted = prom.NewCounter(prom.CounterOpts{
			Namespace: "larder",
			Name:      "sweep_deleted_total",
			Help:      "Stale used items removed by cleanup sweeps",
		})
		pr.freshness = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "larder",
			Name:      "freshness_score",
			Help:      "Aggregate freshness score by timeframe",
		}, []string{"timeframe"})
		reg.MustRegister(pr.checks, pr.checkDuration, pr.transitions, pr.notifications, pr.trackedItems, pr.sweepDeleted, pr.freshness)
	})
	return pr
}

func (p *PrometheusRecorder) IncCheck(trigger string) {
	if p == nil || p.checks == nil {
		return
	}
	p.checks.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) ObserveCheckDuration(d time.Duration) {
	if p == nil || p.checkDuration == nil {
		return
	}
	p.checkDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTransition(changeType string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(changeType).Inc()
}

func (p *PrometheusRecorder) IncNotification(result string) {
	if p == nil || p.notifications == nil {
		return
	}
	p.notifications.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) SetTrackedItems(n int) {
	if p == nil || p.trackedItems == nil {
		return
	}
	p.trackedItems.Set(float64(n))
}

func (p *PrometheusRecorder) AddSweepDeleted(n int) {
	if p == nil || p.sweepDeleted == nil {
		return
	}
	p.sweepDeleted.Add(float64(n))
}

func (p *PrometheusRecorder) SetFreshnessScore(timeframe string, score float64) {
	if p == nil || p.freshness == nil {
		return
	}
	p.freshness.WithLabelValues(timeframe).Set(score)
}
