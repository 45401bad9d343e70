package daemon

import (
	"sync/atomic"

	"git.home.luguber.info/inful/larder/internal/freshness"
)

// HotProfile is a swappable category profile. The store, monitor and
// aggregator hold it for the lifetime of the process; the settings watcher
// swaps the inner profile when the config file changes, so new thresholds
// take effect on the next computation without a restart.
type HotProfile struct {
	inner atomic.Pointer[freshness.CategoryProfile]
}

func NewHotProfile(p freshness.CategoryProfile) *HotProfile {
	h := &HotProfile{}
	h.Swap(p)
	return h
}

// Swap replaces the active profile. A nil p selects the engine defaults.
func (h *HotProfile) Swap(p freshness.CategoryProfile) {
	if p == nil {
		p = freshness.DefaultProfile{}
	}
	h.inner.Store(&p)
}

func (h *HotProfile) NearExpiryThresholdDays(category string) int {
	return (*h.inner.Load()).NearExpiryThresholdDays(category)
}

func (h *HotProfile) ShelfLifeDays(category string) int {
	return (*h.inner.Load()).ShelfLifeDays(category)
}
