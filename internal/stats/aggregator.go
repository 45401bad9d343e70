// Package stats implements calendar-windowed aggregation over the
// ingredient collection: status counts, category/location breakdowns,
// the aggregate freshness score, and multi-period trend series.
package stats

import (
	"time"

	"git.home.luguber.info/inful/larder/internal/calendar"
	"git.home.luguber.info/inful/larder/internal/freshness"
	"git.home.luguber.info/inful/larder/internal/ingredient"
)

// TrendPoints is the number of data points in a trend series: the current
// period plus the preceding four.
const TrendPoints = 5

// Summary is the aggregate view of a (windowed) ingredient collection.
type Summary struct {
	Timeframe calendar.Timeframe `json:"timeframe"`
	Window    calendar.Window    `json:"window"`

	Total      int `json:"total"`
	Fresh      int `json:"fresh"`
	NearExpiry int `json:"near_expiry"`
	Expired    int `json:"expired"`
	Used       int `json:"used"`

	ByCategory map[string]int `json:"by_category"`
	ByLocation map[string]int `json:"by_location"`

	// FreshnessScore is the weighted-average percentage over the windowed
	// collection; an empty window scores 100.
	FreshnessScore float64 `json:"freshness_score"`

	// WastePercentage is expired over total; 0 of 0 is 0.
	WastePercentage float64 `json:"waste_percentage"`
}

// TrendPoint is one period of a freshness trend series.
type TrendPoint struct {
	Window calendar.Window `json:"window"`
	Items  int             `json:"items"`
	Score  float64         `json:"score"`
}

// Aggregator computes summaries and trends. It re-derives the status of
// every non-used item from its expiration date, so a summary never depends
// on a stale stored status.
type Aggregator struct {
	profile freshness.CategoryProfile
}

// New creates an aggregator; a nil profile selects the engine defaults.
func New(profile freshness.CategoryProfile) *Aggregator {
	if profile == nil {
		profile = freshness.DefaultProfile{}
	}
	return &Aggregator{profile: profile}
}

// Aggregate summarizes the items whose created_at falls inside tf's current
// calendar window. Selection is deliberately by creation date, not
// expiration date: the question answered is "what did my inventory look
// like for items added this period".
func (a *Aggregator) Aggregate(items []*ingredient.Ingredient, tf calendar.Timeframe, now time.Time) Summary {
	window := calendar.WindowFor(tf, now)
	summary := Summary{
		Timeframe:  tf,
		Window:     window,
		ByCategory: make(map[string]int),
		ByLocation: make(map[string]int),
	}

	statuses := make([]ingredient.Status, 0, len(items))
	for _, item := range items {
		if item == nil || !window.Contains(item.CreatedAt) {
			continue
		}

		status := a.statusOf(item, now)
		statuses = append(statuses, status)

		summary.Total++
		switch status {
		case ingredient.StatusFresh:
			summary.Fresh++
		case ingredient.StatusNearExpiry:
			summary.NearExpiry++
		case ingredient.StatusExpired:
			summary.Expired++
		case ingredient.StatusUsed:
			summary.Used++
		}

		if item.Category != "" {
			summary.ByCategory[item.Category]++
		}
		if item.Location != "" {
			summary.ByLocation[item.Location]++
		}
	}

	summary.FreshnessScore = freshness.AggregateScore(statuses)
	summary.WastePercentage = freshness.WastePercentage(summary.Expired, summary.Total)
	return summary
}

// Trend replays the window logic over the preceding periods plus the
// current one and scores each with the aggregate formula. A period with no
// items scores 100 by the same "nothing to manage" convention.
func (a *Aggregator) Trend(items []*ingredient.Ingredient, tf calendar.Timeframe, now time.Time) []TrendPoint {
	if tf == calendar.TimeframeAll {
		tf = calendar.TimeframeWeek
	}

	windows := calendar.PreviousWindows(tf, now, TrendPoints)
	points := make([]TrendPoint, 0, len(windows))
	for _, w := range windows {
		var statuses []ingredient.Status
		for _, item := range items {
			if item == nil || !w.Contains(item.CreatedAt) {
				continue
			}
			statuses = append(statuses, a.statusOf(item, now))
		}
		points = append(points, TrendPoint{
			Window: w,
			Items:  len(statuses),
			Score:  freshness.AggregateScore(statuses),
		})
	}
	return points
}

// ItemScore exposes the per-item compound score with this aggregator's
// category profile applied.
func (a *Aggregator) ItemScore(item *ingredient.Ingredient, now time.Time) float64 {
	if item == nil {
		return freshness.UnknownDateScore
	}
	return freshness.ItemScore(item, now,
		a.profile.ShelfLifeDays(item.Category),
		a.profile.NearExpiryThresholdDays(item.Category))
}

// statusOf honors the sticky used override and otherwise recomputes.
func (a *Aggregator) statusOf(item *ingredient.Ingredient, now time.Time) ingredient.Status {
	if item.Status == ingredient.StatusUsed {
		return ingredient.StatusUsed
	}
	return freshness.ComputeStatus(item.ExpirationDate, now, a.profile.NearExpiryThresholdDays(item.Category))
}
