package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/larder/internal/calendar"
	"git.home.luguber.info/inful/larder/internal/ingredient"
)

// Wednesday 2026-08-26.
var now = time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)

func item(created, expiry time.Time, category, location string) *ingredient.Ingredient {
	return &ingredient.Ingredient{
		ID:             category + "/" + location + "/" + created.Format(ingredient.DateLayout),
		Category:       category,
		Location:       location,
		CreatedAt:      created,
		ExpirationDate: expiry,
	}
}

func TestAggregate_AllTime(t *testing.T) {
	items := []*ingredient.Ingredient{
		item(now.AddDate(0, -2, 0), now.AddDate(0, 0, 30), "dairy", "fridge"),  // fresh
		item(now.AddDate(0, -1, 0), now.AddDate(0, 0, 1), "produce", "fridge"), // near expiry
		item(now.AddDate(0, 0, -10), now.AddDate(0, 0, -2), "dairy", "pantry"), // expired
	}
	usedItem := item(now.AddDate(0, 0, -5), now.AddDate(0, 0, 10), "meat", "freezer")
	usedItem.Status = ingredient.StatusUsed
	items = append(items, usedItem)

	s := New(nil).Aggregate(items, calendar.TimeframeAll, now)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Fresh)
	assert.Equal(t, 1, s.NearExpiry)
	assert.Equal(t, 1, s.Expired)
	assert.Equal(t, 1, s.Used)
	assert.Equal(t, map[string]int{"dairy": 2, "produce": 1, "meat": 1}, s.ByCategory)
	assert.Equal(t, map[string]int{"fridge": 2, "pantry": 1, "freezer": 1}, s.ByLocation)

	// (1.0 + 0.5 + 0.0 + 0.8) / 4 = 57.5
	assert.InDelta(t, 57.5, s.FreshnessScore, 1e-9)
	assert.Equal(t, 25.0, s.WastePercentage)
}

func TestAggregate_WeekWindowFiltersByCreatedAt(t *testing.T) {
	monday := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	priorSunday := time.Date(2026, 8, 23, 23, 0, 0, 0, time.UTC)

	items := []*ingredient.Ingredient{
		item(monday, now.AddDate(0, 0, 30), "dairy", "fridge"),
		item(priorSunday, now.AddDate(0, 0, 30), "dairy", "fridge"),
		// Expires inside the week but created long ago: window keys on
		// created_at, so it must not be selected.
		item(now.AddDate(0, -3, 0), now.Add(24*time.Hour), "produce", "fridge"),
	}

	s := New(nil).Aggregate(items, calendar.TimeframeWeek, now)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.Fresh)
}

func TestAggregate_EmptyWindow(t *testing.T) {
	s := New(nil).Aggregate(nil, calendar.TimeframeMonth, now)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 100.0, s.FreshnessScore)
	assert.Equal(t, 0.0, s.WastePercentage)
	assert.Empty(t, s.ByCategory)
}

func TestAggregate_WastePercentage(t *testing.T) {
	var items []*ingredient.Ingredient
	for i := 0; i < 7; i++ {
		items = append(items, item(now.AddDate(0, 0, -1), now.AddDate(0, 0, 30), "dairy", "fridge"))
	}
	for i := 0; i < 3; i++ {
		items = append(items, item(now.AddDate(0, 0, -1), now.AddDate(0, 0, -5), "dairy", "fridge"))
	}

	s := New(nil).Aggregate(items, calendar.TimeframeAll, now)
	assert.Equal(t, 10, s.Total)
	assert.Equal(t, 3, s.Expired)
	assert.Equal(t, 30.0, s.WastePercentage)
}

func TestAggregate_RecomputesStaleStatus(t *testing.T) {
	stale := item(now.AddDate(0, 0, -10), now.AddDate(0, 0, -1), "dairy", "fridge")
	stale.Status = ingredient.StatusFresh // stored status drifted

	s := New(nil).Aggregate([]*ingredient.Ingredient{stale}, calendar.TimeframeAll, now)
	assert.Equal(t, 1, s.Expired)
	assert.Equal(t, 0, s.Fresh)
}

type wideProfile struct{}

func (wideProfile) NearExpiryThresholdDays(string) int { return 14 }
func (wideProfile) ShelfLifeDays(string) int           { return 30 }

func TestAggregate_CategoryProfileThreshold(t *testing.T) {
	it := item(now.AddDate(0, 0, -1), now.AddDate(0, 0, 10), "dairy", "fridge")

	defaultSummary := New(nil).Aggregate([]*ingredient.Ingredient{it}, calendar.TimeframeAll, now)
	assert.Equal(t, 1, defaultSummary.Fresh)

	wideSummary := New(wideProfile{}).Aggregate([]*ingredient.Ingredient{it}, calendar.TimeframeAll, now)
	assert.Equal(t, 1, wideSummary.NearExpiry)
}

func TestTrend_FivePoints(t *testing.T) {
	items := []*ingredient.Ingredient{
		// This week: one fresh item.
		item(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC), now.AddDate(0, 0, 30), "dairy", "fridge"),
		// Last week: one expired item.
		item(time.Date(2026, 8, 18, 10, 0, 0, 0, time.UTC), now.AddDate(0, 0, -3), "dairy", "fridge"),
	}

	points := New(nil).Trend(items, calendar.TimeframeWeek, now)
	require.Len(t, points, TrendPoints)

	// Oldest three weeks are empty and score the perfect 100.
	for _, p := range points[:3] {
		assert.Equal(t, 0, p.Items)
		assert.Equal(t, 100.0, p.Score)
	}
	assert.Equal(t, 1, points[3].Items)
	assert.Equal(t, 0.0, points[3].Score)
	assert.Equal(t, 1, points[4].Items)
	assert.Equal(t, 100.0, points[4].Score)
}

func TestTrend_AllTimeFallsBackToWeek(t *testing.T) {
	points := New(nil).Trend(nil, calendar.TimeframeAll, now)
	require.Len(t, points, TrendPoints)
	assert.Equal(t, time.Monday, points[0].Window.Start.Weekday())
}

func TestItemScore_UsesProfile(t *testing.T) {
	it := item(now.AddDate(0, 0, -15), now.AddDate(0, 0, 20), "dairy", "fridge")
	it.PurchaseDate = now.AddDate(0, 0, -15)

	// Default shelf life 7 → time component 0; threshold 3 → expiry 1.
	assert.Equal(t, 0.4, New(nil).ItemScore(it, now))
	// Wide profile: time 1-15/30=0.5, expiry 1 → 0.6*0.5+0.4 = 0.7.
	assert.Equal(t, 0.7, New(wideProfile{}).ItemScore(it, now))
}
