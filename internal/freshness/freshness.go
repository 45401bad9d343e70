// Package freshness holds the pure lifecycle computations: deriving an
// ingredient's status from its dates and scoring freshness numerically.
//
// Two scoring formulas intentionally coexist. The aggregate weighting is
// used when many items are combined into one percentage; the per-item
// compound score blends shelf-life progress with expiry proximity. They
// answer different questions and must not be unified (see DESIGN.md).
package freshness

import (
	"math"
	"time"

	"git.home.luguber.info/inful/larder/internal/calendar"
	"git.home.luguber.info/inful/larder/internal/ingredient"
)

const (
	// DefaultNearExpiryThresholdDays applies when the settings provider
	// supplies no per-category threshold.
	DefaultNearExpiryThresholdDays = 3

	// DefaultShelfLifeDays applies when a category has no shelf-life entry.
	DefaultShelfLifeDays = 7

	// UnknownDateScore is the freshness score for items whose expiration
	// date could not be parsed. Display-layer degradation, not an error.
	UnknownDateScore = 0.8

	// EmptyCollectionScore is the aggregate score when there is nothing to
	// manage: a perfect 100, not a neutral value.
	EmptyCollectionScore = 100.0
)

// ComputeStatus derives the lifecycle status from the expiration date.
//
// Day arithmetic uses day starts, so the result is stable across a single
// calendar day regardless of time-of-day. thresholdDays <= 0 selects the
// default. A zero (malformed) expiration date degrades to fresh.
//
// StatusUsed is never produced here; it is an externally applied sticky
// override.
func ComputeStatus(expiration, now time.Time, thresholdDays int) ingredient.Status {
	if expiration.IsZero() {
		return ingredient.StatusFresh
	}
	if thresholdDays <= 0 {
		thresholdDays = DefaultNearExpiryThresholdDays
	}

	daysToExpiry := calendar.DaysBetween(now, expiration)
	switch {
	case daysToExpiry < 0:
		return ingredient.StatusExpired
	case daysToExpiry <= thresholdDays:
		return ingredient.StatusNearExpiry
	default:
		return ingredient.StatusFresh
	}
}

// Weight maps a status to its aggregate scoring weight.
func Weight(s ingredient.Status) float64 {
	switch s {
	case ingredient.StatusFresh:
		return 1.0
	case ingredient.StatusNearExpiry:
		return 0.5
	case ingredient.StatusExpired:
		return 0.0
	case ingredient.StatusUsed:
		return 0.8
	default:
		return 0.0
	}
}

// AggregateScore combines statuses into a single freshness percentage using
// the simple weighted average. Zero statuses scores EmptyCollectionScore.
func AggregateScore(statuses []ingredient.Status) float64 {
	if len(statuses) == 0 {
		return EmptyCollectionScore
	}
	var sum float64
	for _, s := range statuses {
		sum += Weight(s)
	}
	return sum / float64(len(statuses)) * 100
}

// ItemScore computes the per-item compound freshness score in [0,1]:
// 0.6 * shelf-life progress + 0.4 * expiry proximity, rounded to two
// decimals. shelfLifeDays and thresholdDays fall back to package defaults
// when non-positive. A zero expiration date yields UnknownDateScore.
func ItemScore(item *ingredient.Ingredient, now time.Time, shelfLifeDays, thresholdDays int) float64 {
	if item == nil || item.ExpirationDate.IsZero() {
		return UnknownDateScore
	}
	if shelfLifeDays <= 0 {
		shelfLifeDays = DefaultShelfLifeDays
	}
	if thresholdDays <= 0 {
		thresholdDays = DefaultNearExpiryThresholdDays
	}

	daysSincePurchase := 0
	if !item.PurchaseDate.IsZero() {
		daysSincePurchase = calendar.DaysBetween(item.PurchaseDate, now)
	}
	timeComponent := clamp01(1 - float64(daysSincePurchase)/float64(shelfLifeDays))

	daysToExpiry := calendar.DaysBetween(now, item.ExpirationDate)
	expiryComponent := clamp01(float64(daysToExpiry) / float64(thresholdDays))

	return round2(0.6*timeComponent + 0.4*expiryComponent)
}

// WastePercentage is expired over total as a percentage; 0 of 0 is 0.
func WastePercentage(expired, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(expired) / float64(total) * 100)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
