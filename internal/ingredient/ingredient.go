// Package ingredient defines the core data model for tracked perishables.
package ingredient

import (
	"time"

	"github.com/google/uuid"
)

// Status is the freshness lifecycle state of an ingredient.
//
// Fresh, NearExpiry and Expired are derived from the expiration date and are
// recomputed after every mutation and on monitor ticks. Used is a sticky
// manual override: recomputation never overwrites it until it is explicitly
// toggled off.
type Status string

const (
	StatusFresh      Status = "fresh"
	StatusNearExpiry Status = "near_expiry"
	StatusExpired    Status = "expired"
	StatusUsed       Status = "used"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusFresh, StatusNearExpiry, StatusExpired, StatusUsed:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// DateLayout is the day-granularity layout used for purchase and expiration
// dates. Time-of-day has no semantics in the lifecycle model.
const DateLayout = "2006-01-02"

// Ingredient is a tracked perishable item.
type Ingredient struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Location string  `json:"location"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`

	PurchaseDate   time.Time `json:"purchase_date"`
	ExpirationDate time.Time `json:"expiration_date"`

	Status         Status  `json:"status"`
	FreshnessScore float64 `json:"freshness_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New constructs an ingredient with a fresh identity and creation timestamps.
// Status and FreshnessScore are left for the caller to derive.
func New(name, category, location string, quantity float64, unit string, purchase, expiration time.Time) *Ingredient {
	now := time.Now()
	return &Ingredient{
		ID:             uuid.NewString(),
		Name:           name,
		Category:       category,
		Location:       location,
		Quantity:       quantity,
		Unit:           unit,
		PurchaseDate:   purchase,
		ExpirationDate: expiration,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ParseDate parses a day-granularity date string. A zero time is returned for
// malformed input; callers treat a zero expiration date as "unknown" and
// degrade to fresh rather than failing (display-layer field, hard failure
// would be disproportionate).
func ParseDate(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clone returns a copy of the ingredient. The store hands out clones so
// callers cannot mutate persisted state behind its back.
func (i *Ingredient) Clone() *Ingredient {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
