// Package store implements the persistence layer for the ingredient
// collection. Every mutation re-derives the item's status and freshness
// score before persisting, so the stored state always satisfies the
// invariant that a non-used item's status equals the computed one.
package store

import (
	"context"
	"time"

	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/freshness"
	"git.home.luguber.info/inful/larder/internal/ingredient"
)

// Store is the persistence contract consumed by the engine and the daemon.
type Store interface {
	// Add persists a new ingredient, deriving its status and score.
	Add(ctx context.Context, item *ingredient.Ingredient) (*ingredient.Ingredient, error)

	// Get retrieves an ingredient by id.
	Get(ctx context.Context, id string) (*ingredient.Ingredient, error)

	// Update persists changes to an existing ingredient and re-derives
	// status and score (unless the sticky used override is in effect).
	Update(ctx context.Context, item *ingredient.Ingredient) (*ingredient.Ingredient, error)

	// Delete removes an ingredient by id.
	Delete(ctx context.Context, id string) error

	// List returns the whole collection.
	List(ctx context.Context) ([]*ingredient.Ingredient, error)

	// SetUsed toggles the sticky used override. Marking is idempotent;
	// un-marking recomputes status from the expiration date as if the
	// override never happened.
	SetUsed(ctx context.Context, id string, used bool) (*ingredient.Ingredient, error)

	// SweepUsed deletes items that have been in used status since before
	// the cutoff (by updated_at). Returns the number of deletions.
	SweepUsed(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases store resources.
	Close() error
}

// NotFound reports whether err is the store's not-found error.
func NotFound(err error) bool {
	return ferrors.GetCategory(err) == ferrors.CategoryNotFound
}

func notFoundErr(id string) error {
	return ferrors.NotFoundError("ingredient not found").WithContext("item_id", id).Build()
}

// normalize re-derives the status and freshness score of item in place.
// The used override is sticky: status and score are frozen until the
// override is lifted.
func normalize(item *ingredient.Ingredient, now time.Time, profile freshness.CategoryProfile) {
	if profile == nil {
		profile = freshness.DefaultProfile{}
	}
	if item.Status == ingredient.StatusUsed {
		return
	}
	threshold := profile.NearExpiryThresholdDays(item.Category)
	item.Status = freshness.ComputeStatus(item.ExpirationDate, now, threshold)
	item.FreshnessScore = freshness.ItemScore(item, now, profile.ShelfLifeDays(item.Category), threshold)
}

func validate(item *ingredient.Ingredient) error {
	if item == nil {
		return ferrors.ValidationError("ingredient is required").Build()
	}
	if item.Name == "" {
		return ferrors.ValidationError("ingredient name is required").Build()
	}
	return nil
}
