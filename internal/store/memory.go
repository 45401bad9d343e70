package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/larder/internal/freshness"
	"git.home.luguber.info/inful/larder/internal/ingredient"
)

// MemoryStore is an in-memory Store used by tests and ephemeral runs.
// It applies exactly the same derivation rules as the SQLite store.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]*ingredient.Ingredient
	profile freshness.CategoryProfile
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store. profile and now may be
// nil; defaults are the engine profile and the wall clock.
func NewMemoryStore(profile freshness.CategoryProfile, now func() time.Time) *MemoryStore {
	if profile == nil {
		profile = freshness.DefaultProfile{}
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		items:   make(map[string]*ingredient.Ingredient),
		profile: profile,
		now:     now,
	}
}

func (s *MemoryStore) Add(_ context.Context, item *ingredient.Ingredient) (*ingredient.Ingredient, error) {
	if err := validate(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := item.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	normalize(stored, now, s.profile)

	s.items[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*ingredient.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, notFoundErr(id)
	}
	return item.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, item *ingredient.Ingredient) (*ingredient.Ingredient, error) {
	if err := validate(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return nil, notFoundErr(item.ID)
	}

	now := s.now()
	stored := item.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = now
	// The used override survives a plain update; only SetUsed lifts it.
	if existing.Status == ingredient.StatusUsed {
		stored.Status = ingredient.StatusUsed
		stored.FreshnessScore = existing.FreshnessScore
	}
	normalize(stored, now, s.profile)

	s.items[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return notFoundErr(id)
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*ingredient.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ingredient.Ingredient, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	return out, nil
}

func (s *MemoryStore) SetUsed(_ context.Context, id string, used bool) (*ingredient.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[id]
	if !ok {
		return nil, notFoundErr(id)
	}

	now := s.now()
	stored := existing.Clone()
	stored.UpdatedAt = now

	if used {
		stored.Status = ingredient.StatusUsed
	} else {
		// Recompute as if the override never happened.
		stored.Status = ""
		normalize(stored, now, s.profile)
	}

	s.items[id] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) SweepUsed(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, item := range s.items {
		if item.Status == ingredient.StatusUsed && item.UpdatedAt.Before(cutoff) {
			delete(s.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Close() error { return nil }
