package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/freshness"
	"git.home.luguber.info/inful/larder/internal/ingredient"
)

// SQLiteStore implements Store using SQLite.
//
// Dates are persisted as day-granularity text; malformed values load as
// zero times and degrade to fresh rather than failing, matching the
// engine's defensive-date policy.
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	profile freshness.CategoryProfile
	now     func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath. Use ":memory:"
// for an ephemeral store. profile and now may be nil.
func NewSQLiteStore(dbPath string, profile freshness.CategoryProfile, now func() time.Time) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "open sqlite database").Build()
	}
	// A single connection keeps ":memory:" databases coherent and matches
	// the serialized write pattern.
	db.SetMaxOpenConns(1)
	if profile == nil {
		profile = freshness.DefaultProfile{}
	}
	if now == nil {
		now = time.Now
	}

	s := &SQLiteStore{db: db, profile: profile, now: now}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "initialize schema").Build()
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingredients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		quantity REAL NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		purchase_date TEXT NOT NULL DEFAULT '',
		expiration_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		freshness_score REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ingredients_status ON ingredients(status);
	CREATE INDEX IF NOT EXISTS idx_ingredients_created_at ON ingredients(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

const ingredientColumns = "id, name, category, location, quantity, unit, purchase_date, expiration_date, status, freshness_score, created_at, updated_at"

func (s *SQLiteStore) Add(ctx context.Context, item *ingredient.Ingredient) (*ingredient.Ingredient, error) {
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

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ingredients ("+ingredientColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		stored.ID, stored.Name, stored.Category, stored.Location, stored.Quantity, stored.Unit,
		formatDate(stored.PurchaseDate), formatDate(stored.ExpirationDate),
		string(stored.Status), stored.FreshnessScore, stored.CreatedAt.Unix(), stored.UpdatedAt.Unix(),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "insert ingredient").
			WithContext("item_id", stored.ID).Build()
	}
	return stored, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*ingredient.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+ingredientColumns+" FROM ingredients WHERE id = ?", id)
	item, err := scanIngredient(row)
	if err == sql.ErrNoRows {
		return nil, notFoundErr(id)
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "query ingredient").Build()
	}
	return item, nil
}

func (s *SQLiteStore) Update(ctx context.Context, item *ingredient.Ingredient) (*ingredient.Ingredient, error) {
	if err := validate(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.get(ctx, item.ID)
	if err != nil {
		return nil, err
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

	_, err = s.db.ExecContext(ctx,
		`UPDATE ingredients SET name = ?, category = ?, location = ?, quantity = ?, unit = ?,
		 purchase_date = ?, expiration_date = ?, status = ?, freshness_score = ?, updated_at = ?
		 WHERE id = ?`,
		stored.Name, stored.Category, stored.Location, stored.Quantity, stored.Unit,
		formatDate(stored.PurchaseDate), formatDate(stored.ExpirationDate),
		string(stored.Status), stored.FreshnessScore, stored.UpdatedAt.Unix(), stored.ID,
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "update ingredient").
			WithContext("item_id", stored.ID).Build()
	}
	return stored, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM ingredients WHERE id = ?", id)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStore, "delete ingredient").Build()
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr(id)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*ingredient.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+ingredientColumns+" FROM ingredients ORDER BY created_at, id")
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "query ingredients").Build()
	}
	defer rows.Close()

	var items []*ingredient.Ingredient
	for rows.Next() {
		item, err := scanIngredient(rows)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryStore, "scan ingredient").Build()
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "iterate rows").Build()
	}
	return items, nil
}

func (s *SQLiteStore) SetUsed(ctx context.Context, id string, used bool) (*ingredient.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
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

	_, err = s.db.ExecContext(ctx,
		"UPDATE ingredients SET status = ?, freshness_score = ?, updated_at = ? WHERE id = ?",
		string(stored.Status), stored.FreshnessScore, stored.UpdatedAt.Unix(), id,
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "toggle used").
			WithContext("item_id", id).Build()
	}
	return stored, nil
}

func (s *SQLiteStore) SweepUsed(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM ingredients WHERE status = ? AND updated_at < ?",
		string(ingredient.StatusUsed), cutoff.Unix(),
	)
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryStore, "sweep used items").Build()
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// get is the lock-free Get used inside mutating operations.
func (s *SQLiteStore) get(ctx context.Context, id string) (*ingredient.Ingredient, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+ingredientColumns+" FROM ingredients WHERE id = ?", id)
	item, err := scanIngredient(row)
	if err == sql.ErrNoRows {
		return nil, notFoundErr(id)
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "query ingredient").Build()
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngredient(row rowScanner) (*ingredient.Ingredient, error) {
	var (
		item             ingredient.Ingredient
		purchase, expiry string
		status           string
		created, updated int64
	)
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Location, &item.Quantity, &item.Unit,
		&purchase, &expiry, &status, &item.FreshnessScore, &created, &updated)
	if err != nil {
		return nil, err
	}
	item.PurchaseDate = ingredient.ParseDate(purchase)
	item.ExpirationDate = ingredient.ParseDate(expiry)
	item.Status = ingredient.Status(status)
	item.CreatedAt = time.Unix(created, 0)
	item.UpdatedAt = time.Unix(updated, 0)
	return &item, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ingredient.DateLayout)
}
