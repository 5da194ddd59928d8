// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielhkuo/planning-poker/models"
)

var ErrNotFound = errors.New("scoring method not found")

// Registry is a read-through cache over the scoring_method table.
// Entries expire after ttl; Invalidate drops everything at once.
type Registry struct {
	db  *sql.DB
	ttl time.Duration

	mu       sync.RWMutex
	methods  []models.ScoringMethod
	loadedAt time.Time
}

func NewRegistry(db *sql.DB, ttl time.Duration) *Registry {
	return &Registry{db: db, ttl: ttl}
}

// List returns active methods ordered by name
func (r *Registry) List(ctx context.Context) ([]models.ScoringMethod, error) {
	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]models.ScoringMethod, 0, len(all))
	for _, m := range all {
		if m.Active {
			active = append(active, m)
		}
	}
	return active, nil
}

// Get returns one method by id, active or not, so sessions created
// against a since-retired method still resolve their values.
func (r *Registry) Get(ctx context.Context, id string) (models.ScoringMethod, error) {
	all, err := r.all(ctx)
	if err != nil {
		return models.ScoringMethod{}, err
	}
	for _, m := range all {
		if m.ID == id {
			return m, nil
		}
	}
	return models.ScoringMethod{}, ErrNotFound
}

// Default returns the active method flagged as default
func (r *Registry) Default(ctx context.Context) (models.ScoringMethod, error) {
	active, err := r.List(ctx)
	if err != nil {
		return models.ScoringMethod{}, err
	}
	for _, m := range active {
		if m.IsDefault {
			return m, nil
		}
	}
	return models.ScoringMethod{}, ErrNotFound
}

// Invalidate forces the next lookup to reload from the database
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.methods = nil
	r.loadedAt = time.Time{}
	r.mu.Unlock()
}

func (r *Registry) all(ctx context.Context) ([]models.ScoringMethod, error) {
	r.mu.RLock()
	if r.methods != nil && time.Since(r.loadedAt) < r.ttl {
		methods := r.methods
		r.mu.RUnlock()
		return methods, nil
	}
	r.mu.RUnlock()

	methods, err := load(ctx, r.db)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.methods = methods
	r.loadedAt = time.Now()
	r.mu.Unlock()

	return methods, nil
}

func load(ctx context.Context, db *sql.DB) ([]models.ScoringMethod, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, value_list, active, is_default
		FROM scoring_method
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring methods: %w", err)
	}
	defer rows.Close()

	methods := []models.ScoringMethod{}
	for rows.Next() {
		var m models.ScoringMethod
		var values string
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &values, &m.Active, &m.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan scoring method: %w", err)
		}
		if err := json.Unmarshal([]byte(values), &m.Values); err != nil {
			return nil, fmt.Errorf("malformed values for scoring method %s: %w", m.ID, err)
		}
		methods = append(methods, m)
	}

	return methods, rows.Err()
}
