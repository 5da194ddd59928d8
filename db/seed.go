// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed scoring_methods.yaml
var defaultScoringMethods []byte

// DefaultScoringMethods returns the built-in scoring method seed file.
func DefaultScoringMethods() []byte {
	return defaultScoringMethods
}

type seedFile struct {
	ScoringMethods []seedMethod `yaml:"scoring_methods"`
}

type seedMethod struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Values      []string `yaml:"values"`
	Default     bool     `yaml:"default"`
	Inactive    bool     `yaml:"inactive"`
}

// SeedScoringMethods inserts the scoring methods described by a YAML
// document. Methods whose id already exists are left as they are, since
// sessions may already reference them.
func SeedScoringMethods(ctx context.Context, db *sql.DB, data []byte) (int, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse scoring methods: %w", err)
	}

	defaults := 0
	for _, m := range file.ScoringMethods {
		if m.ID == "" || m.Name == "" {
			return 0, errors.New("scoring method requires id and name")
		}
		if len(m.Values) == 0 {
			return 0, fmt.Errorf("scoring method %s has no values", m.ID)
		}
		if m.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return 0, errors.New("at most one scoring method may be the default")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, m := range file.ScoringMethods {
		values, err := json.Marshal(m.Values)
		if err != nil {
			return 0, fmt.Errorf("failed to encode values for %s: %w", m.ID, err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO scoring_method (id, name, description, value_list, active, is_default, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, m.ID, m.Name, m.Description, string(values), !m.Inactive, m.Default, time.Now())
		if err != nil {
			return 0, fmt.Errorf("failed to insert scoring method %s: %w", m.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scoring methods: %w", err)
	}

	return inserted, nil
}
