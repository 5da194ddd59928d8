// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/planning-poker/testutil"
)

func TestRegistryList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	// Retire one method; it must disappear from List but stay resolvable
	if _, err := db.Exec("UPDATE scoring_method SET active = $1 WHERE id = 'linear'", false); err != nil {
		t.Fatalf("Failed to deactivate method: %v", err)
	}

	reg := NewRegistry(db, time.Minute)
	methods, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"Fibonacci", "Modified Fibonacci", "Powers of 2", "T-Shirt Sizes"}
	if len(methods) != len(want) {
		t.Fatalf("List() returned %d methods, want %d", len(methods), len(want))
	}
	for i, name := range want {
		if methods[i].Name != name {
			t.Errorf("methods[%d].Name = %q, want %q", i, methods[i].Name, name)
		}
	}

	linear, err := reg.Get(context.Background(), "linear")
	if err != nil {
		t.Fatalf("Get(linear) error = %v", err)
	}
	if linear.Active {
		t.Error("Expected linear to be inactive")
	}
}

func TestRegistryGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	reg := NewRegistry(db, time.Minute)

	m, err := reg.Get(context.Background(), "t-shirt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	wantValues := []string{"XS", "S", "M", "L", "XL", "XXL", "?"}
	if len(m.Values) != len(wantValues) {
		t.Fatalf("Values = %v, want %v", m.Values, wantValues)
	}
	for i, v := range wantValues {
		if m.Values[i] != v {
			t.Errorf("Values[%d] = %q, want %q", i, m.Values[i], v)
		}
	}
	if !m.Contains("XL") || m.Contains("XXXL") {
		t.Error("Contains() gave wrong membership")
	}

	if _, err := reg.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	def, err := reg.Default(context.Background())
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if def.ID != "fibonacci" {
		t.Errorf("Default() = %s, want fibonacci", def.ID)
	}
}

func TestRegistryCacheInvalidate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	reg := NewRegistry(db, time.Hour)
	before, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO scoring_method (id, name, description, value_list, active, is_default, created_at)
		VALUES ('hours', 'Hours', '', '["1","2","4","8"]', $1, $2, $3)
	`, true, false, time.Now())
	if err != nil {
		t.Fatalf("Failed to insert method: %v", err)
	}

	cached, _ := reg.List(context.Background())
	if len(cached) != len(before) {
		t.Errorf("Expected cached list of %d, got %d", len(before), len(cached))
	}

	reg.Invalidate()
	fresh, _ := reg.List(context.Background())
	if len(fresh) != len(before)+1 {
		t.Errorf("Expected %d methods after Invalidate, got %d", len(before)+1, len(fresh))
	}
}

func TestRegistryMalformedValues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	if _, err := db.Exec("UPDATE scoring_method SET value_list = 'not json' WHERE id = 'fibonacci'"); err != nil {
		t.Fatalf("Failed to corrupt method: %v", err)
	}

	reg := NewRegistry(db, time.Minute)
	if _, err := reg.List(context.Background()); err == nil {
		t.Error("Expected error for malformed stored values")
	}
}
