// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

var testHeader = []string{"id", "title", "status"}

// runBackendSuite checks the row semantics every backend must share.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	ctx := context.Background()

	t.Run("missing sheet", func(t *testing.T) {
		b := newBackend(t)
		if _, err := b.ReadRows(ctx, "Nope"); !errors.Is(err, ErrSheetNotFound) {
			t.Errorf("Expected ErrSheetNotFound, got %v", err)
		}
		if err := b.AppendRows(ctx, "Nope", [][]string{{"x"}}); !errors.Is(err, ErrSheetNotFound) {
			t.Errorf("Expected ErrSheetNotFound on append, got %v", err)
		}
	})

	t.Run("ensure sheet writes header once", func(t *testing.T) {
		b := newBackend(t)
		if err := b.EnsureSheet(ctx, "Drives", testHeader); err != nil {
			t.Fatalf("EnsureSheet failed: %v", err)
		}
		if err := b.AppendRows(ctx, "Drives", [][]string{{"1", "Beach", "upcoming"}}); err != nil {
			t.Fatalf("AppendRows failed: %v", err)
		}
		if err := b.EnsureSheet(ctx, "Drives", []string{"other"}); err != nil {
			t.Fatalf("second EnsureSheet failed: %v", err)
		}

		rows, err := b.ReadRows(ctx, "Drives")
		if err != nil {
			t.Fatalf("ReadRows failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("Expected header and one row, got %d rows", len(rows))
		}
		if !reflect.DeepEqual(rows[0], testHeader) {
			t.Errorf("Expected header to be kept, got %v", rows[0])
		}
	})

	t.Run("update delete clear", func(t *testing.T) {
		b := newBackend(t)
		if err := b.EnsureSheet(ctx, "Drives", testHeader); err != nil {
			t.Fatalf("EnsureSheet failed: %v", err)
		}
		err := b.AppendRows(ctx, "Drives", [][]string{
			{"1", "Beach", "upcoming"},
			{"2", "Park", "upcoming"},
			{"3", "River", "upcoming"},
		})
		if err != nil {
			t.Fatalf("AppendRows failed: %v", err)
		}

		if err := b.UpdateRows(ctx, "Drives", map[int][]string{2: {"2", "Park", "completed"}}); err != nil {
			t.Fatalf("UpdateRows failed: %v", err)
		}
		if err := b.UpdateRows(ctx, "Drives", map[int][]string{0: {"bad"}}); !errors.Is(err, ErrRowOutOfRange) {
			t.Errorf("Expected header update to be rejected, got %v", err)
		}

		if err := b.DeleteRows(ctx, "Drives", 1, 2); err != nil {
			t.Fatalf("DeleteRows failed: %v", err)
		}
		rows, _ := b.ReadRows(ctx, "Drives")
		want := [][]string{testHeader, {"2", "Park", "completed"}, {"3", "River", "upcoming"}}
		if !reflect.DeepEqual(rows, want) {
			t.Errorf("Expected %v, got %v", want, rows)
		}

		if err := b.DeleteRows(ctx, "Drives", 0, 1); !errors.Is(err, ErrRowOutOfRange) {
			t.Errorf("Expected header delete to be rejected, got %v", err)
		}
	})

	t.Run("read returns copies", func(t *testing.T) {
		b := newBackend(t)
		_ = b.EnsureSheet(ctx, "Drives", testHeader)
		rows, _ := b.ReadRows(ctx, "Drives")
		rows[0][0] = "mutated"

		again, _ := b.ReadRows(ctx, "Drives")
		if again[0][0] != "id" {
			t.Errorf("Expected stored header to be unaffected, got %q", again[0][0])
		}
	})
}

func TestMemoryBackend(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend {
		return NewMemoryBackend()
	})
}

func TestBadgerBackend(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend {
		b, err := OpenBadger(BadgerConfig{InMemory: true})
		if err != nil {
			t.Fatalf("OpenBadger failed: %v", err)
		}
		t.Cleanup(func() { _ = b.Close() })
		return b
	})
}

func TestBadgerBackendPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	_ = b.EnsureSheet(ctx, "Drives", testHeader)
	_ = b.AppendRows(ctx, "Drives", [][]string{{"1", "Beach", "upcoming"}})
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err = OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer b.Close()

	rows, err := b.ReadRows(ctx, "Drives")
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "Beach" {
		t.Errorf("Expected persisted row, got %v", rows)
	}
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	if _, err := OpenBadger(BadgerConfig{}); err == nil {
		t.Error("Expected error for empty path")
	}
}
