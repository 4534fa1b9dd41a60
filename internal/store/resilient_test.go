// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// flakyBackend fails the first failures calls of every operation.
type flakyBackend struct {
	*MemoryBackend
	failures int
	err      error
	calls    map[string]int
}

func newFlakyBackend(failures int, err error) *flakyBackend {
	return &flakyBackend{MemoryBackend: NewMemoryBackend(), failures: failures, err: err, calls: map[string]int{}}
}

func (f *flakyBackend) fail(op string) error {
	f.calls[op]++
	if f.calls[op] <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyBackend) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	if err := f.fail("read"); err != nil {
		return nil, err
	}
	return f.MemoryBackend.ReadRows(ctx, sheet)
}

func (f *flakyBackend) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	if err := f.fail("append"); err != nil {
		return err
	}
	return f.MemoryBackend.AppendRows(ctx, sheet, rows)
}

func (f *flakyBackend) DeleteRows(ctx context.Context, sheet string, start, end int) error {
	if err := f.fail("delete"); err != nil {
		return err
	}
	return f.MemoryBackend.DeleteRows(ctx, sheet, start, end)
}

func testResilience() ResilienceConfig {
	return ResilienceConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestResilientRetriesReads(t *testing.T) {
	ctx := context.Background()
	flaky := newFlakyBackend(2, errors.New("503 backend unavailable"))
	_ = flaky.MemoryBackend.EnsureSheet(ctx, "Drives", testHeader)

	r := NewResilientBackend(flaky, testResilience())
	rows, err := r.ReadRows(ctx, "Drives")
	if err != nil {
		t.Fatalf("Expected read to succeed after retries, got %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected header row, got %v", rows)
	}
	if flaky.calls["read"] != 3 {
		t.Errorf("Expected 3 read attempts, got %d", flaky.calls["read"])
	}
}

func TestResilientDoesNotRetryWrites(t *testing.T) {
	ctx := context.Background()
	flaky := newFlakyBackend(1, errors.New("timeout"))
	_ = flaky.MemoryBackend.EnsureSheet(ctx, "Drives", testHeader)

	r := NewResilientBackend(flaky, testResilience())
	if err := r.AppendRows(ctx, "Drives", [][]string{{"1"}}); err == nil {
		t.Error("Expected append failure to surface")
	}
	if flaky.calls["append"] != 1 {
		t.Errorf("Expected a single append attempt, got %d", flaky.calls["append"])
	}
	if err := r.DeleteRows(ctx, "Drives", 1, 2); err == nil {
		t.Error("Expected delete failure to surface")
	}
	if flaky.calls["delete"] != 1 {
		t.Errorf("Expected a single delete attempt, got %d", flaky.calls["delete"])
	}
}

func TestResilientSheetNotFoundIsPermanent(t *testing.T) {
	flaky := newFlakyBackend(0, nil)
	r := NewResilientBackend(flaky, testResilience())

	_, err := r.ReadRows(context.Background(), "Missing")
	if !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("Expected ErrSheetNotFound, got %v", err)
	}
	if flaky.calls["read"] != 1 {
		t.Errorf("Expected no retries for a missing sheet, got %d attempts", flaky.calls["read"])
	}
}

func TestResilientBreakerOpens(t *testing.T) {
	ctx := context.Background()
	flaky := newFlakyBackend(1000, errors.New("connection refused"))
	_ = flaky.MemoryBackend.EnsureSheet(ctx, "Drives", testHeader)

	r := NewResilientBackend(flaky, testResilience())
	for i := 0; i < 10; i++ {
		_ = r.AppendRows(ctx, "Drives", [][]string{{"x"}})
	}
	if r.State() != "open" {
		t.Fatalf("Expected breaker to open after 10 failures, got %s", r.State())
	}

	err := r.AppendRows(ctx, "Drives", [][]string{{"x"}})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState, got %v", err)
	}
	if flaky.calls["append"] != 10 {
		t.Errorf("Expected open breaker to skip the backend, got %d calls", flaky.calls["append"])
	}
}

func TestResilientHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResilientBackend(NewMemoryBackend(), ResilienceConfig{RequestsPerMinute: 1, Burst: 1})
	// Drain the single token so Wait must block on the cancelled context.
	r.limiter.Allow()
	if err := r.AppendRows(ctx, "Drives", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestA1(t *testing.T) {
	if got := a1("Drives", "A1:Z1"); got != "'Drives'!A1:Z1" {
		t.Errorf("Unexpected range %q", got)
	}
	if got := a1("Tom's", ""); got != "'Tom''s'" {
		t.Errorf("Expected quote escaping, got %q", got)
	}
}
