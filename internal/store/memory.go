// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend keeps sheets in process memory.
type MemoryBackend struct {
	mu     sync.RWMutex
	sheets map[string][][]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sheets: make(map[string][][]string)}
}

// Name implements Backend.
func (m *MemoryBackend) Name() string { return "memory" }

// EnsureSheet implements Backend.
func (m *MemoryBackend) EnsureSheet(_ context.Context, sheet string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sheets[sheet] = withHeader(m.sheets[sheet], header)
	return nil
}

// ReadRows implements Backend.
func (m *MemoryBackend) ReadRows(_ context.Context, sheet string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	return cloneRows(rows), nil
}

// AppendRows implements Backend.
func (m *MemoryBackend) AppendRows(_ context.Context, sheet string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	m.sheets[sheet] = append(existing, cloneRows(rows)...)
	return nil
}

// UpdateRows implements Backend.
func (m *MemoryBackend) UpdateRows(_ context.Context, sheet string, rows map[int][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	updated, err := applyUpdates(sheet, existing, rows)
	if err != nil {
		return err
	}
	m.sheets[sheet] = updated
	return nil
}

// DeleteRows implements Backend.
func (m *MemoryBackend) DeleteRows(_ context.Context, sheet string, start, end int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	if err := checkRange(sheet, start, end, len(existing)); err != nil {
		return err
	}
	m.sheets[sheet] = append(existing[:start:start], existing[end:]...)
	return nil
}

// Ping implements Backend.
func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }

// withHeader returns rows with header in row 0 when row 0 is missing or blank.
func withHeader(rows [][]string, header []string) [][]string {
	if len(rows) == 0 {
		return [][]string{cloneRow(header)}
	}
	if isBlank(rows[0]) {
		rows[0] = cloneRow(header)
	}
	return rows
}

// applyUpdates overwrites rows in place. Row 0 is the header and cannot be updated.
func applyUpdates(sheet string, rows [][]string, updates map[int][]string) ([][]string, error) {
	for idx := range updates {
		if idx < 1 || idx >= len(rows) {
			return nil, fmt.Errorf("%w: row %d in %q with %d rows", ErrRowOutOfRange, idx, sheet, len(rows))
		}
	}
	for idx, row := range updates {
		rows[idx] = cloneRow(row)
	}
	return rows, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
