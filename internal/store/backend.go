// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSheetNotFound is returned when the named sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrRowOutOfRange is returned for row indexes outside the sheet.
	ErrRowOutOfRange = errors.New("row index out of range")
)

// Backend is a row-oriented spreadsheet store.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// EnsureSheet creates the sheet if needed and writes header when row 0 is empty.
	EnsureSheet(ctx context.Context, sheet string, header []string) error

	// ReadRows returns every row including the header.
	ReadRows(ctx context.Context, sheet string) ([][]string, error)

	// AppendRows adds rows after the last non-empty row.
	AppendRows(ctx context.Context, sheet string, rows [][]string) error

	// UpdateRows overwrites rows keyed by index.
	UpdateRows(ctx context.Context, sheet string, rows map[int][]string) error

	// DeleteRows removes rows in [start, end) and shifts later rows up.
	DeleteRows(ctx context.Context, sheet string, start, end int) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

func checkRange(sheet string, start, end, size int) error {
	if start < 1 || end <= start || end > size {
		return fmt.Errorf("%w: [%d, %d) in %q with %d rows", ErrRowOutOfRange, start, end, sheet, size)
	}
	return nil
}

func cloneRow(row []string) []string {
	out := make([]string, len(row))
	copy(out, row)
	return out
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = cloneRow(r)
	}
	return out
}

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Backend = (*BadgerBackend)(nil)
	_ Backend = (*SheetsBackend)(nil)
	_ Backend = (*ResilientBackend)(nil)
)
