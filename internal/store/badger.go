// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/saveearthride/internal/logging"
)

const sheetKeyPrefix = "sheet:"

// BadgerConfig configures the embedded backend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// BadgerBackend stores each sheet as one JSON-encoded value keyed by sheet name.
// Sheets are small (hundreds of rows) so whole-sheet transactions keep the
// row index semantics identical to the spreadsheet.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger database.
func OpenBadger(cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Badger sheet store opened")
	return &BadgerBackend{db: db}, nil
}

// Name implements Backend.
func (b *BadgerBackend) Name() string { return "badger" }

func sheetKey(sheet string) []byte {
	return []byte(sheetKeyPrefix + sheet)
}

func readSheet(txn *badger.Txn, sheet string) ([][]string, error) {
	item, err := txn.Get(sheetKey(sheet))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	if err != nil {
		return nil, fmt.Errorf("get sheet %q: %w", sheet, err)
	}

	var rows [][]string
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("decode sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func writeSheet(txn *badger.Txn, sheet string, rows [][]string) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode sheet %q: %w", sheet, err)
	}
	return txn.SetEntry(badger.NewEntry(sheetKey(sheet), data))
}

// modify runs fn over the current rows of sheet and writes back the result.
func (b *BadgerBackend) modify(ctx context.Context, sheet string, fn func([][]string) ([][]string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		rows, err := readSheet(txn, sheet)
		if err != nil {
			return err
		}
		rows, err = fn(rows)
		if err != nil {
			return err
		}
		return writeSheet(txn, sheet, rows)
	})
}

// EnsureSheet implements Backend.
func (b *BadgerBackend) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		rows, err := readSheet(txn, sheet)
		if err != nil && !errors.Is(err, ErrSheetNotFound) {
			return err
		}
		return writeSheet(txn, sheet, withHeader(rows, header))
	})
}

// ReadRows implements Backend.
func (b *BadgerBackend) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows [][]string
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rows, err = readSheet(txn, sheet)
		return err
	})
	return rows, err
}

// AppendRows implements Backend.
func (b *BadgerBackend) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	return b.modify(ctx, sheet, func(existing [][]string) ([][]string, error) {
		return append(existing, rows...), nil
	})
}

// UpdateRows implements Backend.
func (b *BadgerBackend) UpdateRows(ctx context.Context, sheet string, rows map[int][]string) error {
	return b.modify(ctx, sheet, func(existing [][]string) ([][]string, error) {
		return applyUpdates(sheet, existing, rows)
	})
}

// DeleteRows implements Backend.
func (b *BadgerBackend) DeleteRows(ctx context.Context, sheet string, start, end int) error {
	return b.modify(ctx, sheet, func(existing [][]string) ([][]string, error) {
		if err := checkRange(sheet, start, end, len(existing)); err != nil {
			return nil, err
		}
		return append(existing[:start:start], existing[end:]...), nil
	})
}

// Ping implements Backend.
func (b *BadgerBackend) Ping(context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
