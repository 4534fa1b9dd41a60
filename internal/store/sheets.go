// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/tomtom215/saveearthride/internal/logging"
)

const (
	valueInputRaw  = "RAW"
	insertRows     = "INSERT_ROWS"
	dimensionRows  = "ROWS"
	lastColumn     = "Z"
	parseRangeHint = "Unable to parse range"
)

// SheetsConfig configures the Google Sheets backend.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string

	// Endpoint overrides the API base URL (tests only).
	Endpoint string
}

// SheetsBackend talks to a single spreadsheet through the Sheets v4 API.
type SheetsBackend struct {
	srv           *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewSheetsBackend creates a backend authenticated with a service-account file.
func NewSheetsBackend(ctx context.Context, cfg SheetsConfig) (*SheetsBackend, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logging.Info().Str("spreadsheet_id", cfg.SpreadsheetID).Msg("Google Sheets backend configured")
	return &SheetsBackend{
		srv:           srv,
		spreadsheetID: cfg.SpreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// Name implements Backend.
func (s *SheetsBackend) Name() string { return "sheets" }

// a1 builds an A1 range, quoting the sheet title.
func a1(sheet, cells string) string {
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

// translateError maps API errors to package errors.
func translateError(sheet string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, parseRangeHint) {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	return err
}

// sheetID resolves the numeric id of a sheet tab, needed for row deletion.
func (s *SheetsBackend) sheetID(ctx context.Context, sheet string) (int64, error) {
	s.mu.Lock()
	id, ok := s.sheetIDs[sheet]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok = s.sheetIDs[sheet]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	return id, nil
}

// EnsureSheet implements Backend.
func (s *SheetsBackend) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	if _, err := s.sheetID(ctx, sheet); err != nil {
		if !errors.Is(err, ErrSheetNotFound) {
			return err
		}
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheet}},
			}},
		}
		resp, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheet %q: %w", sheet, err)
		}
		if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
			s.mu.Lock()
			s.sheetIDs[sheet] = resp.Replies[0].AddSheet.Properties.SheetId
			s.mu.Unlock()
		}
		logging.Info().Str("sheet", sheet).Msg("Created sheet")
	}

	first, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, a1(sheet, "A1:"+lastColumn+"1")).Context(ctx).Do()
	if err != nil {
		return translateError(sheet, err)
	}
	if len(first.Values) > 0 && !isBlank(toStrings(first.Values[0])) {
		return nil
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(header)}}
	_, err = s.srv.Spreadsheets.Values.Update(s.spreadsheetID, a1(sheet, "A1"), vr).
		ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header to %q: %w", sheet, translateError(sheet, err))
	}
	return nil
}

// ReadRows implements Backend.
func (s *SheetsBackend) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, a1(sheet, "A:"+lastColumn)).Context(ctx).Do()
	if err != nil {
		return nil, translateError(sheet, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = toStrings(r)
	}
	return rows, nil
}

// AppendRows implements Backend.
func (s *SheetsBackend) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: make([][]interface{}, len(rows))}
	for i, r := range rows {
		vr.Values[i] = toCells(r)
	}
	_, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, a1(sheet, "A:"+lastColumn), vr).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).Do()
	if err != nil {
		return translateError(sheet, err)
	}
	return nil
}

// UpdateRows implements Backend. All rows are written in one batch request.
func (s *SheetsBackend) UpdateRows(ctx context.Context, sheet string, rows map[int][]string) error {
	if len(rows) == 0 {
		return nil
	}

	idxs := make([]int, 0, len(rows))
	for idx := range rows {
		if idx < 1 {
			return fmt.Errorf("%w: row %d in %q", ErrRowOutOfRange, idx, sheet)
		}
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: valueInputRaw}
	for _, idx := range idxs {
		req.Data = append(req.Data, &sheets.ValueRange{
			Range:  a1(sheet, fmt.Sprintf("A%d", idx+1)),
			Values: [][]interface{}{toCells(rows[idx])},
		})
	}
	if _, err := s.srv.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return translateError(sheet, err)
	}
	return nil
}

// DeleteRows implements Backend.
func (s *SheetsBackend) DeleteRows(ctx context.Context, sheet string, start, end int) error {
	if start < 1 || end <= start {
		return fmt.Errorf("%w: [%d, %d) in %q", ErrRowOutOfRange, start, end, sheet)
	}
	id, err := s.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         id,
					Dimension:       dimensionRows,
					StartIndex:      int64(start),
					EndIndex:        int64(end),
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	if _, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete rows from %q: %w", sheet, err)
	}
	return nil
}

// Ping implements Backend.
func (s *SheetsBackend) Ping(ctx context.Context) error {
	_, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("ping spreadsheet: %w", err)
	}
	return nil
}

// Close implements Backend.
func (s *SheetsBackend) Close() error { return nil }

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

func toStrings(cells []interface{}) []string {
	row := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			row[i] = fmt.Sprint(c)
		}
	}
	return row
}
