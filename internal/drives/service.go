// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package drives

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/saveearthride/internal/logging"
	"github.com/tomtom215/saveearthride/internal/metrics"
	"github.com/tomtom215/saveearthride/internal/store"
	"github.com/tomtom215/saveearthride/internal/validation"
)

var (
	// ErrNotFound is returned when no drive has the requested id.
	ErrNotFound = errors.New("drive not found")

	// ErrMissingID is returned when an operation needs an id and none was given.
	ErrMissingID = errors.New("drive id is required")

	// ErrUnknownOperation is returned for an unrecognised bulk operation.
	ErrUnknownOperation = errors.New("unknown operation")
)

// timestampLayout matches JavaScript's Date.toISOString, which existing
// sheets already contain.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Query selects drives for List.
type Query struct {
	Status   Status
	Limit    int
	Offset   int
	SkipInit bool
}

// Paginated reports whether the caller asked for a page.
func (q Query) Paginated() bool {
	return q.Limit > 0 || q.Offset > 0
}

// Pagination describes a page of results.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// Page is the result of List. Pagination is nil for unpaginated queries.
type Page struct {
	Data       []Drive     `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// FieldUpdate is one entry of a bulk field update.
type FieldUpdate struct {
	ID     string `json:"id"`
	Fields Patch  `json:"fields"`
}

// BulkFailure reports a bulk entry that was not applied.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult summarises a bulk write.
type BulkResult struct {
	Updated int           `json:"updated"`
	IDs     []string      `json:"ids"`
	Failed  []BulkFailure `json:"failed"`
}

// Service implements drive CRUD against a spreadsheet backend.
type Service struct {
	backend store.Backend
	now     func() time.Time
	newID   func() string

	// writeMu serialises read-modify-write cycles so row indexes stay valid.
	writeMu sync.Mutex

	initMu      sync.Mutex
	initialized bool
}

// NewService creates a drive service.
func NewService(backend store.Backend) *Service {
	return &Service{
		backend: backend,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// Initialize creates the sheet and header row if they are missing. It is
// safe to call repeatedly.
func (s *Service) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if err := s.backend.EnsureSheet(ctx, SheetName, Header); err != nil {
		return fmt.Errorf("initialize %s sheet: %w", SheetName, err)
	}
	s.initialized = true
	logging.Ctx(ctx).Info().Str("sheet", SheetName).Str("backend", s.backend.Name()).Msg("Drives sheet initialized")
	return nil
}

// ensureInitialized runs Initialize once per process. Failures are not
// remembered, so the next call retries.
func (s *Service) ensureInitialized(ctx context.Context) error {
	s.initMu.Lock()
	done := s.initialized
	s.initMu.Unlock()
	if done {
		return nil
	}
	return s.Initialize(ctx)
}

func (s *Service) load(ctx context.Context) (sheet, error) {
	rows, err := s.backend.ReadRows(ctx, SheetName)
	if err != nil {
		return sheet{}, fmt.Errorf("read drives: %w", err)
	}
	return parseSheet(rows), nil
}

// List returns drives, optionally filtered by status and paginated.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	if !q.SkipInit {
		if err := s.ensureInitialized(ctx); err != nil {
			return Page{}, err
		}
	}

	sh, err := s.load(ctx)
	if err != nil {
		if q.SkipInit && errors.Is(err, store.ErrSheetNotFound) {
			sh = parseSheet(nil)
		} else {
			return Page{}, err
		}
	}

	status := Status(strings.ToLower(strings.TrimSpace(string(q.Status))))
	all := make([]Drive, 0, len(sh.records))
	for _, r := range sh.records {
		if status == "" || r.drive.Status == status {
			all = append(all, r.drive)
		}
	}

	if !q.Paginated() {
		return Page{Data: all}, nil
	}

	total := len(all)
	offset := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(offset+q.Limit, total)
	}
	return Page{
		Data: all[offset:end],
		Pagination: &Pagination{
			Total:   total,
			Limit:   q.Limit,
			Offset:  offset,
			HasMore: end < total,
		},
	}, nil
}

// Get returns the drive with id.
func (s *Service) Get(ctx context.Context, id string) (Drive, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Drive{}, ErrMissingID
	}
	if err := s.ensureInitialized(ctx); err != nil {
		return Drive{}, err
	}

	sh, err := s.load(ctx)
	if err != nil {
		return Drive{}, err
	}
	r, ok := sh.find(id)
	if !ok {
		return Drive{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.drive, nil
}

// Create validates in and appends a new drive.
func (s *Service) Create(ctx context.Context, in Input) (Drive, error) {
	in.trim()
	if verr := validation.ValidateStruct(&in); verr != nil {
		return Drive{}, verr
	}
	if err := s.ensureInitialized(ctx); err != nil {
		return Drive{}, err
	}

	now := s.timestamp()
	d := Drive{
		ID:               s.newID(),
		Title:            in.Title,
		Location:         in.Location,
		Date:             in.Date,
		Participants:     int(in.Participants),
		TreesTarget:      int(in.TreesTarget),
		Status:           in.Status,
		RegistrationOpen: true,
		Organizer:        in.Organizer,
		ContactEmail:     in.ContactEmail,
		Logo:             in.Logo,
		Description:      in.Description,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if d.Status == "" {
		d.Status = StatusUpcoming
	}
	if in.RegistrationOpen != nil {
		d.RegistrationOpen = *in.RegistrationOpen
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sh, err := s.load(ctx)
	if err != nil {
		return Drive{}, err
	}
	if err := s.backend.AppendRows(ctx, SheetName, [][]string{sh.cols.encode(d, nil)}); err != nil {
		return Drive{}, fmt.Errorf("append drive: %w", err)
	}

	metrics.DriveMutations.WithLabelValues("create").Inc()
	logging.Ctx(ctx).Info().Str("drive_id", d.ID).Str("title", d.Title).Msg("Drive created")
	return d, nil
}

// validatePatch checks only the fields present in p.
func validatePatch(p Patch) *validation.RequestValidationError {
	var checks []validation.FieldCheck
	add := func(field string, v *string, tag string) {
		if v != nil {
			checks = append(checks, validation.FieldCheck{Field: field, Value: *v, Tag: tag})
		}
	}
	add("title", p.Title, "required")
	add("location", p.Location, "required")
	add("date", p.Date, "required,isodate")
	add("organizer", p.Organizer, "required")
	add("contactEmail", p.ContactEmail, "required,email")
	if p.Status != nil {
		checks = append(checks, validation.FieldCheck{Field: "status", Value: string(*p.Status), Tag: "required," + statusTag})
	}
	if len(checks) == 0 {
		return nil
	}
	return validation.ValidateFields(checks...)
}

// Update applies a partial update to the drive with id.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Drive, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Drive{}, ErrMissingID
	}
	p.trim()
	if verr := validatePatch(p); verr != nil {
		return Drive{}, verr
	}
	if err := s.ensureInitialized(ctx); err != nil {
		return Drive{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sh, err := s.load(ctx)
	if err != nil {
		return Drive{}, err
	}
	r, ok := sh.find(id)
	if !ok {
		return Drive{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	d := r.drive
	p.apply(&d)
	d.UpdatedAt = s.timestamp()

	if err := s.backend.UpdateRows(ctx, SheetName, map[int][]string{r.row: sh.cols.encode(d, r.raw)}); err != nil {
		return Drive{}, fmt.Errorf("update drive %s: %w", id, err)
	}

	metrics.DriveMutations.WithLabelValues("update").Inc()
	logging.Ctx(ctx).Info().Str("drive_id", id).Msg("Drive updated")
	return d, nil
}

// Delete removes the drive with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	if err := s.ensureInitialized(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sh, err := s.load(ctx)
	if err != nil {
		return err
	}
	r, ok := sh.find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.backend.DeleteRows(ctx, SheetName, r.row, r.row+1); err != nil {
		return fmt.Errorf("delete drive %s: %w", id, err)
	}

	metrics.DriveMutations.WithLabelValues("delete").Inc()
	logging.Ctx(ctx).Info().Str("drive_id", id).Msg("Drive deleted")
	return nil
}

// BulkUpdateStatus sets status on every drive in ids. Unknown ids are
// reported in the result and do not stop the others.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status Status) (BulkResult, error) {
	status = Status(strings.ToLower(strings.TrimSpace(string(status))))
	checks := []validation.FieldCheck{
		{Field: "ids", Value: ids, Tag: "required,min=1"},
		{Field: "status", Value: string(status), Tag: "required," + statusTag},
	}
	if verr := validation.ValidateFields(checks...); verr != nil {
		return BulkResult{}, verr
	}

	updates := make([]FieldUpdate, len(ids))
	for i, id := range ids {
		updates[i] = FieldUpdate{ID: id, Fields: Patch{Status: &status}}
	}
	return s.bulkApply(ctx, "bulk_update_status", updates)
}

// BulkUpdateFields applies a separate patch to each listed drive. Entries
// that fail validation or name unknown drives are reported and skipped.
func (s *Service) BulkUpdateFields(ctx context.Context, updates []FieldUpdate) (BulkResult, error) {
	if len(updates) == 0 {
		return BulkResult{}, validation.NewRequestValidationError("updates", "required", "updates is required")
	}
	return s.bulkApply(ctx, "bulk_update_fields", updates)
}

func (s *Service) bulkApply(ctx context.Context, op string, updates []FieldUpdate) (BulkResult, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return BulkResult{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sh, err := s.load(ctx)
	if err != nil {
		return BulkResult{}, err
	}

	res := BulkResult{IDs: []string{}, Failed: []BulkFailure{}}
	now := s.timestamp()
	rows := make(map[int][]string, len(updates))
	pending := make(map[string]Drive, len(updates))

	for _, u := range updates {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			res.Failed = append(res.Failed, BulkFailure{ID: u.ID, Error: ErrMissingID.Error()})
			continue
		}
		p := u.Fields
		p.trim()
		if verr := validatePatch(p); verr != nil {
			res.Failed = append(res.Failed, BulkFailure{ID: id, Error: verr.Error()})
			continue
		}
		r, ok := sh.find(id)
		if !ok {
			res.Failed = append(res.Failed, BulkFailure{ID: id, Error: ErrNotFound.Error()})
			continue
		}

		d, seen := pending[id]
		if !seen {
			d = r.drive
		}
		p.apply(&d)
		d.UpdatedAt = now
		pending[id] = d
		rows[r.row] = sh.cols.encode(d, r.raw)
		if !seen {
			res.IDs = append(res.IDs, id)
		}
	}

	if len(rows) > 0 {
		if err := s.backend.UpdateRows(ctx, SheetName, rows); err != nil {
			return BulkResult{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	res.Updated = len(res.IDs)

	metrics.DriveMutations.WithLabelValues(op).Inc()
	logging.Ctx(ctx).Info().
		Str("operation", op).
		Int("updated", res.Updated).
		Int("failed", len(res.Failed)).
		Msg("Bulk drive update")
	return res, nil
}

// Ready reports whether the backend is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
