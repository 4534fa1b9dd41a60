// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/saveearthride/internal/cache"
	"github.com/tomtom215/saveearthride/internal/drives"
	"github.com/tomtom215/saveearthride/internal/events"
	"github.com/tomtom215/saveearthride/internal/imaging"
	"github.com/tomtom215/saveearthride/internal/middleware"
	"github.com/tomtom215/saveearthride/internal/ratelimit"
	"github.com/tomtom215/saveearthride/internal/store"
)

// recordingPublisher captures published changes.
type recordingPublisher struct {
	mu      sync.Mutex
	changes []events.Change
}

func (p *recordingPublisher) Publish(_ context.Context, c events.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.changes))
	for i, c := range p.changes {
		out[i] = c.Type
	}
	return out
}

// failingDeletes is a backend whose DeleteRows always fails.
type failingDeletes struct {
	store.Backend
}

func (failingDeletes) DeleteRows(context.Context, string, int, int) error {
	return errors.New("quota exceeded")
}

type testServer struct {
	handler   http.Handler
	cache     *cache.ResponseCache
	perf      *middleware.PerformanceMonitor
	published *recordingPublisher
}

func newTestServer(t *testing.T, backend store.Backend) *testServer {
	t.Helper()
	if backend == nil {
		backend = store.NewMemoryBackend()
	}

	respCache := cache.New(cache.DefaultConfig())
	pub := &recordingPublisher{}
	perf := middleware.NewPerformanceMonitor(100)
	h := NewHandler(Deps{
		Drives:  drives.NewService(backend),
		Cache:   respCache,
		Limiter: ratelimit.New(ratelimit.DefaultConfig(), nil),
		Images:  imaging.NewProcessor(imaging.DefaultOptions()),
		PerfMon: perf,
		Events:  pub,
		Version: "test",
	})

	return &testServer{
		handler:   NewRouter(h, nil).SetupChi(),
		cache:     respCache,
		perf:      perf,
		published: pub,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

var validDrive = map[string]interface{}{
	"title":        "Test Ride",
	"location":     "X",
	"date":         "2025-01-01",
	"organizer":    "Y",
	"contactEmail": "y@z.com",
}

func TestDriveCRUDRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/drives", validDrive, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created drives.Drive
	decodeBody(t, w, &created)
	if created.ID == "" {
		t.Fatal("Expected generated id")
	}

	w = s.do(t, http.MethodGet, "/api/drives?id="+created.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var fetched drives.Drive
	decodeBody(t, w, &fetched)
	if fetched.Title != "Test Ride" || fetched.Location != "X" || fetched.Date != "2025-01-01" ||
		fetched.Organizer != "Y" || fetched.ContactEmail != "y@z.com" {
		t.Errorf("Expected the created fields back, got %+v", fetched)
	}
	if fetched.Status != drives.StatusUpcoming || !fetched.RegistrationOpen {
		t.Errorf("Expected defaults upcoming/open, got %s/%v", fetched.Status, fetched.RegistrationOpen)
	}

	w = s.do(t, http.MethodDelete, "/api/drives?id="+created.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on delete, got %d: %s", w.Code, w.Body.String())
	}
	var del deleteResponse
	decodeBody(t, w, &del)
	if !del.Success || del.ID != created.ID {
		t.Errorf("Unexpected delete response %+v", del)
	}

	w = s.do(t, http.MethodGet, "/api/drives?id="+created.ID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}

	want := []events.Type{events.TypeDriveCreated, events.TypeDriveDeleted}
	got := s.published.types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected events %v, got %v", want, got)
	}
}

func TestCreateDriveListsAllMissingFields(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/drives", map[string]string{"title": "Only a title"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Code != ErrCodeValidation {
		t.Errorf("Expected code %s, got %s", ErrCodeValidation, resp.Code)
	}
	want := "Missing required fields: location, date, organizer, contactEmail"
	if resp.Error != want {
		t.Errorf("Expected %q, got %q", want, resp.Error)
	}
	if resp.RequestID == "" {
		t.Error("Expected request id in error response")
	}
}

func TestCreateDriveRejectsBadFormats(t *testing.T) {
	s := newTestServer(t, nil)

	body := map[string]interface{}{}
	for k, v := range validDrive {
		body[k] = v
	}
	body["date"] = "01/02/2025"
	body["contactEmail"] = "not-an-email"

	w := s.do(t, http.MethodPost, "/api/drives", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if !strings.Contains(resp.Error, "date") || !strings.Contains(resp.Error, "contactEmail") {
		t.Errorf("Expected both format problems reported, got %q", resp.Error)
	}
}

func TestCreateDriveMalformedJSON(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/drives", "{not json", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestUpdateDrivePartial(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/drives", validDrive, nil)
	var created drives.Drive
	decodeBody(t, w, &created)

	w = s.do(t, http.MethodPut, "/api/drives", map[string]interface{}{"id": created.ID, "contactEmail": "bad"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid email, got %d", w.Code)
	}

	w = s.do(t, http.MethodPut, "/api/drives", map[string]interface{}{"id": created.ID, "title": "  Renamed  ", "participants": "12"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated drives.Drive
	decodeBody(t, w, &updated)
	if updated.Title != "Renamed" {
		t.Errorf("Expected trimmed title, got %q", updated.Title)
	}
	if updated.Participants != 12 {
		t.Errorf("Expected participants 12, got %d", updated.Participants)
	}
	if updated.Location != "X" {
		t.Errorf("Expected untouched location, got %q", updated.Location)
	}
}

func TestUpdateDriveErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"missing id", map[string]interface{}{"title": "x"}, http.StatusBadRequest},
		{"unknown id", map[string]interface{}{"id": "nope", "title": "x"}, http.StatusNotFound},
		{"no fields", map[string]interface{}{"id": "nope"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPut, "/api/drives", tt.body, nil)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteDriveErrors(t *testing.T) {
	s := newTestServer(t, nil)

	if w := s.do(t, http.MethodDelete, "/api/drives", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without id, got %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/drives?id=missing", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown id, got %d", w.Code)
	}
}

func TestDeleteDriveBackendFailure(t *testing.T) {
	s := newTestServer(t, failingDeletes{Backend: store.NewMemoryBackend()})

	w := s.do(t, http.MethodPost, "/api/drives", validDrive, nil)
	var created drives.Drive
	decodeBody(t, w, &created)

	w = s.do(t, http.MethodDelete, "/api/drives?id="+created.ID, nil, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Code != ErrCodeBackend || !strings.Contains(resp.Error, "quota exceeded") {
		t.Errorf("Expected backend error with cause, got %+v", resp)
	}
}

func TestListCacheHitsCountedOnce(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/drives", validDrive, nil)

	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, s.do(t, http.MethodGet, "/api/drives", nil, nil).Header().Get("X-Cache"))
	}
	if strings.Join(got, ",") != "MISS,HIT,HIT" {
		t.Fatalf("Expected MISS,HIT,HIT, got %v", got)
	}

	if hits := s.cache.Hits(); hits != 2 {
		t.Errorf("Expected 2 cache hits, got %d", hits)
	}
	if perfHits := s.perf.Snapshot().CacheHits; perfHits != s.cache.Hits() {
		t.Errorf("Expected performance cache hits %d to equal cache hits %d", perfHits, s.cache.Hits())
	}

	// A hit is counted before the X-Performance header is rendered.
	header := s.do(t, http.MethodGet, "/api/drives", nil, nil).Header().Get("X-Performance")
	if !strings.Contains(header, "cacheHits=3") {
		t.Errorf("Expected cacheHits=3 in X-Performance, got %q", header)
	}
}

func TestListCachingAndConditionalGet(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/drives", validDrive, nil)

	first := s.do(t, http.MethodGet, "/api/drives", nil, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", first.Code)
	}
	if got := first.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("Expected MISS on first read, got %q", got)
	}
	if got := first.Header().Get("Cache-Control"); got != "public, max-age=30, stale-while-revalidate=60" {
		t.Errorf("Unexpected Cache-Control %q", got)
	}
	if !strings.HasPrefix(first.Header().Get("X-Performance"), "requests=") {
		t.Errorf("Expected X-Performance header on list, got %q", first.Header().Get("X-Performance"))
	}
	etag := first.Header().Get("ETag")
	if len(etag) != 18 {
		t.Fatalf("Expected quoted 16 character ETag, got %q", etag)
	}

	second := s.do(t, http.MethodGet, "/api/drives", nil, nil)
	if got := second.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("Expected HIT on second read, got %q", got)
	}
	if second.Body.String() != first.Body.String() {
		t.Error("Expected identical cached payload")
	}

	notModified := s.do(t, http.MethodGet, "/api/drives", nil, map[string]string{"If-None-Match": etag})
	if notModified.Code != http.StatusNotModified {
		t.Errorf("Expected status 304, got %d", notModified.Code)
	}
	if notModified.Body.Len() != 0 {
		t.Errorf("Expected empty 304 body, got %q", notModified.Body.String())
	}
}

func TestMutationInvalidatesCache(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(t, http.MethodGet, "/api/drives", nil, nil)
	if s.cache.Len() != 1 {
		t.Fatalf("Expected list to be cached, got %d entries", s.cache.Len())
	}

	s.do(t, http.MethodPost, "/api/drives", validDrive, nil)
	if s.cache.Len() != 0 {
		t.Errorf("Expected cache to be empty after create, got %d entries", s.cache.Len())
	}

	w := s.do(t, http.MethodGet, "/api/drives", nil, nil)
	if got := w.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("Expected MISS after invalidation, got %q", got)
	}
	var list []drives.Drive
	decodeBody(t, w, &list)
	if len(list) != 1 {
		t.Errorf("Expected the new drive in a fresh read, got %d drives", len(list))
	}
}

func TestListPagination(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 3; i++ {
		s.do(t, http.MethodPost, "/api/drives", validDrive, nil)
	}

	w := s.do(t, http.MethodGet, "/api/drives?limit=2&offset=0", nil, nil)
	var page drives.Page
	decodeBody(t, w, &page)
	if len(page.Data) != 2 || page.Pagination == nil {
		t.Fatalf("Expected a page of 2 with pagination, got %+v", page)
	}
	if page.Pagination.Total != 3 || !page.Pagination.HasMore {
		t.Errorf("Expected total 3 with more, got %+v", page.Pagination)
	}

	if w := s.do(t, http.MethodGet, "/api/drives?limit=abc", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a non-numeric limit, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/drives?offset=-1", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a negative offset, got %d", w.Code)
	}
}

func TestGetByIDHasNoPerformanceHeader(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/drives", validDrive, nil)
	var created drives.Drive
	decodeBody(t, w, &created)

	w = s.do(t, http.MethodGet, "/api/drives?id="+created.ID, nil, nil)
	if w.Header().Get("X-Performance") != "" {
		t.Error("Expected no X-Performance header on single drive reads")
	}
}

func TestRateLimitRejectsAfterBudget(t *testing.T) {
	s := newTestServer(t, nil)
	headers := map[string]string{"CF-Connecting-IP": "203.0.113.9"}

	for i := 0; i < ratelimit.DefaultMaxRequests; i++ {
		if w := s.do(t, http.MethodGet, "/api/drives", nil, headers); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status 200, got %d", i+1, w.Code)
		}
	}

	w := s.do(t, http.MethodGet, "/api/drives", nil, headers)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Expected Retry-After 60, got %q", got)
	}

	other := s.do(t, http.MethodGet, "/api/drives", nil, map[string]string{"CF-Connecting-IP": "203.0.113.10"})
	if other.Code != http.StatusOK {
		t.Errorf("Expected a different client to pass, got %d", other.Code)
	}

	preflight := s.do(t, http.MethodOptions, "/api/drives", nil, headers)
	if preflight.Code != http.StatusOK {
		t.Errorf("Expected OPTIONS to bypass the limiter, got %d", preflight.Code)
	}
}

func TestOptionsPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodOptions, "/api/drives", nil, map[string]string{
		"Origin":                        "https://saveearthride.example",
		"Access-Control-Request-Method": "PATCH",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET,POST,PUT,DELETE,PATCH,OPTIONS" {
		t.Errorf("Unexpected Allow-Methods %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "86400" {
		t.Errorf("Expected Max-Age 86400, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("Expected Access-Control-Allow-Origin to be set")
	}
}

func TestBulkOperations(t *testing.T) {
	s := newTestServer(t, nil)

	var ids []string
	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/api/drives", validDrive, nil)
		var d drives.Drive
		decodeBody(t, w, &d)
		ids = append(ids, d.ID)
	}

	w := s.do(t, http.MethodPatch, "/api/drives", map[string]interface{}{
		"operation": OpBulkUpdateStatus,
		"data":      map[string]interface{}{"ids": append(ids, "ghost"), "status": "completed"},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var res bulkResponse
	decodeBody(t, w, &res)
	if res.Updated != 2 || len(res.Failed) != 1 || res.Failed[0].ID != "ghost" {
		t.Errorf("Expected 2 updated and ghost failed, got %+v", res.BulkResult)
	}

	w = s.do(t, http.MethodGet, "/api/drives?status=completed", nil, nil)
	var list []drives.Drive
	decodeBody(t, w, &list)
	if len(list) != 2 {
		t.Errorf("Expected 2 completed drives, got %d", len(list))
	}

	w = s.do(t, http.MethodPatch, "/api/drives", map[string]interface{}{
		"operation": OpBulkUpdateFields,
		"data": map[string]interface{}{"updates": []map[string]interface{}{
			{"id": ids[0], "fields": map[string]interface{}{"location": "Park"}},
		}},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/drives?id="+ids[0], nil, nil)
	var d drives.Drive
	decodeBody(t, w, &d)
	if d.Location != "Park" {
		t.Errorf("Expected location Park, got %q", d.Location)
	}
}

func TestBulkOperationValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"unknown operation", map[string]interface{}{"operation": "explode"}, http.StatusBadRequest},
		{"missing operation", map[string]interface{}{}, http.StatusBadRequest},
		{"status without ids", map[string]interface{}{"operation": OpBulkUpdateStatus, "data": map[string]interface{}{"status": "completed"}}, http.StatusBadRequest},
		{"bad status", map[string]interface{}{"operation": OpBulkUpdateStatus, "data": map[string]interface{}{"ids": []string{"a"}, "status": "paused"}}, http.StatusBadRequest},
		{"fields without updates", map[string]interface{}{"operation": OpBulkUpdateFields}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPatch, "/api/drives", tt.body, nil)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestBulkAdminOperations(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/api/drives", nil, nil)

	w := s.do(t, http.MethodPatch, "/api/drives", map[string]string{"operation": OpClearCache}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var cleared operationResponse
	decodeBody(t, w, &cleared)
	if cleared.Cleared == nil || *cleared.Cleared != 1 {
		t.Errorf("Expected 1 cleared entry, got %+v", cleared)
	}

	w = s.do(t, http.MethodPatch, "/api/drives", map[string]string{"operation": OpInitializeSheet}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for initialize_sheet, got %d", w.Code)
	}

	w = s.do(t, http.MethodPatch, "/api/drives", map[string]string{"operation": OpGetStats}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var stats StatsResponse
	decodeBody(t, w, &stats)
	if stats.Performance.TotalRequests == 0 {
		t.Error("Expected performance counters in stats")
	}
	if stats.RateLimit.MaxRequests != ratelimit.DefaultMaxRequests {
		t.Errorf("Expected rate limit budget %d, got %d", ratelimit.DefaultMaxRequests, stats.RateLimit.MaxRequests)
	}
	if stats.Cache.MaxEntries != cache.DefaultMaxEntries {
		t.Errorf("Expected cache capacity %d, got %d", cache.DefaultMaxEntries, stats.Cache.MaxEntries)
	}

	types := s.published.types()
	if len(types) != 2 || types[0] != events.TypeCacheCleared || types[1] != events.TypeInitialized {
		t.Errorf("Expected cache.cleared then drives.initialized events, got %v", types)
	}
}

func TestBulkRateLimit(t *testing.T) {
	s := newTestServer(t, nil)
	headers := map[string]string{"CF-Connecting-IP": "192.0.2.44"}
	body := map[string]string{"operation": OpGetStats}

	for i := 0; i < 10; i++ {
		if w := s.do(t, http.MethodPatch, "/api/drives", body, headers); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status 200, got %d", i+1, w.Code)
		}
	}
	w := s.do(t, http.MethodPatch, "/api/drives", body, headers)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected bulk operations to be throttled, got %d", w.Code)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: 200, B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartDrive(t *testing.T, fields map[string]interface{}, fileType string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v.(string)); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="logo"; filename="logo.png"`)
	hdr.Set("Content-Type", fileType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(file); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestCreateDriveWithLogo(t *testing.T) {
	s := newTestServer(t, nil)

	body, contentType := multipartDrive(t, validDrive, "image/png", pngBytes(t, 64, 48))
	req := httptest.NewRequest(http.MethodPost, "/api/drives", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		drives.Drive
		ImageProcessing *imaging.Result `json:"imageProcessing"`
	}
	decodeBody(t, w, &resp)
	if !strings.HasPrefix(resp.Logo, "data:image/jpeg;base64,") {
		t.Errorf("Expected JPEG data URI logo, got prefix %q", resp.Logo[:min(len(resp.Logo), 30)])
	}
	if resp.ImageProcessing == nil || !resp.ImageProcessing.IsValid {
		t.Fatalf("Expected image processing metadata, got %+v", resp.ImageProcessing)
	}
	if resp.ImageProcessing.CompressedSize != len(resp.Logo) {
		t.Errorf("Expected compressed size %d, got %d", len(resp.Logo), resp.ImageProcessing.CompressedSize)
	}
}

func TestCreateDriveRejectsNonImageLogo(t *testing.T) {
	s := newTestServer(t, nil)

	body, contentType := multipartDrive(t, validDrive, "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/drives", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Code != ErrCodeImageProcessing {
		t.Errorf("Expected code %s, got %s", ErrCodeImageProcessing, resp.Code)
	}

	list := s.do(t, http.MethodGet, "/api/drives", nil, nil)
	var drivesList []drives.Drive
	decodeBody(t, list, &drivesList)
	if len(drivesList) != 0 {
		t.Errorf("Expected nothing persisted, got %d drives", len(drivesList))
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for /health, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/health/ready", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for /health/ready, got %d", w.Code)
	}
	var status HealthStatus
	decodeBody(t, w, &status)
	if status.Status != "ready" || status.Version != "test" {
		t.Errorf("Unexpected readiness %+v", status)
	}
}

func TestUnknownRoutesAndMethods(t *testing.T) {
	s := newTestServer(t, nil)

	if w := s.do(t, http.MethodGet, "/nope", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w := s.do(t, http.MethodHead, "/api/drives", nil, nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestRecovererReturnsJSON(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Code != ErrCodeInternal {
		t.Errorf("Expected code %s, got %s", ErrCodeInternal, resp.Code)
	}
}
