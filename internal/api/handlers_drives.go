// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/saveearthride/internal/cache"
	"github.com/tomtom215/saveearthride/internal/drives"
	"github.com/tomtom215/saveearthride/internal/events"
	"github.com/tomtom215/saveearthride/internal/imaging"
	"github.com/tomtom215/saveearthride/internal/logging"
)

// driveResponse is a drive plus the logo processing report, when a logo
// was uploaded with the request.
type driveResponse struct {
	drives.Drive
	ImageProcessing *imaging.Result `json:"imageProcessing,omitempty"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// cacheControl renders the Cache-Control header for cached reads.
func cacheControl(ttl time.Duration) string {
	secs := int(ttl.Seconds())
	return fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", secs, 2*secs)
}

// GetDrives handles GET /api/drives.
//
// With ?id= it returns one drive; otherwise the list, filtered by ?status=
// and paginated by ?limit=&offset=. Responses are served from the response
// cache and carry an ETag; a matching If-None-Match yields 304.
func (h *Handler) GetDrives(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))

	query, verr := parseListQuery(q)
	if verr != nil {
		writeServiceError(w, r, "list drives", verr)
		return
	}

	// The load is shared with concurrent callers, so it must not be cut
	// short when this particular client disconnects.
	ctx := context.WithoutCancel(r.Context())
	key := cache.Key(r.Method, r.URL.RequestURI())

	entry, hit, err := h.cache.GetOrLoad(key, func() ([]byte, error) {
		if id != "" {
			d, err := h.drives.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			return json.Marshal(d)
		}

		page, err := h.drives.List(ctx, query)
		if err != nil {
			return nil, err
		}
		if query.Paginated() {
			return json.Marshal(page)
		}
		return json.Marshal(page.Data)
	})
	if err != nil {
		action := "fetch drives"
		if id != "" {
			action = "fetch drive"
		}
		writeServiceError(w, r, action, err)
		return
	}

	hdr := w.Header()
	if hit {
		h.perfMon.RecordCacheHit()
		hdr.Set("X-Cache", "HIT")
	} else {
		hdr.Set("X-Cache", "MISS")
	}
	hdr.Set("ETag", cache.FormatETag(entry.Fingerprint))
	hdr.Set("Cache-Control", cacheControl(h.cache.TTL()))
	if id == "" {
		hdr.Set("X-Performance", h.perfMon.Snapshot().HeaderValue())
	}

	if cache.MatchesETag(r.Header.Get("If-None-Match"), entry.Fingerprint) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	respondRaw(w, http.StatusOK, entry.Payload)
}

// CreateDrive handles POST /api/drives with a JSON body or a multipart form
// whose optional "logo" part is an image file.
func (h *Handler) CreateDrive(w http.ResponseWriter, r *http.Request) {
	var (
		in     drives.Input
		upload *imaging.Upload
	)
	if isMultipart(r) {
		form, up, err := parseForm(w, r)
		if err != nil {
			writeBodyError(w, r, err)
			return
		}
		in, upload = inputFromForm(form), up
	} else if err := decodeJSON(w, r, &in); err != nil {
		writeBodyError(w, r, err)
		return
	}

	img, ok := h.processLogo(w, r, upload)
	if !ok {
		return
	}
	if img != nil {
		in.Logo = img.DataURI
	}

	d, err := h.drives.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "create drive", err)
		return
	}

	h.afterMutation(r.Context(), events.NewChange(events.TypeDriveCreated, d.ID))
	respondJSON(w, http.StatusCreated, driveResponse{Drive: d, ImageProcessing: img})
}

// UpdateDrive handles PUT /api/drives. Only the fields present in the body
// are validated and changed.
func (h *Handler) UpdateDrive(w http.ResponseWriter, r *http.Request) {
	var (
		req    updateRequest
		upload *imaging.Upload
	)
	if isMultipart(r) {
		form, up, err := parseForm(w, r)
		if err != nil {
			writeBodyError(w, r, err)
			return
		}
		req.ID, req.Patch, upload = form.Get("id"), patchFromForm(form), up
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		writeServiceError(w, r, "update drive", drives.ErrMissingID)
		return
	}

	img, ok := h.processLogo(w, r, upload)
	if !ok {
		return
	}
	if img != nil {
		req.Patch.Logo = &img.DataURI
	}
	if req.Patch.Empty() {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "No fields to update", nil)
		return
	}

	d, err := h.drives.Update(r.Context(), req.ID, req.Patch)
	if err != nil {
		writeServiceError(w, r, "update drive", err)
		return
	}

	h.afterMutation(r.Context(), events.NewChange(events.TypeDriveUpdated, d.ID))
	respondJSON(w, http.StatusOK, driveResponse{Drive: d, ImageProcessing: img})
}

// DeleteDrive handles DELETE /api/drives?id=.
func (h *Handler) DeleteDrive(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))

	if err := h.drives.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete drive", err)
		return
	}

	h.afterMutation(r.Context(), events.NewChange(events.TypeDriveDeleted, id))
	respondJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		ID:      id,
		Message: "Drive deleted successfully",
	})
}

// processLogo runs an upload through the image pipeline. It writes a 400
// and returns false when the image is rejected. A nil upload is a no-op.
func (h *Handler) processLogo(w http.ResponseWriter, r *http.Request, upload *imaging.Upload) (*imaging.Result, bool) {
	if upload == nil {
		return nil, true
	}

	res := h.images.Process(r.Context(), *upload)
	if !res.IsValid {
		logging.Ctx(r.Context()).Warn().
			Str("filename", upload.Filename).
			Int("size", len(upload.Data)).
			Str("reason", res.Error).
			Msg("Logo upload rejected")
		respondError(w, r, http.StatusBadRequest, ErrCodeImageProcessing, res.Error, nil)
		return nil, false
	}

	logging.Ctx(r.Context()).Debug().
		Str("fingerprint", res.Fingerprint).
		Int("original_size", res.OriginalSize).
		Int("compressed_size", res.CompressedSize).
		Float64("quality", res.Quality).
		Msg("Logo processed")
	return &res, true
}
