// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/saveearthride/internal/cache"
	"github.com/tomtom215/saveearthride/internal/drives"
	"github.com/tomtom215/saveearthride/internal/events"
	"github.com/tomtom215/saveearthride/internal/middleware"
	"github.com/tomtom215/saveearthride/internal/ratelimit"
)

// Bulk operations accepted by PATCH /api/drives.
const (
	OpBulkUpdateStatus = "bulk_update_status"
	OpBulkUpdateFields = "bulk_update_fields"
	OpInitializeSheet  = "initialize_sheet"
	OpClearCache       = "clear_cache"
	OpGetStats         = "get_stats"
)

type bulkResponse struct {
	Success   bool   `json:"success"`
	Operation string `json:"operation"`
	drives.BulkResult
}

type operationResponse struct {
	Success   bool   `json:"success"`
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Cleared   *int   `json:"cleared,omitempty"`
}

// StatsResponse is the body of the get_stats operation.
type StatsResponse struct {
	Performance  middleware.Snapshot `json:"performance"`
	Cache        cache.Stats         `json:"cache"`
	RateLimit    ratelimit.Stats     `json:"rateLimit"`
	BackendState string              `json:"backendState,omitempty"`
	Version      string              `json:"version"`
	Timestamp    time.Time           `json:"timestamp"`
}

// BulkDrives handles PATCH /api/drives. The body is {"operation": ..., "data": ...}.
func (h *Handler) BulkDrives(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	op := strings.TrimSpace(req.Operation)
	switch op {
	case OpBulkUpdateStatus:
		var data bulkStatusData
		if err := decodeData(req.Data, &data); err != nil {
			writeBodyError(w, r, err)
			return
		}
		res, err := h.drives.BulkUpdateStatus(r.Context(), data.IDs, data.Status)
		h.writeBulkResult(w, r, op, res, err)

	case OpBulkUpdateFields:
		var data bulkFieldsData
		if err := decodeData(req.Data, &data); err != nil {
			writeBodyError(w, r, err)
			return
		}
		res, err := h.drives.BulkUpdateFields(r.Context(), data.Updates)
		h.writeBulkResult(w, r, op, res, err)

	case OpInitializeSheet:
		if err := h.drives.Initialize(r.Context()); err != nil {
			writeServiceError(w, r, "initialize sheet", err)
			return
		}
		h.afterMutation(r.Context(), withOperation(events.NewChange(events.TypeInitialized), op))
		respondJSON(w, http.StatusOK, operationResponse{
			Success:   true,
			Operation: op,
			Message:   "Drives sheet initialized",
		})

	case OpClearCache:
		cleared := h.cache.InvalidateAll()
		h.publish(r.Context(), withOperation(events.NewChange(events.TypeCacheCleared), op))
		respondJSON(w, http.StatusOK, operationResponse{
			Success:   true,
			Operation: op,
			Message:   fmt.Sprintf("Cleared %d cached responses", cleared),
			Cleared:   &cleared,
		})

	case OpGetStats:
		respondJSON(w, http.StatusOK, h.stats(r))

	case "":
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "operation is required", nil)

	default:
		writeServiceError(w, r, op, fmt.Errorf("%w: %s", drives.ErrUnknownOperation, op))
	}
}

func (h *Handler) writeBulkResult(w http.ResponseWriter, r *http.Request, op string, res drives.BulkResult, err error) {
	if err != nil {
		writeServiceError(w, r, strings.ReplaceAll(op, "_", " "), err)
		return
	}

	h.afterMutation(r.Context(), withOperation(events.NewChange(events.TypeBulkUpdated, res.IDs...), op))
	respondJSON(w, http.StatusOK, bulkResponse{
		Success:    true,
		Operation:  op,
		BulkResult: res,
	})
}

func (h *Handler) stats(r *http.Request) StatsResponse {
	s := StatsResponse{
		Performance: h.perfMon.Snapshot(),
		Cache:       h.cache.Stats(),
		RateLimit:   h.limiter.Stats(r.Context()),
		Version:     h.version,
		Timestamp:   time.Now().UTC(),
	}
	if h.backend != nil {
		s.BackendState = h.backend.State()
	}
	return s
}

func withOperation(c events.Change, op string) events.Change {
	c.Operation = op
	return c
}
