// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/saveearthride/internal/logging"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// respondJSON encodes v and writes it with status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error","code":"INTERNAL_ERROR"}`))
		return
	}
	respondRaw(w, status, data)
}

// respondRaw writes an already encoded JSON payload.
func respondRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError writes the error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	respondJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// logErr starts an error event bound to the request's logger.
func logErr(r *http.Request, err error) *zerolog.Event {
	return logging.CtxErr(r.Context(), err).
		Str("method", r.Method).
		Str("path", r.URL.Path)
}
