// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/saveearthride/internal/drives"
	"github.com/tomtom215/saveearthride/internal/validation"
)

// Error codes carried in the "code" field of error responses.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeImageProcessing = "IMAGE_PROCESSING_ERROR"
	ErrCodeBackend         = "BACKEND_ERROR"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeMethodNotAllow  = "METHOD_NOT_ALLOWED"
)

var (
	// errInvalidBody is returned when a request body cannot be decoded.
	errInvalidBody = errors.New("invalid request body")

	// errBodyTooLarge is returned when a request body exceeds maxBodyBytes.
	errBodyTooLarge = errors.New("request body too large")
)

// writeServiceError maps a drives.Service error to a response. action names
// the failed operation in backend error messages, e.g. "delete drive".
func writeServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
	case errors.Is(err, drives.ErrMissingID):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Drive ID is required", nil)
	case errors.Is(err, drives.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Drive not found", nil)
	case errors.Is(err, drives.ErrUnknownOperation):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
	default:
		logErr(r, err).Str("action", action).Msg("Backend operation failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeBackend, "Failed to "+action+": "+err.Error(), nil)
	}
}
