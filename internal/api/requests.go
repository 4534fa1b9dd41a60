// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/saveearthride/internal/drives"
	"github.com/tomtom215/saveearthride/internal/imaging"
	"github.com/tomtom215/saveearthride/internal/validation"
)

const (
	// maxBodyBytes bounds JSON and multipart request bodies.
	maxBodyBytes = 1 << 20

	// logoField is the multipart part carrying the drive logo.
	logoField = "logo"
)

// listRequest holds the validated query parameters of GET /api/drives.
type listRequest struct {
	Limit    int `json:"limit" validate:"min=0,max=1000"`
	Offset   int `json:"offset" validate:"min=0"`
	Status   string
	SkipInit bool
}

// parseListQuery reads ?status=&limit=&offset=&skipInit=.
func parseListQuery(q url.Values) (drives.Query, *validation.RequestValidationError) {
	req := listRequest{
		Status:   strings.TrimSpace(q.Get("status")),
		SkipInit: drives.ParseBool(q.Get("skipInit"), false),
	}

	var err error
	if req.Limit, err = intParam(q, "limit"); err != nil {
		return drives.Query{}, validation.NewRequestValidationError("limit", "numeric", "limit must be an integer")
	}
	if req.Offset, err = intParam(q, "offset"); err != nil {
		return drives.Query{}, validation.NewRequestValidationError("offset", "numeric", "offset must be an integer")
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return drives.Query{}, verr
	}

	return drives.Query{
		Status:   drives.Status(req.Status),
		Limit:    req.Limit,
		Offset:   req.Offset,
		SkipInit: req.SkipInit,
	}, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// isMultipart reports whether the request carries multipart/form-data.
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// decodeJSON decodes a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// parseForm parses a bounded multipart body and returns its text fields
// and the logo upload, if any.
func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, *imaging.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, errBodyTooLarge
		}
		return nil, nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	file, header, err := r.FormFile(logoField)
	if errors.Is(err, http.ErrMissingFile) {
		return r.PostForm, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("read logo upload: %w", err)
	}
	return r.PostForm, &imaging.Upload{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// inputFromForm maps multipart fields onto a create payload.
func inputFromForm(form url.Values) drives.Input {
	in := drives.Input{
		Title:        form.Get("title"),
		Location:     form.Get("location"),
		Date:         form.Get("date"),
		Participants: drives.ParseCount(form.Get("participants")),
		TreesTarget:  drives.ParseCount(form.Get("treesTarget")),
		Status:       drives.Status(form.Get("status")),
		Organizer:    form.Get("organizer"),
		ContactEmail: form.Get("contactEmail"),
		Logo:         form.Get(logoField),
		Description:  form.Get("description"),
	}
	if v := form.Get("registrationOpen"); strings.TrimSpace(v) != "" {
		open := drives.ParseBool(v, true)
		in.RegistrationOpen = &open
	}
	return in
}

// patchFromForm maps the multipart fields that are present onto a patch.
func patchFromForm(form url.Values) drives.Patch {
	var p drives.Patch
	str := func(name string) *string {
		if vs, ok := form[name]; ok && len(vs) > 0 {
			v := vs[0]
			return &v
		}
		return nil
	}
	count := func(name string) *drives.Count {
		if v := str(name); v != nil {
			c := drives.ParseCount(*v)
			return &c
		}
		return nil
	}

	p.Title = str("title")
	p.Location = str("location")
	p.Date = str("date")
	p.Participants = count("participants")
	p.TreesTarget = count("treesTarget")
	if v := str("status"); v != nil {
		s := drives.Status(*v)
		p.Status = &s
	}
	if v := str("registrationOpen"); v != nil {
		open := drives.ParseBool(*v, true)
		p.RegistrationOpen = &open
	}
	p.Organizer = str("organizer")
	p.ContactEmail = str("contactEmail")
	p.Logo = str(logoField)
	p.Description = str("description")
	return p
}

// updateRequest is the JSON body of PUT /api/drives.
type updateRequest struct {
	ID string `json:"id"`
	drives.Patch
}

// bulkRequest is the JSON body of PATCH /api/drives.
type bulkRequest struct {
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
}

// bulkStatusData is the data of bulk_update_status.
type bulkStatusData struct {
	IDs    []string      `json:"ids"`
	Status drives.Status `json:"status"`
}

// bulkFieldsData is the data of bulk_update_fields.
type bulkFieldsData struct {
	Updates []drives.FieldUpdate `json:"updates"`
}

// decodeData decodes an operation's data into v. Missing data leaves v zero.
func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: data: %v", errInvalidBody, err)
	}
	return nil
}

// writeBodyError answers a body decoding failure.
func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Request body too large", nil)
		return
	}
	respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
}
