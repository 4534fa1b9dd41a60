// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package drives

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Status is the lifecycle state of a drive.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// statusTag is the validator expression for a status value.
const statusTag = "oneof=upcoming ongoing completed cancelled"

// Drive is a tree-planting drive.
type Drive struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	Date             string `json:"date"`
	Participants     int    `json:"participants"`
	TreesTarget      int    `json:"treesTarget"`
	Status           Status `json:"status"`
	RegistrationOpen bool   `json:"registrationOpen"`
	Organizer        string `json:"organizer"`
	ContactEmail     string `json:"contactEmail"`
	Logo             string `json:"logo,omitempty"`
	Description      string `json:"description,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

// Count is a non-negative integer that accepts JSON numbers or numeric
// strings. Anything unparseable becomes zero.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*c = clampCount(int64(x))
	case string:
		*c = ParseCount(x)
	default:
		*c = 0
	}
	return nil
}

// ParseCount reads the leading integer of s, so "12 people" is 12.
// Negative or missing numbers yield zero.
func ParseCount(s string) Count {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return clampCount(n)
}

func clampCount(n int64) Count {
	if n < 0 {
		return 0
	}
	if n > int64(^uint32(0)>>1) {
		return Count(^uint32(0) >> 1)
	}
	return Count(n)
}

// ParseBool reads form and sheet booleans. Empty input returns def.
func ParseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// Input is the payload for creating a drive.
type Input struct {
	Title            string `json:"title" validate:"required"`
	Location         string `json:"location" validate:"required"`
	Date             string `json:"date" validate:"required,isodate"`
	Participants     Count  `json:"participants"`
	TreesTarget      Count  `json:"treesTarget"`
	Status           Status `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	RegistrationOpen *bool  `json:"registrationOpen"`
	Organizer        string `json:"organizer" validate:"required"`
	ContactEmail     string `json:"contactEmail" validate:"required,email"`
	Logo             string `json:"logo"`
	Description      string `json:"description"`
}

func (in *Input) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Date = strings.TrimSpace(in.Date)
	in.Status = Status(strings.ToLower(strings.TrimSpace(string(in.Status))))
	in.Organizer = strings.TrimSpace(in.Organizer)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.Logo = strings.TrimSpace(in.Logo)
	in.Description = strings.TrimSpace(in.Description)
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title            *string `json:"title,omitempty"`
	Location         *string `json:"location,omitempty"`
	Date             *string `json:"date,omitempty"`
	Participants     *Count  `json:"participants,omitempty"`
	TreesTarget      *Count  `json:"treesTarget,omitempty"`
	Status           *Status `json:"status,omitempty"`
	RegistrationOpen *bool   `json:"registrationOpen,omitempty"`
	Organizer        *string `json:"organizer,omitempty"`
	ContactEmail     *string `json:"contactEmail,omitempty"`
	Logo             *string `json:"logo,omitempty"`
	Description      *string `json:"description,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func (p *Patch) trim() {
	trimPtr(p.Title)
	trimPtr(p.Location)
	trimPtr(p.Date)
	trimPtr(p.Organizer)
	trimPtr(p.ContactEmail)
	trimPtr(p.Logo)
	trimPtr(p.Description)
	if p.Status != nil {
		s := Status(strings.ToLower(strings.TrimSpace(string(*p.Status))))
		p.Status = &s
	}
}

func (p Patch) apply(d *Drive) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Location != nil {
		d.Location = *p.Location
	}
	if p.Date != nil {
		d.Date = *p.Date
	}
	if p.Participants != nil {
		d.Participants = int(*p.Participants)
	}
	if p.TreesTarget != nil {
		d.TreesTarget = int(*p.TreesTarget)
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.RegistrationOpen != nil {
		d.RegistrationOpen = *p.RegistrationOpen
	}
	if p.Organizer != nil {
		d.Organizer = *p.Organizer
	}
	if p.ContactEmail != nil {
		d.ContactEmail = *p.ContactEmail
	}
	if p.Logo != nil {
		d.Logo = *p.Logo
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
}
