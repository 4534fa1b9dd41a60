// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the current change schema version.
const SchemaVersion = 1

// Topic carries every drive change.
const Topic = "drives.changes"

// Type identifies what changed.
type Type string

const (
	TypeDriveCreated Type = "drive.created"
	TypeDriveUpdated Type = "drive.updated"
	TypeDriveDeleted Type = "drive.deleted"
	TypeBulkUpdated  Type = "drives.bulk_updated"
	TypeInitialized  Type = "drives.initialized"
	TypeCacheCleared Type = "cache.cleared"
)

// Change describes one mutation.
type Change struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	Type          Type      `json:"type"`
	DriveIDs      []string  `json:"drive_ids,omitempty"`
	Operation     string    `json:"operation,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewChange creates a change with a fresh event id.
func NewChange(t Type, driveIDs ...string) Change {
	return Change{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		Type:          t,
		DriveIDs:      driveIDs,
		OccurredAt:    time.Now().UTC(),
	}
}

// Validate checks required fields.
func (c Change) Validate() error {
	if c.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	return nil
}

// Marshal encodes the change as JSON.
func (c Change) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal decodes and validates a JSON change.
func Unmarshal(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Change{}, fmt.Errorf("invalid change: %w", err)
	}
	return c, nil
}
