// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// FingerprintLength is the number of hex characters kept from the digest.
const FingerprintLength = 16

// Fingerprint returns a short deterministic token for payload.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}

// FingerprintValue serializes v and fingerprints the result. Struct fields
// keep declaration order and map keys are sorted, so structurally equal
// values give equal fingerprints.
func FingerprintValue(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal fingerprint payload: %w", err)
	}
	return Fingerprint(data), nil
}

// FormatETag quotes a fingerprint for the ETag header.
func FormatETag(fingerprint string) string {
	return `"` + fingerprint + `"`
}

// MatchesETag reports whether an If-None-Match header value matches fingerprint.
// Weak comparison is used, as required for If-None-Match.
func MatchesETag(ifNoneMatch, fingerprint string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" || fingerprint == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		candidate = strings.Trim(candidate, `"`)
		if candidate == fingerprint {
			return true
		}
	}
	return false
}
