// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package cache provides the bounded response cache that sits in front of the
spreadsheet backend.

# Overview

ResponseCache stores serialized GET responses keyed by method and full URL.
Each entry carries:
  - the payload bytes exactly as they are written to the client
  - the time it was stored, used for TTL expiry and capacity eviction
  - a content fingerprint used as the HTTP ETag
  - a per-entry hit counter

# Expiry and Eviction

An entry is fresh while now - StoredAt <= TTL (30s by default). Stale entries
are dropped lazily on Get and in bulk by Sweep, which the supervisor runs on
a fixed interval. When the cache holds MaxEntries (100 by default) the entry
with the oldest StoredAt is evicted before a new key is inserted. Entries
live in a doubly-linked list ordered by StoredAt so eviction is O(1).

# Invalidation

InvalidateAll drops every entry and bumps a generation counter. Loads that
started before the invalidation are not written back, so a slow backend read
can never repopulate the cache with pre-write data.

# Coalescing

GetOrLoad runs at most one loader per key and generation at a time using
golang.org/x/sync/singleflight; concurrent misses share the result.

# Conditional Requests

Fingerprint returns the first 16 hex characters of the SHA-256 of the payload.
FormatETag and MatchesETag implement the If-None-Match comparison rules
(strong or weak validators, comma separated lists and "*").

# Thread Safety

All ResponseCache methods are safe for concurrent use.
*/
package cache
