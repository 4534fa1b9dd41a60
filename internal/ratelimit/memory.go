// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps request timestamps in process.
type MemoryStore struct {
	mu      sync.Mutex
	clients map[string][]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clients: make(map[string][]time.Time)}
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, client string, now time.Time, window time.Duration, limit int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := prune(s.clients[client], now.Add(-window))
	count := len(stamps)
	if count >= limit {
		s.clients[client] = stamps
		return false, count, nil
	}

	s.clients[client] = append(stamps, now)
	return true, count, nil
}

// Sweep implements Store.
func (s *MemoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for client, stamps := range s.clients {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(s.clients, client)
			removed++
		}
	}
	return removed, nil
}

// Clients implements Store.
func (s *MemoryStore) Clients(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients), nil
}

// prune drops timestamps at or before windowStart. stamps is sorted ascending.
// The surviving tail is copied so the old backing array can be collected.
func prune(stamps []time.Time, windowStart time.Time) []time.Time {
	i := sort.Search(len(stamps), func(i int) bool {
		return stamps[i].After(windowStart)
	})
	if i == 0 {
		return stamps
	}
	kept := make([]time.Time, len(stamps)-i, len(stamps)-i+1)
	copy(kept, stamps[i:])
	return kept
}
