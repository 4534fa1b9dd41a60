// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package ratelimit implements per-client sliding-window request limiting.

# Algorithm

Each client is identified by ClientIP and owns an ordered list of request
timestamps. On every request:

 1. windowStart = now - Window
 2. timestamps at or before windowStart are discarded
 3. if the remaining count is >= MaxRequests the request is rejected
 4. otherwise now is appended and Remaining = MaxRequests - count

The defaults are 50 requests per 60 second window. Rejected requests are
answered with 429 and a Retry-After header equal to the window length.

# Stores

MemoryStore keeps the timestamps in process behind a single mutex and is the
default. RedisStore runs the same algorithm as a Lua script over one sorted
set per client so several API instances share a budget.

# Sweeping

Clients that stop sending requests would otherwise stay in memory forever.
Sweep removes every client whose newest timestamp is older than twice the
window; the supervisor runs it every SweepInterval (5 minutes by default).
Redis keys carry a PEXPIRE of twice the window and need no sweep.
*/
package ratelimit
