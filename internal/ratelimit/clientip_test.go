// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package ratelimit

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "cdn header wins",
			headers:    map[string]string{"CF-Connecting-IP": "203.0.113.1", "X-Forwarded-For": "198.51.100.1", "X-Real-IP": "192.0.2.1"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "first forwarded-for entry",
			headers:    map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.2, 10.0.0.3"},
			remoteAddr: "10.0.0.1:1234",
			want:       "198.51.100.1",
		},
		{
			name:       "real ip",
			headers:    map[string]string{"X-Real-IP": "192.0.2.1"},
			remoteAddr: "10.0.0.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "remote addr that is not host:port",
			remoteAddr: "pipe",
			want:       "pipe",
		},
		{
			name: "unknown",
			want: UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/drives", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
