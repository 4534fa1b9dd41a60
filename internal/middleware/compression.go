// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// MinCompressSize is the smallest body worth compressing.
const MinCompressSize = 1024

// gzipWriterPool pools gzip writers to reduce allocations
var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// gzipResponseWriter buffers the first MinCompressSize bytes and only
// switches to gzip once the body is known to be large enough. Bodiless
// statuses are never compressed.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz      *gzip.Writer
	status  int
	buf     []byte
	decided bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.decided || w.status != 0 {
		return
	}
	w.status = status
	if !bodyAllowed(status) {
		w.decide(false)
	}
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.decided {
		if w.gz != nil {
			return w.gz.Write(b)
		}
		return w.ResponseWriter.Write(b)
	}

	w.buf = append(w.buf, b...)
	if len(w.buf) < MinCompressSize {
		return len(b), nil
	}
	if err := w.decide(true); err != nil {
		return 0, err
	}
	return len(b), nil
}

// decide commits headers and flushes the buffered bytes.
func (w *gzipResponseWriter) decide(compress bool) error {
	w.decided = true
	h := w.ResponseWriter.Header()
	if compress && h.Get("Content-Encoding") == "" {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length") // Length will be different after compression
		w.gz = gzipWriterPool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
	}
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.ResponseWriter.WriteHeader(w.status)

	if len(w.buf) == 0 {
		return nil
	}
	var err error
	if w.gz != nil {
		_, err = w.gz.Write(w.buf)
	} else {
		_, err = w.ResponseWriter.Write(w.buf)
	}
	w.buf = nil
	return err
}

// close flushes small bodies uncompressed and finishes the gzip stream.
func (w *gzipResponseWriter) close() {
	if !w.decided {
		if w.status == 0 && len(w.buf) == 0 {
			return // handler wrote nothing; let net/http send its default
		}
		_ = w.decide(false)
	}
	if w.gz != nil {
		_ = w.gz.Close() // best-effort, response already sent
		gzipWriterPool.Put(w.gz)
		w.gz = nil
	}
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// Compression middleware adds gzip compression to responses larger than
// MinCompressSize. HEAD requests and 204/304 responses pass through.
func Compression(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		// Check if client accepts gzip
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || r.Method == http.MethodHead {
			next(w, r)
			return
		}

		gzw := &gzipResponseWriter{ResponseWriter: w}
		defer gzw.close()
		next(gzw, r)
	}
}
