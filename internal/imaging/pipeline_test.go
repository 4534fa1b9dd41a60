// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"testing"
	"time"
)

// gradientPNG encodes a smooth image; it compresses well so large
// dimensions still fit under the upload ceiling.
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: 120, B: uint8(y * 255 / h), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// noisePNG encodes random pixels; JPEG cannot shrink it much.
func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessResizesLongSide(t *testing.T) {
	data := gradientPNG(t, 1600, 400)
	if float64(len(data))*Base64Expansion > 50_000 {
		t.Skipf("fixture too large for the default ceiling (%d bytes)", len(data))
	}

	p := NewProcessor(DefaultOptions())
	res := p.Process(context.Background(), Upload{Filename: "logo.png", MIMEType: "image/png", Data: data})

	if !res.IsValid {
		t.Fatalf("Expected valid result, got error %q", res.Error)
	}
	if res.Width != 800 || res.Height != 200 {
		t.Errorf("Expected 800x200 after resize, got %dx%d", res.Width, res.Height)
	}
	if !strings.HasPrefix(res.DataURI, "data:image/jpeg;base64,") {
		t.Errorf("Expected JPEG data URI, got prefix %q", res.DataURI[:min(30, len(res.DataURI))])
	}
	if res.CompressedSize != len(res.DataURI) {
		t.Errorf("Expected compressed size %d, got %d", len(res.DataURI), res.CompressedSize)
	}
	if res.CompressedSize > 35_000 {
		t.Errorf("Expected data URI within the 35000 byte target, got %d", res.CompressedSize)
	}
	if res.Quality != 0.8 || res.Passes != 1 {
		t.Errorf("Expected first pass at quality 0.8 to fit, got quality %.1f after %d passes", res.Quality, res.Passes)
	}
	if len(res.Fingerprint) != 16 {
		t.Errorf("Expected 16 character fingerprint, got %q", res.Fingerprint)
	}
}

func TestProcessKeepsSmallImages(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	res := p.Process(context.Background(), Upload{Filename: "a.png", MIMEType: "image/png", Data: gradientPNG(t, 300, 200)})

	if !res.IsValid {
		t.Fatalf("Expected valid result, got %q", res.Error)
	}
	if res.Width != 300 || res.Height != 200 {
		t.Errorf("Expected dimensions to be kept, got %dx%d", res.Width, res.Height)
	}
}

func TestProcessReachesQualityFloor(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetBytes = 500 // unreachable for a noisy image

	p := NewProcessor(opts)
	res := p.Process(context.Background(), Upload{Filename: "noise.png", MIMEType: "image/png", Data: noisePNG(t, 64, 64)})

	if !res.IsValid {
		t.Fatalf("Expected floor result to stay valid, got %q", res.Error)
	}
	if res.Quality != 0.1 {
		t.Errorf("Expected quality floor 0.1, got %.2f", res.Quality)
	}
	if res.Passes != 8 {
		t.Errorf("Expected 8 passes from 0.8 down to 0.1, got %d", res.Passes)
	}
}

func TestProcessRejections(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	tests := []struct {
		name    string
		upload  Upload
		wantErr string
	}{
		{
			name:    "non image mime",
			upload:  Upload{Filename: "doc.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")},
			wantErr: "invalid file type",
		},
		{
			name:    "oversize before decode",
			upload:  Upload{Filename: "big.png", MIMEType: "image/png", Data: make([]byte, 40_000)},
			wantErr: "image too large",
		},
		{
			name:    "undecodable bytes",
			upload:  Upload{Filename: "bad.png", MIMEType: "image/png", Data: []byte("not really a png")},
			wantErr: "failed to read image",
		},
		{
			name:    "empty",
			upload:  Upload{Filename: "empty.png", MIMEType: "image/png"},
			wantErr: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Process(context.Background(), tt.upload)
			if res.IsValid {
				t.Fatal("Expected invalid result")
			}
			if !strings.Contains(res.Error, tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, res.Error)
			}
			if res.DataURI != "" {
				t.Error("Expected no payload on failure")
			}
		})
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewProcessor(DefaultOptions()).Process(ctx, Upload{Filename: "a.png", MIMEType: "image/png", Data: gradientPNG(t, 50, 50)})
	if res.IsValid || !strings.Contains(res.Error, "cancelled") {
		t.Errorf("Expected cancellation error, got valid=%v error=%q", res.IsValid, res.Error)
	}
}

func TestFingerprintIncludesTimestamp(t *testing.T) {
	data := gradientPNG(t, 40, 40)
	p := NewProcessor(DefaultOptions())

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }
	first := p.Process(context.Background(), Upload{Filename: "a.png", MIMEType: "image/png", Data: data})
	again := p.Process(context.Background(), Upload{Filename: "a.png", MIMEType: "image/png", Data: data})

	p.now = func() time.Time { return base.Add(time.Second) }
	later := p.Process(context.Background(), Upload{Filename: "a.png", MIMEType: "image/png", Data: data})

	if first.Fingerprint != again.Fingerprint {
		t.Error("Expected identical uploads at the same instant to share a fingerprint")
	}
	if first.Fingerprint == later.Fingerprint {
		t.Error("Expected re-upload at a different time to get a new fingerprint")
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{1600, 1200, 800, 800, 600},
		{600, 1200, 800, 400, 800},
		{1000, 1000, 800, 800, 800},
		{5000, 1, 800, 800, 1},
	}
	for _, tt := range tests {
		w, h := scaledSize(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("scaledSize(%d, %d, %d) = %dx%d, expected %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestCompressionRatio(t *testing.T) {
	if got := compressionRatio(1000, 250); got != 75 {
		t.Errorf("Expected 75, got %v", got)
	}
	if got := compressionRatio(1000, 1500); got != 0 {
		t.Errorf("Expected ratio floored at 0, got %v", got)
	}
	if got := compressionRatio(0, 10); got != 0 {
		t.Errorf("Expected 0 for empty original, got %v", got)
	}
}
