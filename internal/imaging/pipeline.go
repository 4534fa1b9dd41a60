// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"math"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/tomtom215/saveearthride/internal/cache"
	"github.com/tomtom215/saveearthride/internal/metrics"
)

const (
	// Base64Expansion approximates the size growth of base64 encoding.
	Base64Expansion = 1.33

	// maxPixels guards against decompression bombs.
	maxPixels = 40_000_000

	dataURIPrefix = "data:image/jpeg;base64,"

	fingerprintPreviewChars = 100
)

// Options configures the pipeline. Qualities are in the range (0, 1].
type Options struct {
	TargetBytes     int
	MaxEncodedBytes int
	MaxDimension    int
	StartQuality    float64
	QualityStep     float64
	MinQuality      float64
}

// DefaultOptions returns the limits used for drive logos.
func DefaultOptions() Options {
	return Options{
		TargetBytes:     35_000,
		MaxEncodedBytes: 50_000,
		MaxDimension:    800,
		StartQuality:    0.8,
		QualityStep:     0.1,
		MinQuality:      0.1,
	}
}

// Upload is a raw file received from a client.
type Upload struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Result describes a processed upload.
type Result struct {
	DataURI          string  `json:"-"`
	Fingerprint      string  `json:"fingerprint,omitempty"`
	OriginalSize     int     `json:"originalSize"`
	CompressedSize   int     `json:"compressedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
	Quality          float64 `json:"quality,omitempty"`
	Passes           int     `json:"passes,omitempty"`
	Width            int     `json:"width,omitempty"`
	Height           int     `json:"height,omitempty"`
	IsValid          bool    `json:"isValid"`
	Error            string  `json:"error,omitempty"`
}

// Processor runs the validation, resize and re-encode steps.
type Processor struct {
	opts Options
	now  func() time.Time
}

// NewProcessor creates a processor, filling unset options from DefaultOptions.
func NewProcessor(opts Options) *Processor {
	def := DefaultOptions()
	if opts.TargetBytes <= 0 {
		opts.TargetBytes = def.TargetBytes
	}
	if opts.MaxEncodedBytes <= 0 {
		opts.MaxEncodedBytes = def.MaxEncodedBytes
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.StartQuality <= 0 || opts.StartQuality > 1 {
		opts.StartQuality = def.StartQuality
	}
	if opts.QualityStep <= 0 {
		opts.QualityStep = def.QualityStep
	}
	if opts.MinQuality <= 0 || opts.MinQuality > opts.StartQuality {
		opts.MinQuality = def.MinQuality
	}
	return &Processor{opts: opts, now: time.Now}
}

// Options returns the effective options.
func (p *Processor) Options() Options {
	return p.opts
}

// Process validates and compresses an upload. It never returns a Go error;
// failures are reported through Result.IsValid and Result.Error.
func (p *Processor) Process(ctx context.Context, up Upload) Result {
	res, err := p.process(ctx, up)
	if err != nil {
		res.IsValid = false
		res.Error = err.Error()
		res.DataURI = ""
		metrics.RecordImageUpload(false, 0, 0)
		return res
	}
	metrics.RecordImageUpload(true, res.CompressionRatio, res.Passes)
	return res
}

func (p *Processor) process(ctx context.Context, up Upload) (Result, error) {
	res := Result{OriginalSize: len(up.Data)}

	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(up.MIMEType)), "image/") {
		return res, fmt.Errorf("invalid file type %q: only images are allowed", up.MIMEType)
	}
	if len(up.Data) == 0 {
		return res, fmt.Errorf("image file is empty")
	}
	estimated := estimateEncoded(len(up.Data))
	if estimated > float64(p.opts.MaxEncodedBytes) {
		return res, fmt.Errorf("image too large: estimated %d bytes after encoding exceeds the %d byte limit",
			int(math.Ceil(estimated)), p.opts.MaxEncodedBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(up.Data))
	if err != nil {
		return res, fmt.Errorf("failed to read image: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return res, fmt.Errorf("image dimensions %dx%d are too large", cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		return res, fmt.Errorf("failed to decode image: %w", err)
	}

	img := flatten(resize(src, p.opts.MaxDimension))
	res.Width = img.Bounds().Dx()
	res.Height = img.Bounds().Dy()

	uri, quality, passes, err := p.encode(ctx, img)
	if err != nil {
		return res, err
	}

	res.DataURI = uri
	res.Quality = quality
	res.Passes = passes
	res.CompressedSize = len(uri)
	res.CompressionRatio = compressionRatio(estimated, res.CompressedSize)

	fp, err := cache.FingerprintValue(struct {
		Filename       string `json:"filename"`
		MIMEType       string `json:"mimeType"`
		OriginalSize   int    `json:"originalSize"`
		CompressedSize int    `json:"compressedSize"`
		Timestamp      int64  `json:"timestamp"`
		Preview        string `json:"preview"`
	}{
		Filename:       up.Filename,
		MIMEType:       up.MIMEType,
		OriginalSize:   res.OriginalSize,
		CompressedSize: res.CompressedSize,
		Timestamp:      p.now().UnixMilli(),
		Preview:        uri[:min(len(uri), fingerprintPreviewChars)],
	})
	if err != nil {
		return res, err
	}
	res.Fingerprint = fp
	res.IsValid = true
	return res, nil
}

// encode re-encodes img at decreasing quality until the data URI fits the
// target size or the quality floor is reached. Qualities are tracked in
// hundredths to avoid float drift.
func (p *Processor) encode(ctx context.Context, img image.Image) (string, float64, int, error) {
	q := int(math.Round(p.opts.StartQuality * 100))
	step := max(1, int(math.Round(p.opts.QualityStep*100)))
	floor := max(1, int(math.Round(p.opts.MinQuality*100)))

	var (
		buf    bytes.Buffer
		passes int
	)
	for {
		if err := ctx.Err(); err != nil {
			return "", 0, passes, fmt.Errorf("image processing cancelled: %w", err)
		}

		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return "", 0, passes, fmt.Errorf("failed to encode image: %w", err)
		}
		passes++

		if dataURILen(buf.Len()) <= p.opts.TargetBytes || q <= floor {
			break
		}
		q = max(floor, q-step)
	}

	uri := dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
	return uri, float64(q) / 100, passes, nil
}

// resize scales src down so its longer side is at most maxDim.
func resize(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	nw, nh := scaledSize(w, h, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// scaledSize keeps the aspect ratio and pins the longer side to maxDim.
func scaledSize(w, h, maxDim int) (int, int) {
	if w >= h {
		return maxDim, max(1, int(math.Round(float64(h)*float64(maxDim)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(maxDim)/float64(h)))), maxDim
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func estimateEncoded(n int) float64 {
	return float64(n) * Base64Expansion
}

func dataURILen(rawLen int) int {
	return len(dataURIPrefix) + base64.StdEncoding.EncodedLen(rawLen)
}

func compressionRatio(estimatedOriginal float64, compressed int) float64 {
	if estimatedOriginal <= 0 {
		return 0
	}
	ratio := (estimatedOriginal - float64(compressed)) / estimatedOriginal * 100
	if ratio < 0 {
		return 0
	}
	return math.Round(ratio*100) / 100
}
