// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging prepares post image uploads before they are forwarded to
// the API: format check, EXIF auto-orientation and downscaling.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/socialfeed/internal/model"
)

// Supported image MIME types.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultMaxDimension = 1920
	DefaultMaxBytes     = 5 << 20
	DefaultMaxPixels    = 40_000_000
	DefaultQuality      = 85
)

var (
	// ErrTooLarge is returned when an upload exceeds Config.MaxBytes.
	ErrTooLarge = errors.New("image is too large")
	// ErrTooManyPixels is returned when the header declares more than
	// Config.MaxPixels pixels. It wraps ErrTooLarge.
	ErrTooManyPixels = fmt.Errorf("%w: too many pixels", ErrTooLarge)
	// ErrUnsupportedFormat is returned for anything but JPEG, PNG, GIF and WebP.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Config controls upload processing.
type Config struct {
	// MaxWidth and MaxHeight bound the output; larger images are scaled
	// down keeping their aspect ratio.
	MaxWidth  int
	MaxHeight int
	// MaxBytes is the largest accepted upload.
	MaxBytes int64
	// MaxPixels bounds width*height as declared by the image header. A
	// small file can claim dimensions that would not fit in memory once
	// decoded.
	MaxPixels int64
	// Quality is the JPEG quality of re-encoded images.
	Quality int
}

// Processor handles image processing operations using pure Go libraries.
type Processor struct {
	cfg Config
}

// NewProcessor creates a new image processor.
func NewProcessor(cfg Config) *Processor {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultMaxDimension
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = DefaultMaxDimension
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	return &Processor{cfg: cfg}
}

// MaxBytes returns the upload size limit.
func (p *Processor) MaxBytes() int64 {
	return p.cfg.MaxBytes
}

// MaxPixels returns the width*height limit.
func (p *Processor) MaxPixels() int64 {
	return p.cfg.MaxPixels
}

// Process reads an uploaded image and returns it ready for upload. Images
// that need no rotation or scaling are passed through unchanged, so GIF
// animation survives. WebP input is re-encoded as JPEG.
func (p *Processor) Process(r io.Reader, filename string) (*model.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > p.cfg.MaxBytes {
		return nil, ErrTooLarge
	}

	format := detectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > p.cfg.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	orientation := 1
	if format == "jpeg" {
		orientation = readExifOrientation(bytes.NewReader(data))
	}

	needsResize := cfg.Width > p.cfg.MaxWidth || cfg.Height > p.cfg.MaxHeight
	if !needsResize && orientation == 1 && format != "webp" {
		return &model.Upload{
			Filename:    safeFilename(filename, format),
			ContentType: formatToMimeType(format),
			Data:        data,
		}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img = applyOrientation(img, orientation)
	if needsResize {
		img = imaging.Fit(img, p.cfg.MaxWidth, p.cfg.MaxHeight, imaging.Lanczos)
	}

	if format == "webp" {
		format = "jpeg"
	}
	out, err := encodeImage(img, format, p.cfg.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &model.Upload{
		Filename:    safeFilename(filename, format),
		ContentType: formatToMimeType(format),
		Data:        out,
	}, nil
}

// IsImage checks if a MIME type represents an image that can be processed.
func IsImage(mimeType string) bool {
	switch mimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	default:
		return false
	}
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies EXIF orientation transformation to an image.
// 2 flip H, 3 rotate 180, 4 flip V, 5 transpose, 6 rotate 90 CW,
// 7 transverse, 8 rotate 90 CCW.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// TIFF is rejected outright (CVE-2023-36308 in disintegration/imaging).
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

func formatToMimeType(format string) string {
	switch format {
	case "png":
		return MimeTypePNG
	case "gif":
		return MimeTypeGIF
	case "webp":
		return MimeTypeWebP
	default:
		return MimeTypeJPEG
	}
}
