package images

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	DefaultWidth   = 1200
	MaxWidth       = 3840
	DefaultQuality = 75
	maxSourceBytes = 10 << 20

	// MaxPixels bounds the decoded size of a source image. A few hundred
	// kilobytes of PNG can describe gigabytes of pixels.
	MaxPixels = 40_000_000
)

var ErrImageTooLarge = errors.New("image dimensions too large")

type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	ETag        string
}

// Optimize decodes data, scales it down to maxWidth keeping the aspect
// ratio, and re-encodes it as JPEG. Images are never upscaled.
func Optimize(data []byte, maxWidth, quality int) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	if maxWidth <= 0 {
		maxWidth = DefaultWidth
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := img
	if w > maxWidth {
		h = h * maxWidth / w
		if h < 1 {
			h = 1
		}
		w = maxWidth
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return &Result{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       w,
		Height:      h,
		ETag:        `"` + hex.EncodeToString(sum[:16]) + `"`,
	}, nil
}
