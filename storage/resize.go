package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxDecodePixels bounds the raster size limitImage is willing to decode.
const maxDecodePixels = 40_000_000

// ErrImageTooLarge is returned for rasters whose header declares more than
// maxDecodePixels pixels.
var ErrImageTooLarge = errors.New("image dimensions too large")

// fitWithin returns the largest size with the same aspect ratio that fits in maxW x maxH.
// Images already inside the box keep their size.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if (maxW <= 0 || w <= maxW) && (maxH <= 0 || h <= maxH) {
		return w, h
	}
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && float64(h)*scale > float64(maxH) {
		scale = float64(maxH) / float64(h)
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// limitImage applies a "limit" transformation to a raster image: images larger than
// the box are scaled down, everything else is returned unchanged. SVG is vector and
// passes through. WebP cannot be re-encoded, so a shrunk WebP is written as PNG.
// The returned content type reflects the encoding actually produced.
func limitImage(ctx context.Context, r io.Reader, contentType string, t Transformation) ([]byte, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	if contentType == "image/svg+xml" || (t.Width <= 0 && t.Height <= 0) {
		return raw, contentType, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxDecodePixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	nw, nh := fitWithin(cfg.Width, cfg.Height, t.Width, t.Height)
	if nw == cfg.Width && nh == cfg.Height {
		return raw, contentType, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	switch contentType {
	case "image/jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	default:
		contentType = "image/png"
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), contentType, nil
}
