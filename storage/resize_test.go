package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var box = Transformation{Crop: "limit", Width: 500, Height: 500}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "inside box", w: 300, h: 200, wantW: 300, wantH: 200},
		{name: "wide", w: 1000, h: 500, wantW: 500, wantH: 250},
		{name: "tall", w: 400, h: 2000, wantW: 100, wantH: 500},
		{name: "square", w: 1500, h: 1500, wantW: 500, wantH: 500},
		{name: "thin strip", w: 5000, h: 2, wantW: 500, wantH: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitWithin(tt.w, tt.h, 500, 500)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestLimitImageShrinksLargeJPEG(t *testing.T) {
	out, ct, err := limitImage(context.Background(), bytes.NewReader(encodeJPEG(t, 1200, 600)), "image/jpeg", box)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 500, cfg.Width)
	assert.Equal(t, 250, cfg.Height)
}

func TestLimitImageKeepsSmallImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 64))))
	in := buf.Bytes()

	out, ct, err := limitImage(context.Background(), bytes.NewReader(in), "image/png", box)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, in, out)
}

func TestLimitImagePassesSVGThrough(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="4000" height="4000"></svg>`
	out, ct, err := limitImage(context.Background(), strings.NewReader(svg), "image/svg+xml", box)
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", ct)
	assert.Equal(t, svg, string(out))
}

func TestLimitImageRejectsUndecodable(t *testing.T) {
	_, _, err := limitImage(context.Background(), strings.NewReader("not an image"), "image/png", box)
	assert.Error(t, err)
}

// pngDeclaring encodes a tiny PNG and rewrites its IHDR to claim w x h pixels.
func pngDeclaring(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	require.Equal(t, "IHDR", string(data[12:16]))

	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestLimitImageRejectsHugeDimensions(t *testing.T) {
	data := pngDeclaring(t, 20000, 20000)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 20000, cfg.Width)

	_, _, err = limitImage(context.Background(), bytes.NewReader(data), "image/png", box)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestLimitImageHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := limitImage(ctx, bytes.NewReader(encodeJPEG(t, 1200, 600)), "image/jpeg", box)
	assert.ErrorIs(t, err, context.Canceled)
}
