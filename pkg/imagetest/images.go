package imagetest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// Solid returns a w×h RGBA image filled with c.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// PNG returns the PNG encoding of a w×h solid gray image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Solid(w, h, color.RGBA{R: 128, G: 128, B: 128, A: 255})); err != nil {
		t.Fatalf("encode %dx%d png: %v", w, h, err)
	}
	return buf.Bytes()
}

// JPEG returns the JPEG encoding of a w×h solid gray image.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Solid(w, h, color.RGBA{R: 128, G: 128, B: 128, A: 255}), nil); err != nil {
		t.Fatalf("encode %dx%d jpeg: %v", w, h, err)
	}
	return buf.Bytes()
}

// Corrupt returns bytes no image decoder accepts.
func Corrupt() []byte {
	return []byte("these are not the bytes of any image format")
}

// TruncatedPNG returns a PNG cut off mid-stream: the header parses but
// the pixel data is missing.
func TruncatedPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	data := PNG(t, w, h)
	// Keep the signature and IHDR chunk, drop the rest.
	return data[:33]
}
