// Package decode turns encoded image bytes into display-ready RGBA
// bitmaps, downsampling at decode time so a thumbnail never stays
// resident at source resolution.
//
// Supported formats: PNG, JPEG, GIF, WebP, BMP and TIFF.
package decode

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	imgerrors "github.com/go-drift/netimage/pkg/errors"
)

// Quality selects the interpolation kernel used when downsampling.
type Quality int

const (
	// QualityHigh uses Catmull-Rom interpolation. This is the zero value:
	// decoded bitmaps are cached and reused, so fidelity wins over speed.
	QualityHigh Quality = iota
	// QualityMedium uses approximate bilinear interpolation.
	QualityMedium
	// QualityLow uses nearest-neighbor interpolation.
	QualityLow
)

func (q Quality) String() string {
	switch q {
	case QualityHigh:
		return "high"
	case QualityMedium:
		return "medium"
	case QualityLow:
		return "low"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

func (q Quality) scaler() draw.Scaler {
	switch q {
	case QualityLow:
		return draw.NearestNeighbor
	case QualityMedium:
		return draw.ApproxBiLinear
	default:
		return draw.CatmullRom
	}
}

// DefaultMaxSourcePixels bounds the declared pixel count of a source
// accepted for decoding. 64 megapixels decode to 256 MiB of RGBA.
const DefaultMaxSourcePixels int64 = 64 << 20

// Options configure a decode.
type Options struct {
	// LongestEdge is the target longest edge of the decoded bitmap in
	// physical pixels. Zero or negative decodes at native resolution.
	// Decoding never upscales: a source already within LongestEdge keeps
	// its native dimensions.
	LongestEdge int

	// MaxSourcePixels rejects sources whose header declares more pixels,
	// before any pixel memory is allocated. Zero or negative applies
	// DefaultMaxSourcePixels.
	MaxSourcePixels int64

	// Quality selects the downsampling kernel. The zero value is
	// QualityHigh.
	Quality Quality
}

// Config returns the dimensions and format name declared by the encoded
// image header, without allocating pixel memory.
func Config(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", &imgerrors.Error{Op: "decode.Config", Kind: imgerrors.KindDecode, Err: err}
	}
	return cfg, format, nil
}

// Decode turns encoded bytes into an RGBA bitmap.
//
// With a positive LongestEdge the result is an aspect-preserving
// thumbnail whose longest edge is min(LongestEdge, native longest edge),
// so its resident memory is proportional to the requested size rather
// than the source size. The full-resolution intermediate required by the
// format decoders is bounded by MaxSourcePixels and released before
// Decode returns.
//
// Any failure, whether unknown format, corrupt data or an oversized
// source, is reported as a KindDecode error. Decode never returns a
// partial bitmap.
func Decode(data []byte, opts Options) (rgba *image.RGBA, err error) {
	const op = "decode.Decode"

	defer func() {
		// Malformed inputs have crashed format decoders before; surface
		// the panic as a decode error instead of taking the process down.
		if r := recover(); r != nil {
			rgba = nil
			err = &imgerrors.Error{Op: op, Kind: imgerrors.KindDecode, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &imgerrors.Error{Op: op, Kind: imgerrors.KindDecode, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &imgerrors.Error{Op: op, Kind: imgerrors.KindDecode,
			Err: fmt.Errorf("source declares empty bounds %dx%d", cfg.Width, cfg.Height)}
	}
	maxPixels := opts.MaxSourcePixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxSourcePixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, &imgerrors.Error{Op: op, Kind: imgerrors.KindDecode,
			Err: fmt.Errorf("source %dx%d exceeds %d pixel limit", cfg.Width, cfg.Height, maxPixels)}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &imgerrors.Error{Op: op, Kind: imgerrors.KindDecode, Err: err}
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, &imgerrors.Error{Op: op, Kind: imgerrors.KindDecode,
			Err: fmt.Errorf("decoded image has empty bounds %dx%d", srcW, srcH)}
	}

	outW, outH := thumbSize(srcW, srcH, opts.LongestEdge)
	if outW == srcW && outH == srcH {
		return toRGBA(src), nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	opts.Quality.scaler().Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst, nil
}

// thumbSize computes the output dimensions for a source of w×h and a
// target longest edge: the longest edge becomes edge, the other side
// scales proportionally, rounded, and clamped to at least one pixel.
// A non-positive edge, or a source already within it, keeps native size.
func thumbSize(w, h, edge int) (int, int) {
	longest := w
	if h > longest {
		longest = h
	}
	if edge <= 0 || longest <= edge {
		return w, h
	}
	scale := float64(edge) / float64(longest)
	if w >= h {
		return edge, clampDim(math.Round(float64(h) * scale))
	}
	return clampDim(math.Round(float64(w) * scale)), edge
}

func clampDim(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}

// toRGBA returns src as an RGBA bitmap, copying only when the decoder
// produced another pixel format.
func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	bounds := src.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, src, bounds.Min, draw.Src)
	return rgba
}

// Cost reports the resident memory of a decoded bitmap in bytes,
// exact for RGBA and assumed four bytes per pixel otherwise.
func Cost(img image.Image) int64 {
	switch img := img.(type) {
	case nil:
		return 0
	case *image.RGBA:
		return int64(len(img.Pix))
	default:
		b := img.Bounds()
		return int64(b.Dx()) * int64(b.Dy()) * 4
	}
}
