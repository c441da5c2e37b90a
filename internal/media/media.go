// Package media decodes, scales down and re-encodes uploaded images.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	// Registered for decoding only; WebP uploads are re-encoded as JPEG.
	_ "golang.org/x/image/webp"
)

// Output formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// DefaultJPEGQuality is used when Options.JPEGQuality is unset.
const DefaultJPEGQuality = 82

// maxSourcePixels rejects images whose decoded size would be unreasonable.
const maxSourcePixels = 40_000_000

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	ErrTooLarge          = errors.New("image dimensions too large")
)

// Options controls Process.
type Options struct {
	// MaxDimension bounds the longer side. Zero keeps the original size.
	MaxDimension int
	JPEGQuality  int
}

// Result is a processed image ready to be written.
type Result struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Ext returns the file extension for the result's format.
func (r *Result) Ext() string {
	if r.Format == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// Process decodes src (JPEG, PNG or WebP), scales it so neither side exceeds
// opts.MaxDimension, and re-encodes it. PNG stays PNG to keep transparency;
// everything else becomes JPEG. Re-encoding also drops embedded metadata.
func Process(src io.Reader, opts Options) (*Result, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if cfg.Width*cfg.Height > maxSourcePixels {
		return nil, ErrTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	scaled := Scale(img, opts.MaxDimension)
	outFormat := FormatJPEG
	if format == "png" {
		outFormat = FormatPNG
	}

	var buf bytes.Buffer
	if err := Encode(&buf, scaled, outFormat, opts.JPEGQuality); err != nil {
		return nil, err
	}
	bounds := scaled.Bounds()
	return &Result{
		Data:   buf.Bytes(),
		Format: outFormat,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// Scale returns img shrunk so its longer side is at most maxSize. Images that
// already fit are returned unchanged.
func Scale(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 || max(width, height) <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(max(width, height))
	newW := max(int(float64(width)*scale), 1)
	newH := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Encode writes img in format.
func Encode(w io.Writer, img image.Image, format string, jpegQuality int) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG, "jpg", "":
		q := jpegQuality
		if q == 0 {
			q = DefaultJPEGQuality
		}
		q = min(max(q, 1), 100)
		return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
