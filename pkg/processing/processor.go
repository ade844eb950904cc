package processing

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned when an output extension has no encoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Options controls encoding of written images
type Options struct {
	JPEGQuality  int
	WebPQuality  int
	WebPLossless bool
}

// DefaultOptions returns the encoder settings used when none are configured
func DefaultOptions() Options {
	return Options{JPEGQuality: 95, WebPQuality: 90}
}

// Processor handles image decode and encode
type Processor struct {
	opts Options
}

// NewProcessor creates a new image processor with default encoder options
func NewProcessor() *Processor {
	return &Processor{opts: DefaultOptions()}
}

// NewProcessorWithOptions creates a processor with custom encoder options
func NewProcessorWithOptions(opts Options) *Processor {
	return &Processor{opts: opts}
}

// LoadImage loads an image from a file path with WebP support. EXIF
// orientation is not applied; annotations refer to the stored pixel grid.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	// Fallback: explicit WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, errors.Errorf("image: unknown format for %s", path)
}

// LoadNRGBA loads an image and returns an owned NRGBA copy of it
func (p *Processor) LoadNRGBA(path string) (*image.NRGBA, error) {
	img, err := p.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}

// SaveImage saves an image, choosing the encoder from the file extension
func (p *Processor) SaveImage(img image.Image, path string) error {
	switch formatOf(path) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", path)
		}
		opts := &webp.Options{Lossless: p.opts.WebPLossless, Quality: float32(p.opts.WebPQuality)}
		if err := webp.Encode(f, img, opts); err != nil {
			f.Close()
			return errors.Wrapf(err, "failed to encode %s", path)
		}
		return errors.Wrapf(f.Close(), "failed to close %s", path)
	case "png":
		return errors.Wrapf(imaging.Save(img, path), "failed to save %s", path)
	case "jpg", "jpeg":
		return errors.Wrapf(imaging.Save(img, path, imaging.JPEGQuality(p.opts.JPEGQuality)), "failed to save %s", path)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "cannot write %s", path)
	}
}

// IsWritableFormat reports whether SaveImage can encode the given format name
// or extension (with or without the leading dot).
func IsWritableFormat(format string) bool {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "png", "jpg", "jpeg", "webp":
		return true
	}
	return false
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
