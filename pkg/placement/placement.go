// Package placement scales transformed objects to a sampled share of the
// canvas and searches for a position that does not collide with objects
// already placed.
package placement

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-synth/pkg/labels"
	"github.com/menta2k/image-synth/pkg/types"
)

// Config holds placement parameters
type Config struct {
	MinAreaRatio  float64 // lower bound of object area / canvas area
	MaxAreaRatio  float64 // upper bound of object area / canvas area
	MinObjectSize int     // smallest accepted scaled width or height, in pixels
	MaxAttempts   int     // position samples tried before giving up
}

// DefaultConfig returns the standard placement parameters
func DefaultConfig() Config {
	return Config{
		MinAreaRatio:  0.01,
		MaxAreaRatio:  0.1,
		MinObjectSize: 10,
		MaxAttempts:   50,
	}
}

// Engine places objects on a canvas
type Engine struct {
	config Config
}

// New creates an Engine
func New(config Config) *Engine {
	if config.MinObjectSize <= 0 {
		config.MinObjectSize = 10
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 50
	}
	return &Engine{config: config}
}

// TryPlace scales cand to a sampled area ratio of the canvas and looks for a
// free position among existing. It returns false when the scaled object is
// too small or larger than the canvas, or when every attempt collides.
// existing is only read.
func (e *Engine) TryPlace(rng *rand.Rand, cand types.Candidate, canvasW, canvasH int, existing []types.PixelBox) (types.Placement, bool) {
	ratio := e.config.MinAreaRatio + rng.Float64()*(e.config.MaxAreaRatio-e.config.MinAreaRatio)
	targetArea := float64(canvasW*canvasH) * ratio

	src := cand.SourceSize
	if src.X <= 0 || src.Y <= 0 {
		src = cand.Image.Bounds().Size()
	}
	if src.X <= 0 || src.Y <= 0 {
		return types.Placement{}, false
	}
	scale := math.Sqrt(targetArea / float64(src.X*src.Y))

	obj, ok := e.Scale(cand.Image, scale, canvasW, canvasH)
	if !ok {
		return types.Placement{}, false
	}
	w, h := obj.Bounds().Dx(), obj.Bounds().Dy()

	for attempt := 0; attempt < e.config.MaxAttempts; attempt++ {
		x, y := RandomPosition(rng, w, h, canvasW, canvasH)
		box := types.PixelBox{X1: x, Y1: y, X2: x + w, Y2: y + h}
		if OverlapsAny(box, existing) {
			continue
		}
		return types.Placement{
			Image: obj,
			Box:   box,
			Label: labels.Line(cand.ClassID, box, canvasW, canvasH),
		}, true
	}

	return types.Placement{}, false
}

// Scale resizes img by scale. It refuses results narrower or shorter than
// MinObjectSize and results that do not fit in the canvas.
func (e *Engine) Scale(img image.Image, scale float64, canvasW, canvasH int) (*image.NRGBA, bool) {
	b := img.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), scale)
	if !e.Fits(w, h, canvasW, canvasH) {
		return nil, false
	}
	return imaging.Resize(img, w, h, imaging.Linear), true
}

// Fits reports whether a w x h object is within the size limits for the canvas
func (e *Engine) Fits(w, h, canvasW, canvasH int) bool {
	lo := e.config.MinObjectSize
	return w >= lo && h >= lo && w <= canvasW && h <= canvasH
}

// ScaledSize truncates w*scale and h*scale to whole pixels
func ScaledSize(w, h int, scale float64) (int, int) {
	return int(float64(w) * scale), int(float64(h) * scale)
}

// RandomPosition samples a top-left corner so that a w x h object lies
// inside the canvas. Both bounds are inclusive.
func RandomPosition(rng *rand.Rand, w, h, canvasW, canvasH int) (int, int) {
	return rng.IntN(canvasW-w+1), rng.IntN(canvasH-h+1)
}

// OverlapsAny reports whether box overlaps any of boxes
func OverlapsAny(box types.PixelBox, boxes []types.PixelBox) bool {
	for _, b := range boxes {
		if box.Overlaps(b) {
			return true
		}
	}
	return false
}
