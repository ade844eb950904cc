// Package transform applies the random geometric and photometric jitter
// used on object crops before they are placed on a background.
package transform

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
	"golang.org/x/image/math/f64"
)

// Config holds the sampling ranges. Each range is [min, max]; angles are
// in degrees, color factors are multiplicative with 1 meaning unchanged.
type Config struct {
	RotationRange   [2]float64
	BrightnessRange [2]float64
	ContrastRange   [2]float64
	SaturationRange [2]float64
}

// Identity returns a configuration that leaves crops unchanged
func Identity() Config {
	return Config{
		BrightnessRange: [2]float64{1, 1},
		ContrastRange:   [2]float64{1, 1},
		SaturationRange: [2]float64{1, 1},
	}
}

// ColorParams is one sampled photometric adjustment
type ColorParams struct {
	Brightness float64
	Contrast   float64
	Saturation float64
}

// Transformer samples and applies transforms
type Transformer struct {
	config Config
}

// New creates a Transformer
func New(config Config) *Transformer {
	return &Transformer{config: config}
}

// Apply rotates img by a sampled angle and then applies sampled color
// jitter to the rotated result, replicated border included.
func (t *Transformer) Apply(rng *rand.Rand, img image.Image) *image.NRGBA {
	angle := Uniform(rng, t.config.RotationRange)
	rotated := Rotate(img, angle)
	return AdjustColor(rotated, t.SampleColor(rng))
}

// SampleColor draws brightness, contrast and saturation factors in that order
func (t *Transformer) SampleColor(rng *rand.Rand) ColorParams {
	return ColorParams{
		Brightness: Uniform(rng, t.config.BrightnessRange),
		Contrast:   Uniform(rng, t.config.ContrastRange),
		Saturation: Uniform(rng, t.config.SaturationRange),
	}
}

// Uniform samples from [r[0], r[1])
func Uniform(rng *rand.Rand, r [2]float64) float64 {
	return r[0] + rng.Float64()*(r[1]-r[0])
}

// RotatedSize returns the canvas needed to hold a w x h rectangle rotated by
// angle degrees without clipping.
func RotatedSize(w, h int, angle float64) (int, int) {
	rad := angle * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	nw := int(float64(h)*sin + float64(w)*cos)
	nh := int(float64(h)*cos + float64(w)*sin)
	return max(nw, 1), max(nh, 1)
}

// Rotate rotates img counter-clockwise by angle degrees about the pixel
// (w/2, h/2), halves truncated. The output grows to the rotated bounding box; pixels that map outside
// the source take the value of the nearest edge pixel.
func Rotate(img image.Image, angle float64) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return src
	}

	nw, nh := RotatedSize(w, h, angle)
	inv := inverseRotation(w, h, nw, nh, angle)
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))

	for y := 0; y < nh; y++ {
		fy := float64(y)
		i := y * dst.Stride
		for x := 0; x < nw; x++ {
			fx := float64(x)
			sx := inv[0]*fx + inv[1]*fy + inv[2]
			sy := inv[3]*fx + inv[4]*fy + inv[5]
			sampleBilinear(src, sx, sy, dst.Pix[i:i+4])
			i += 4
		}
	}
	return dst
}

// inverseRotation maps destination pixel coordinates back to the source.
// The forward map rotates about the integer pixel (w/2, h/2) and shifts it
// to the center of the nw x nh canvas, so odd sizes move by half a pixel.
func inverseRotation(w, h, nw, nh int, angle float64) f64.Aff3 {
	rad := angle * math.Pi / 180
	a, b := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(w/2), float64(h/2)

	tx := (1-a)*cx - b*cy + float64(nw)/2 - cx
	ty := b*cx + (1-a)*cy + float64(nh)/2 - cy

	return f64.Aff3{
		a, -b, -(a*tx - b*ty),
		b, a, -(b*tx + a*ty),
	}
}

func sampleBilinear(src *image.NRGBA, sx, sy float64, out []uint8) {
	maxX := float64(src.Rect.Dx() - 1)
	maxY := float64(src.Rect.Dy() - 1)
	sx = math.Min(math.Max(sx, 0), maxX)
	sy = math.Min(math.Max(sy, 0), maxY)

	x0, y0 := int(sx), int(sy)
	x1, y1 := min(x0+1, int(maxX)), min(y0+1, int(maxY))
	wx, wy := sx-float64(x0), sy-float64(y0)

	p00 := src.PixOffset(x0, y0)
	p10 := src.PixOffset(x1, y0)
	p01 := src.PixOffset(x0, y1)
	p11 := src.PixOffset(x1, y1)

	for c := 0; c < 4; c++ {
		top := float64(src.Pix[p00+c])*(1-wx) + float64(src.Pix[p10+c])*wx
		bot := float64(src.Pix[p01+c])*(1-wx) + float64(src.Pix[p11+c])*wx
		out[c] = clampUint8(top*(1-wy) + bot*wy)
	}
}

func clampUint8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
