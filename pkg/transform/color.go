package transform

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// AdjustColor applies brightness/contrast and then saturation
func AdjustColor(img image.Image, p ColorParams) *image.NRGBA {
	return AdjustSaturation(AdjustBrightnessContrast(img, p.Contrast, p.Brightness), p.Saturation)
}

// AdjustBrightnessContrast maps every color channel through
// clip(contrast*v + (brightness-1)*255, 0, 255). Alpha is kept.
func AdjustBrightnessContrast(img image.Image, contrast, brightness float64) *image.NRGBA {
	beta := (brightness - 1) * 255
	var lut [256]uint8
	for i := range lut {
		lut[i] = clampUint8(contrast*float64(i) + beta)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{lut[c.R], lut[c.G], lut[c.B], c.A}
	})
}

// AdjustSaturation scales the HSV saturation of every pixel by factor,
// clipping it to [0, 1].
func AdjustSaturation(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		h, s, v := rgbToHSV(c.R, c.G, c.B)
		s = math.Min(math.Max(s*factor, 0), 1)
		r, g, b := hsvToRGB(h, s, v)
		return color.NRGBA{r, g, b, c.A}
	})
}

// rgbToHSV returns hue in degrees [0, 360) and saturation, value in [0, 1]
func rgbToHSV(r8, g8, b8 uint8) (h, s, v float64) {
	r, g, b := float64(r8)/255, float64(g8)/255, float64(b8)/255
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	d := hi - lo

	v = hi
	if hi > 0 {
		s = d / hi
	}
	if d == 0 {
		return 0, s, v
	}

	switch hi {
	case r:
		h = 60 * math.Mod((g-b)/d, 6)
	case g:
		h = 60 * ((b-r)/d + 2)
	default:
		h = 60 * ((r-g)/d + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return clampUint8((r + m) * 255), clampUint8((g + m) * 255), clampUint8((b + m) * 255)
}
