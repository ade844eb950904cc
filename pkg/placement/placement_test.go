package placement

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-synth/pkg/labels"
	"github.com/menta2k/image-synth/pkg/types"
)

// createTestImage creates a solid test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{200, 40, 40, 255})
		}
	}
	return img
}

func fixedRatio(r float64) Config {
	cfg := DefaultConfig()
	cfg.MinAreaRatio, cfg.MaxAreaRatio = r, r
	return cfg
}

func TestNewAppliesDefaults(t *testing.T) {
	e := New(Config{MinAreaRatio: 0.1, MaxAreaRatio: 0.2})
	assert.Equal(t, 10, e.config.MinObjectSize)
	assert.Equal(t, 50, e.config.MaxAttempts)
}

func TestFits(t *testing.T) {
	e := New(DefaultConfig())
	tests := []struct {
		name string
		w, h int
		want bool
	}{
		{"minimum size", 10, 10, true},
		{"too narrow", 9, 50, false},
		{"too short", 50, 9, false},
		{"exact canvas", 800, 600, true},
		{"too wide", 801, 100, false},
		{"too tall", 100, 601, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Fits(tt.w, tt.h, 800, 600))
		})
	}
}

func TestTryPlaceRejectsSizeDeterministically(t *testing.T) {
	tests := []struct {
		name   string
		ratio  float64
		obj    image.Image
		cw, ch int
	}{
		{"below minimum size", 0.0001, createTestImage(100, 80), 800, 600},
		{"wider than canvas", 0.9, createTestImage(100, 10), 200, 200},
		{"taller than canvas", 0.9, createTestImage(10, 100), 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(fixedRatio(tt.ratio))
			for seed := uint64(0); seed < 20; seed++ {
				_, ok := e.TryPlace(rand.New(rand.NewPCG(seed, 0)), types.Candidate{Image: tt.obj, ClassID: "0"}, tt.cw, tt.ch, nil)
				assert.False(t, ok, "seed %d", seed)
			}
		})
	}
}

func TestTryPlaceAccepts(t *testing.T) {
	e := New(fixedRatio(0.02))
	rng := rand.New(rand.NewPCG(1, 1))

	p, ok := e.TryPlace(rng, types.Candidate{Image: createTestImage(100, 80), ClassID: "2"}, 800, 600, nil)
	require.True(t, ok)

	// sqrt(0.02*800*600 / (100*80)) = 1.0954...
	assert.Equal(t, 109, p.Box.Width())
	assert.Equal(t, 87, p.Box.Height())
	assert.Equal(t, image.Rect(0, 0, 109, 87), p.Image.Bounds())
	assert.True(t, p.Box.X1 >= 0 && p.Box.X2 <= 800)
	assert.True(t, p.Box.Y1 >= 0 && p.Box.Y2 <= 600)

	nb, ok := labels.ParseLine(p.Label)
	require.True(t, ok)
	assert.Equal(t, types.ClassID("2"), nb.ClassID)
	assert.Equal(t, labels.Line("2", p.Box, 800, 600), p.Label)
}

func TestTryPlaceUsesSourceSize(t *testing.T) {
	e := New(fixedRatio(0.02))
	cand := types.Candidate{
		Image:      createTestImage(150, 150),
		ClassID:    "0",
		SourceSize: image.Pt(100, 100),
	}

	p, ok := e.TryPlace(rand.New(rand.NewPCG(5, 5)), cand, 1000, 1000, nil)
	require.True(t, ok)
	// sqrt(0.02*1000*1000 / (100*100)) = 1.414..., applied to the 150px image
	assert.Equal(t, 212, p.Box.Width(), "scale comes from the pre-rotation area")
	assert.Equal(t, 212, p.Box.Height())
}

func TestTryPlaceCrowdedCanvas(t *testing.T) {
	e := New(fixedRatio(0.02))
	full := []types.PixelBox{{X1: 0, Y1: 0, X2: 800, Y2: 600}}

	for seed := uint64(0); seed < 10; seed++ {
		_, ok := e.TryPlace(rand.New(rand.NewPCG(seed, 9)), types.Candidate{Image: createTestImage(100, 80), ClassID: "0"}, 800, 600, full)
		assert.False(t, ok)
	}
}

func TestAcceptedBoxesNeverOverlap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinAreaRatio, cfg.MaxAreaRatio = 0.005, 0.05
	e := New(cfg)
	rng := rand.New(rand.NewPCG(42, 42))
	obj := createTestImage(60, 40)

	var boxes []types.PixelBox
	for i := 0; i < 200; i++ {
		p, ok := e.TryPlace(rng, types.Candidate{Image: obj, ClassID: "1"}, 640, 480, boxes)
		if ok {
			boxes = append(boxes, p.Box)
		}
	}
	require.NotEmpty(t, boxes)

	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			assert.False(t, boxes[i].Overlaps(boxes[j]), "boxes %d and %d overlap: %+v %+v", i, j, boxes[i], boxes[j])
		}
	}
}

func TestTryPlaceDeterministic(t *testing.T) {
	e := New(DefaultConfig())
	cand := types.Candidate{Image: createTestImage(70, 70), ClassID: "3"}
	existing := []types.PixelBox{{X1: 10, Y1: 10, X2: 100, Y2: 100}}

	a, okA := e.TryPlace(rand.New(rand.NewPCG(11, 12)), cand, 500, 400, existing)
	b, okB := e.TryPlace(rand.New(rand.NewPCG(11, 12)), cand, 500, 400, existing)
	require.Equal(t, okA, okB)
	assert.Equal(t, a.Box, b.Box)
	assert.Equal(t, a.Label, b.Label)
}

func TestRandomPositionBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(0, 0))
	for i := 0; i < 500; i++ {
		x, y := RandomPosition(rng, 90, 50, 100, 60)
		assert.True(t, x >= 0 && x <= 10)
		assert.True(t, y >= 0 && y <= 10)
	}

	x, y := RandomPosition(rng, 100, 60, 100, 60)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)
}

func TestScaledSize(t *testing.T) {
	w, h := ScaledSize(100, 80, 0.5)
	assert.Equal(t, 50, w)
	assert.Equal(t, 40, h)

	w, h = ScaledSize(33, 33, 0.1)
	assert.Equal(t, 3, w)
	assert.Equal(t, 3, h)
}
