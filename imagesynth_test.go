package imagesynth

import (
	"context"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-synth/internal/config"
	"github.com/menta2k/image-synth/pkg/processing"
)

// createTestImage creates a simple test image
func createTestImage(width, height int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Paths = config.PathsConfig{
		DatasetPath:  filepath.Join(root, "dataset"),
		FolderA:      filepath.Join(root, "backgrounds"),
		FolderB:      filepath.Join(root, "objects"),
		OutputFolder: filepath.Join(root, "output"),
	}
	cfg.Synthesis.NumImagesToGenerate = 3
	cfg.Synthesis.MaxObjectsPerImage = 2
	cfg.Synthesis.MinObjectAreaRatio = 0.01
	cfg.Synthesis.MaxObjectAreaRatio = 0.05
	cfg.Runtime.Seed = 42

	p := processing.NewProcessor()
	for _, dir := range []string{"dataset/images", "dataset/labels", "backgrounds"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	require.NoError(t, p.SaveImage(createTestImage(400, 300, color.NRGBA{200, 30, 30, 255}), filepath.Join(root, "dataset", "images", "car.png")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dataset", "labels", "car.txt"), []byte("4 0.5 0.5 0.5 0.5\n"), 0o644))
	require.NoError(t, p.SaveImage(createTestImage(640, 480, color.NRGBA{20, 20, 120, 255}), filepath.Join(root, "backgrounds", "road.jpg")))

	return cfg
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Synthesis.NumImagesToGenerate = 0

	_, err := New(cfg)
	require.Error(t, err)
	assert.Equal(t, config.ErrInvalid, errors.Cause(err))
}

func TestNewUsesConfiguredSeed(t *testing.T) {
	cfg := config.Default()
	cfg.Runtime.Seed = 99
	p, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), p.Seed())
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)
	p.SetLogger(log.New(io.Discard, "", 0))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Extraction.Images)
	assert.Equal(t, 1, res.Extraction.Crops)
	assert.FileExists(t, filepath.Join(cfg.Paths.FolderB, "car_0_class4.png"))

	assert.Equal(t, 3, res.Synthesis.Generated)
	for i := 0; i < 3; i++ {
		name := "synthesized_" + string(rune('0'+i)) + "_road"
		assert.FileExists(t, filepath.Join(cfg.Paths.OutputFolder, "images", name+".jpg"))
		assert.FileExists(t, filepath.Join(cfg.Paths.OutputFolder, "labels", name+".txt"))
	}
}

func TestExtractMissingDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.DatasetPath = filepath.Join(t.TempDir(), "absent")
	p, err := New(cfg)
	require.NoError(t, err)
	p.SetLogger(log.New(io.Discard, "", 0))

	_, err = p.Extract()
	assert.Error(t, err)
}

func TestSynthesizeWithoutCrops(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)
	p.SetLogger(log.New(io.Discard, "", 0))
	require.NoError(t, os.MkdirAll(cfg.Paths.FolderB, 0o755))

	stats, err := p.Synthesize(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Generated)
}
