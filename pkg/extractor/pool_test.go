package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-synth/pkg/processing"
	"github.com/menta2k/image-synth/pkg/types"
)

func TestCropNameRoundTrip(t *testing.T) {
	tests := []struct {
		base  string
		idx   int
		class types.ClassID
	}{
		{"street", 0, "0"},
		{"img_class_photo", 12, "7"},
		{"a.b", 3, "person"},
		{"x", 1, "07"},
	}

	for _, tt := range tests {
		name := CropName(tt.base, tt.idx, tt.class, ".PNG")
		got, ok := ParseCropName(name)
		require.True(t, ok, name)
		assert.Equal(t, tt.class, got, name)
	}

	assert.Equal(t, "street_4_class2.png", CropName("street", 4, "2", "png"))
}

func TestParseCropNameRejects(t *testing.T) {
	for _, name := range []string{"background.png", "street_0_class.png", "plain"} {
		_, ok := ParseCropName(name)
		assert.False(t, ok, name)
	}
}

func TestLoadPool(t *testing.T) {
	dir := t.TempDir()
	p := processing.NewProcessor()
	require.NoError(t, p.SaveImage(createTestImage(12, 12), filepath.Join(dir, "b_1_class2.png")))
	require.NoError(t, p.SaveImage(createTestImage(12, 12), filepath.Join(dir, "a_0_class1.png")))
	require.NoError(t, p.SaveImage(createTestImage(12, 12), filepath.Join(dir, "stray.png")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_0_class1.txt"), nil, 0o644))

	pool, err := LoadPool(dir, nil)
	require.NoError(t, err)
	require.Len(t, pool, 2)
	assert.Equal(t, "a_0_class1.png", pool[0].Name)
	assert.Equal(t, types.ClassID("1"), pool[0].ClassID)
	assert.Equal(t, types.ClassID("2"), pool[1].ClassID)

	crop, err := pool[1].Load(p)
	require.NoError(t, err)
	assert.Equal(t, types.ClassID("2"), crop.ClassID)
	assert.Equal(t, 12, crop.Image.Bounds().Dx())

	_, err = LoadPool(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}
