package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/menta2k/image-synth/internal/utils"
	"github.com/menta2k/image-synth/pkg/processing"
	"github.com/menta2k/image-synth/pkg/types"
)

const classToken = "_class"

// CropName builds the on-disk name of a crop
func CropName(base string, lineIndex int, classID types.ClassID, format string) string {
	return fmt.Sprintf("%s_%d%s%s.%s", base, lineIndex, classToken, classID, strings.TrimPrefix(strings.ToLower(format), "."))
}

// ParseCropName recovers the class id from a name produced by CropName.
func ParseCropName(name string) (types.ClassID, bool) {
	base := utils.BaseName(name)
	i := strings.LastIndex(base, classToken)
	if i < 0 {
		return "", false
	}
	id := base[i+len(classToken):]
	if id == "" || strings.ContainsAny(id, " \t") {
		return "", false
	}
	return types.ClassID(id), true
}

// PoolEntry is a crop file on disk with its class already resolved
type PoolEntry struct {
	Path    string
	Name    string
	ClassID types.ClassID
}

// LoadPool lists the crop files in dir. Files whose name does not follow the
// crop schema are left out, as they carry no class.
func LoadPool(dir string, exts []string) ([]PoolEntry, error) {
	names, err := utils.ListImageFiles(dir, exts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list object pool %s", dir)
	}

	pool := make([]PoolEntry, 0, len(names))
	for _, name := range names {
		classID, ok := ParseCropName(name)
		if !ok {
			continue
		}
		pool = append(pool, PoolEntry{
			Path:    filepath.Join(dir, name),
			Name:    name,
			ClassID: classID,
		})
	}
	return pool, nil
}

// Load decodes the crop image for the entry
func (pe PoolEntry) Load(p *processing.Processor) (types.ObjectCrop, error) {
	img, err := p.LoadImage(pe.Path)
	if err != nil {
		return types.ObjectCrop{}, err
	}
	return types.ObjectCrop{Image: img, ClassID: pe.ClassID, Name: pe.Name}, nil
}
