package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DefaultImageExtensions are the extensions treated as images when none are configured
var DefaultImageExtensions = []string{".png", ".jpg", ".jpeg"}

// EnsureDir creates a directory if it doesn't exist. An existing path that
// is not a directory is an error.
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.Errorf("%s exists and is not a directory", dir)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// BaseName returns the file name without directory and extension
func BaseName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HasImageExtension checks the extension case-insensitively against exts
func HasImageExtension(filename string, exts []string) bool {
	if len(exts) == 0 {
		exts = DefaultImageExtensions
	}
	ext := GetFileExtension(filename)
	for _, imgExt := range exts {
		if ext == strings.TrimPrefix(strings.ToLower(imgExt), ".") {
			return true
		}
	}
	return false
}

// ListImageFiles lists image file names (not paths) directly inside dir,
// sorted so that random selection over the result is reproducible.
func ListImageFiles(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !HasImageExtension(e.Name(), exts) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// SynthesizedImageName returns the output image name for sample idx. A
// non-empty format replaces the background's extension.
func SynthesizedImageName(idx int, background, format string) string {
	name := filepath.Base(background)
	if format != "" {
		name = BaseName(name) + "." + strings.TrimPrefix(strings.ToLower(format), ".")
	}
	return fmt.Sprintf("synthesized_%d_%s", idx, name)
}

// SynthesizedLabelName returns the label file name for sample idx
func SynthesizedLabelName(idx int, background string) string {
	return fmt.Sprintf("synthesized_%d_%s.txt", idx, BaseName(background))
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && info.IsDir()
}
