// Package extractor cuts labeled objects out of a YOLO-format dataset and
// writes each one as a standalone crop image.
//
// The dataset is expected as
//
//	{dataset}/images/{name}.{png,jpg,jpeg}
//	{dataset}/labels/{name}.txt
//
// Each accepted label line becomes one file named
// {name}_{lineIndex}_class{classID}.{format}. That name is the only place the
// class id is stored on disk; LoadPool recovers it when the crops are read
// back for composition.
package extractor

import (
	"image"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/menta2k/image-synth/internal/utils"
	"github.com/menta2k/image-synth/pkg/labels"
	"github.com/menta2k/image-synth/pkg/processing"
	"github.com/menta2k/image-synth/pkg/types"
)

// Config holds configuration for crop extraction
type Config struct {
	ImageExtensions []string
	CropFormat      string
}

// Extractor extracts object crops from annotated images
type Extractor struct {
	config    Config
	processor *processing.Processor
	logger    *log.Logger
}

// Stats summarizes one extraction run
type Stats struct {
	Images        int // images with a label file that decoded
	SkippedImages int // missing label file or undecodable image
	Crops         int // crop files written
	Dropped       int // label lines whose box was degenerate after clamping
}

// New creates an Extractor writing png crops from png/jpg/jpeg sources
func New() *Extractor {
	return NewWithConfig(Config{
		ImageExtensions: utils.DefaultImageExtensions,
		CropFormat:      "png",
	}, processing.NewProcessor())
}

// NewWithConfig creates an Extractor with custom configuration
func NewWithConfig(config Config, processor *processing.Processor) *Extractor {
	if config.CropFormat == "" {
		config.CropFormat = "png"
	}
	if processor == nil {
		processor = processing.NewProcessor()
	}
	return &Extractor{
		config:    config,
		processor: processor,
		logger:    log.Default(),
	}
}

// SetLogger replaces the logger used for progress messages
func (e *Extractor) SetLogger(logger *log.Logger) {
	e.logger = logger
}

// ExtractDataset crops every labeled object under datasetPath into
// outputFolder. Images without a label file or that fail to decode are
// skipped; failing to create outputFolder or to write a crop is an error.
func (e *Extractor) ExtractDataset(datasetPath, outputFolder string) (Stats, error) {
	var stats Stats

	if err := utils.EnsureDir(outputFolder); err != nil {
		return stats, errors.Wrapf(err, "failed to create crop folder %s", outputFolder)
	}

	imageDir := filepath.Join(datasetPath, "images")
	labelDir := filepath.Join(datasetPath, "labels")
	if !utils.DirExists(imageDir) {
		return stats, errors.Errorf("dataset images folder %s not found", imageDir)
	}

	names, err := utils.ListImageFiles(imageDir, e.config.ImageExtensions)
	if err != nil {
		return stats, errors.Wrapf(err, "failed to list dataset images in %s", imageDir)
	}

	for _, name := range names {
		labelPath := filepath.Join(labelDir, utils.BaseName(name)+".txt")
		crops, dropped, ok := e.ExtractImage(filepath.Join(imageDir, name), labelPath)
		if !ok {
			stats.SkippedImages++
			continue
		}
		stats.Images++
		stats.Dropped += dropped

		for _, crop := range crops {
			if err := e.processor.SaveImage(crop.Image, filepath.Join(outputFolder, crop.Name)); err != nil {
				return stats, errors.Wrapf(err, "failed to write crop %s", crop.Name)
			}
			stats.Crops++
		}
	}

	return stats, nil
}

// ExtractImage loads one image and its label file and returns the crops
// in label-line order together with the number of degenerate boxes dropped.
// ok is false when the label file is missing or the image can't be read.
func (e *Extractor) ExtractImage(imagePath, labelPath string) (crops []types.ObjectCrop, dropped int, ok bool) {
	f, err := os.Open(labelPath)
	if err != nil {
		return nil, 0, false
	}
	defer f.Close()

	img, err := e.processor.LoadImage(imagePath)
	if err != nil {
		return nil, 0, false
	}

	crops, dropped, err = e.CropLabeled(img, utils.BaseName(imagePath), f)
	if err != nil {
		e.logger.Printf("error reading labels %s: %v", labelPath, err)
		return nil, 0, false
	}
	return crops, dropped, true
}

// CropLabeled parses label lines from r and crops each box out of img.
// base names the resulting crops.
func (e *Extractor) CropLabeled(img image.Image, base string, r io.Reader) ([]types.ObjectCrop, int, error) {
	entries, err := labels.Parse(r)
	if err != nil {
		return nil, 0, err
	}

	bounds := img.Bounds()
	var crops []types.ObjectCrop
	dropped := 0

	for _, entry := range entries {
		box, ok := labels.ToPixel(entry.Box, bounds.Dx(), bounds.Dy())
		if !ok {
			dropped++
			continue
		}
		crops = append(crops, types.ObjectCrop{
			Image:   CropBox(img, box),
			ClassID: entry.Box.ClassID,
			Name:    CropName(base, entry.Index, entry.Box.ClassID, e.config.CropFormat),
		})
	}

	return crops, dropped, nil
}

// CropBox copies the pixels in [X1,X2) x [Y1,Y2) of img into a new image
func CropBox(img image.Image, box types.PixelBox) *image.NRGBA {
	return imaging.Crop(img, box.Rect().Add(img.Bounds().Min))
}
