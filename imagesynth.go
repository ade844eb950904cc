// Package imagesynth generates synthetic object-detection datasets.
//
// A run has two stages. Extraction crops every annotated object out of a
// YOLO-style dataset into a flat folder of crops whose file names carry the
// class id. Synthesis then pastes randomly transformed crops onto
// background images and writes each composite with a matching label file.
//
// Basic usage:
//
//	cfg, err := config.LoadFromFile("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	p, err := imagesynth.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := p.Run(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d crops, %d samples\n", res.Extraction.Crops, res.Synthesis.Generated)
//
// The package consists of these components:
//
//  1. Extractor (pkg/extractor): dataset crops and the crop pool
//  2. Transform (pkg/transform): rotation and color jitter
//  3. Placement (pkg/placement): scaling and non-overlapping positioning
//  4. Compositor (pkg/compositor): sample assembly and output
package imagesynth

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/menta2k/image-synth/internal/config"
	"github.com/menta2k/image-synth/pkg/compositor"
	"github.com/menta2k/image-synth/pkg/extractor"
	"github.com/menta2k/image-synth/pkg/placement"
	"github.com/menta2k/image-synth/pkg/processing"
	"github.com/menta2k/image-synth/pkg/transform"
)

// Version of the image synth library
const Version = "1.0.0"

// Pipeline wires extraction and synthesis from one configuration
type Pipeline struct {
	config     *config.Config
	extractor  *extractor.Extractor
	compositor *compositor.Compositor
	logger     *log.Logger
}

// Result holds the statistics of both stages
type Result struct {
	Extraction extractor.Stats  `json:"extraction"`
	Synthesis  compositor.Stats `json:"synthesis"`
}

// New validates cfg and builds the pipeline components from it
func New(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	processor := processing.NewProcessorWithOptions(processing.Options{
		JPEGQuality:  cfg.Output.JPEGQuality,
		WebPQuality:  cfg.Output.WebPQuality,
		WebPLossless: cfg.Output.WebPLossless,
	})

	ext := extractor.NewWithConfig(extractor.Config{
		ImageExtensions: cfg.Output.ImageExtensions,
		CropFormat:      cfg.Output.CropFormat,
	}, processor)

	syn := cfg.Synthesis
	transformer := transform.New(transform.Config{
		RotationRange:   syn.RotationRange,
		BrightnessRange: syn.ColorAdjustment.BrightnessRange,
		ContrastRange:   syn.ColorAdjustment.ContrastRange,
		SaturationRange: syn.ColorAdjustment.SaturationRange,
	})
	engine := placement.New(placement.Config{
		MinAreaRatio:  syn.MinObjectAreaRatio,
		MaxAreaRatio:  syn.MaxObjectAreaRatio,
		MinObjectSize: cfg.Placement.MinObjectSize,
		MaxAttempts:   cfg.Placement.MaxAttempts,
	})
	comp := compositor.New(compositor.Config{
		NumImages:       syn.NumImagesToGenerate,
		MaxObjects:      syn.MaxObjectsPerImage,
		ImageFormat:     cfg.Output.ImageFormat,
		ImageExtensions: cfg.Output.ImageExtensions,
		Seed:            cfg.Runtime.Seed,
		Workers:         cfg.Runtime.Workers,
	}, transformer, engine, processor)

	return &Pipeline{
		config:     cfg,
		extractor:  ext,
		compositor: comp,
		logger:     log.Default(),
	}, nil
}

// SetLogger replaces the logger of the pipeline and its stages
func (p *Pipeline) SetLogger(logger *log.Logger) {
	p.logger = logger
	p.extractor.SetLogger(logger)
	p.compositor.SetLogger(logger)
}

// Seed returns the seed driving synthesis
func (p *Pipeline) Seed() uint64 {
	return p.compositor.Seed()
}

// Extract crops the dataset at paths.dataset_path into paths.folder_B
func (p *Pipeline) Extract() (extractor.Stats, error) {
	paths := p.config.Paths
	stats, err := p.extractor.ExtractDataset(paths.DatasetPath, paths.FolderB)
	if err != nil {
		return stats, errors.Wrap(err, "extraction failed")
	}
	p.logger.Printf("extracted %d crops from %d images into %s (%d skipped images, %d dropped boxes)",
		stats.Crops, stats.Images, paths.FolderB, stats.SkippedImages, stats.Dropped)
	return stats, nil
}

// Synthesize composes samples from paths.folder_A backgrounds and the
// crops in paths.folder_B into paths.output_folder
func (p *Pipeline) Synthesize(ctx context.Context) (compositor.Stats, error) {
	paths := p.config.Paths
	p.logger.Printf("synthesizing %d images with seed %d", p.config.Synthesis.NumImagesToGenerate, p.Seed())
	stats, err := p.compositor.Synthesize(ctx, paths.FolderA, paths.FolderB, paths.OutputFolder)
	if err != nil {
		return stats, errors.Wrap(err, "synthesis failed")
	}
	p.logger.Printf("wrote %d samples to %s (%d empty, %d failed, %d objects placed, %d rejected)",
		stats.Generated, paths.OutputFolder, stats.Empty, stats.Failed, stats.ObjectsPlaced, stats.ObjectsRejected)
	return stats, nil
}

// Run extracts and then synthesizes
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	var res Result
	var err error

	if res.Extraction, err = p.Extract(); err != nil {
		return res, err
	}
	res.Synthesis, err = p.Synthesize(ctx)
	return res, err
}
