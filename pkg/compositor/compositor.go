// Package compositor builds synthetic detection samples by pasting
// transformed object crops onto background images.
//
// Every output index draws from its own random stream derived from the
// configured seed and the index, so a run is reproducible for a fixed seed
// whatever the number of workers.
package compositor

import (
	"context"
	"image"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/image-synth/internal/utils"
	"github.com/menta2k/image-synth/pkg/extractor"
	"github.com/menta2k/image-synth/pkg/labels"
	"github.com/menta2k/image-synth/pkg/placement"
	"github.com/menta2k/image-synth/pkg/processing"
	"github.com/menta2k/image-synth/pkg/transform"
	"github.com/menta2k/image-synth/pkg/types"
)

// Config holds configuration for composition runs
type Config struct {
	NumImages       int
	MaxObjects      int
	ImageFormat     string // empty keeps the background's extension
	ImageExtensions []string
	Seed            uint64
	Workers         int
}

// Compositor generates synthesized samples
type Compositor struct {
	config      Config
	transformer *transform.Transformer
	engine      *placement.Engine
	processor   *processing.Processor
	logger      *log.Logger
}

// Stats summarizes a composition run
type Stats struct {
	Generated         int // samples written
	Empty             int // samples where no object could be placed
	Failed            int // unreadable background
	ObjectsPlaced     int
	ObjectsRejected   int // size out of bounds or no free position
	UnreadableObjects int
}

func (s *Stats) add(o Stats) {
	s.Generated += o.Generated
	s.Empty += o.Empty
	s.Failed += o.Failed
	s.ObjectsPlaced += o.ObjectsPlaced
	s.ObjectsRejected += o.ObjectsRejected
	s.UnreadableObjects += o.UnreadableObjects
}

// New creates a Compositor. A zero seed is replaced by a random one, which
// Seed reports so the run can be repeated.
func New(config Config, transformer *transform.Transformer, engine *placement.Engine, processor *processing.Processor) *Compositor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxObjects < 1 {
		config.MaxObjects = 1
	}
	if config.Seed == 0 {
		config.Seed = rand.Uint64()
	}
	if len(config.ImageExtensions) == 0 {
		config.ImageExtensions = utils.DefaultImageExtensions
	}
	if transformer == nil {
		transformer = transform.New(transform.Identity())
	}
	if engine == nil {
		engine = placement.New(placement.DefaultConfig())
	}
	if processor == nil {
		processor = processing.NewProcessor()
	}
	return &Compositor{
		config:      config,
		transformer: transformer,
		engine:      engine,
		processor:   processor,
		logger:      log.Default(),
	}
}

// SetLogger replaces the logger used for progress and per-sample errors
func (c *Compositor) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// Seed returns the seed in use
func (c *Compositor) Seed() uint64 {
	return c.config.Seed
}

// Synthesize lists backgrounds in backgroundDir and crops in objectDir and
// writes NumImages samples under outputFolder/images and outputFolder/labels.
// Empty pools produce no output. An unreadable background is logged and
// counted; failing to prepare the output folders or to write a sample stops
// the run and is returned.
func (c *Compositor) Synthesize(ctx context.Context, backgroundDir, objectDir, outputFolder string) (Stats, error) {
	backgrounds, err := utils.ListImageFiles(backgroundDir, c.config.ImageExtensions)
	if err != nil {
		return Stats{}, errors.Wrapf(err, "failed to list backgrounds in %s", backgroundDir)
	}
	pool, err := extractor.LoadPool(objectDir, c.config.ImageExtensions)
	if err != nil {
		return Stats{}, err
	}
	return c.SynthesizeFrom(ctx, backgroundDir, backgrounds, pool, outputFolder)
}

// SynthesizeFrom is Synthesize over already listed inputs. backgrounds are
// file names inside backgroundDir.
func (c *Compositor) SynthesizeFrom(ctx context.Context, backgroundDir string, backgrounds []string, pool []extractor.PoolEntry, outputFolder string) (Stats, error) {
	imageDir := filepath.Join(outputFolder, "images")
	labelDir := filepath.Join(outputFolder, "labels")
	for _, dir := range []string{imageDir, labelDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return Stats{}, errors.Wrapf(err, "failed to create output folder %s", dir)
		}
	}

	if len(backgrounds) == 0 || len(pool) == 0 {
		c.logger.Printf("nothing to synthesize: %d backgrounds, %d objects", len(backgrounds), len(pool))
		return Stats{}, nil
	}

	results := make([]Stats, c.config.NumImages)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)

	for i := 0; i < c.config.NumImages; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			stats, err := c.generate(i, backgroundDir, backgrounds, pool, imageDir, labelDir)
			results[i] = stats
			return err
		})
	}
	err := g.Wait()

	var total Stats
	for _, r := range results {
		total.add(r)
	}
	if err != nil {
		return total, err
	}
	return total, errors.Wrap(ctx.Err(), "synthesis interrupted")
}

// Stream returns the random stream for output index idx
func (c *Compositor) Stream(idx int) *rand.Rand {
	return rand.New(rand.NewPCG(c.config.Seed, uint64(idx)))
}

func (c *Compositor) generate(idx int, backgroundDir string, backgrounds []string, pool []extractor.PoolEntry, imageDir, labelDir string) (Stats, error) {
	rng := c.Stream(idx)
	name := backgrounds[rng.IntN(len(backgrounds))]

	canvas, err := c.processor.LoadNRGBA(filepath.Join(backgroundDir, name))
	if err != nil {
		c.logger.Printf("error processing %s: %v", name, err)
		return Stats{Failed: 1}, nil
	}

	sample, stats := c.Compose(rng, canvas, pool)
	sample.Background = name

	if len(sample.Labels) == 0 {
		stats.Empty++
		return stats, nil
	}

	if err := c.WriteSample(idx, sample, imageDir, labelDir); err != nil {
		return stats, errors.Wrapf(err, "failed to write sample %d from %s", idx, name)
	}
	stats.Generated++
	return stats, nil
}

// Compose pastes between 1 and MaxObjects randomly drawn crops onto canvas.
// Crops are drawn with replacement; a crop that fails to load or place is
// not retried. canvas itself is never written to.
func (c *Compositor) Compose(rng *rand.Rand, canvas *image.NRGBA, pool []extractor.PoolEntry) (types.Sample, Stats) {
	var stats Stats
	sample := types.Sample{Canvas: canvas}
	if len(pool) == 0 {
		return sample, stats
	}

	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	numObjects := 1 + rng.IntN(c.config.MaxObjects)

	for n := 0; n < numObjects; n++ {
		entry := pool[rng.IntN(len(pool))]
		crop, err := entry.Load(c.processor)
		if err != nil {
			stats.UnreadableObjects++
			continue
		}

		cand := types.Candidate{
			Image:      c.transformer.Apply(rng, crop.Image),
			ClassID:    crop.ClassID,
			SourceSize: crop.Image.Bounds().Size(),
		}
		p, ok := c.engine.TryPlace(rng, cand, w, h, sample.Boxes)
		if !ok {
			stats.ObjectsRejected++
			continue
		}

		sample.Canvas = imaging.Paste(sample.Canvas, p.Image, image.Pt(p.Box.X1, p.Box.Y1))
		sample.Boxes = append(sample.Boxes, p.Box)
		sample.Labels = append(sample.Labels, p.Label)
		stats.ObjectsPlaced++
	}

	return sample, stats
}

// WriteSample writes the sample image and then its label file. When the
// label file can't be written the image is removed again, so an image is
// never left without its labels.
func (c *Compositor) WriteSample(idx int, sample types.Sample, imageDir, labelDir string) error {
	imgPath := filepath.Join(imageDir, utils.SynthesizedImageName(idx, sample.Background, c.config.ImageFormat))
	if err := c.processor.SaveImage(sample.Canvas, imgPath); err != nil {
		removeFile(imgPath)
		return err
	}

	lblPath := filepath.Join(labelDir, utils.SynthesizedLabelName(idx, sample.Background))
	if err := writeLabels(lblPath, sample.Labels); err != nil {
		removeFile(imgPath)
		return err
	}
	return nil
}

func writeLabels(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	err = labels.Write(f, lines)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "failed to close %s", path)
	}
	if err != nil {
		removeFile(path)
	}
	return err
}

// removeFile drops a partially written output; directories are left alone.
func removeFile(path string) {
	if utils.FileExists(path) {
		os.Remove(path)
	}
}
