package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	imagesynth "github.com/menta2k/image-synth"
	"github.com/menta2k/image-synth/internal/config"
	"github.com/menta2k/image-synth/internal/utils"
)

func main() {
	var cfgPath, dumpPath string
	var seed uint64
	var workers int
	var skipExtract, skipSynth bool

	flag.StringVar(&cfgPath, "config", "", "YAML or JSON config file (default ~/.config/image-synth/config.yaml when present)")
	flag.Uint64Var(&seed, "seed", 0, "random seed, overrides runtime.seed (0 keeps the configured value)")
	flag.IntVar(&workers, "workers", 0, "parallel synthesis workers, overrides runtime.workers")
	flag.BoolVar(&skipExtract, "skip-extract", false, "reuse the crops already in folder_B")
	flag.BoolVar(&skipSynth, "skip-synth", false, "only extract crops")
	flag.StringVar(&dumpPath, "dump-config", "", "write the effective configuration to this file and exit")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if seed != 0 {
		cfg.Runtime.Seed = seed
	}
	if workers > 0 {
		cfg.Runtime.Workers = workers
	}

	if dumpPath != "" {
		if err := cfg.SaveToFile(dumpPath); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", dumpPath)
		return
	}

	pipeline, err := imagesynth.New(cfg)
	if err != nil {
		log.Fatalf("usage: %s [-config config.yaml] [-seed N] [-workers N] [-skip-extract] [-skip-synth]: %v", filepath.Base(os.Args[0]), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !skipExtract {
		if _, err := pipeline.Extract(); err != nil {
			log.Fatal(err)
		}
	}
	if !skipSynth {
		stats, err := pipeline.Synthesize(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if stats.UnreadableObjects > 0 {
			log.Printf("%d object crops could not be read", stats.UnreadableObjects)
		}
	}
	log.Printf("done (seed %d)", pipeline.Seed())
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		def := config.GetConfigPath()
		if !utils.FileExists(def) {
			return config.Default(), nil
		}
		path = def
	}
	return config.LoadFromFile(path)
}
