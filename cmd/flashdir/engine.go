package main

import (
	"github.com/blksword/flashdir/pkg/config"
	"github.com/blksword/flashdir/pkg/engine"
)

// buildEngine opens a ready-to-use engine configured from cfg, which
// loadConfig builds from config.yaml over the defaults with environment
// variables overlaid. No cobra flag overrides these settings.
func buildEngine(cfg config.Config) (*engine.ScanEngine, error) {
	e := engine.New(engine.Options{
		StateDir:         cfg.StateDir,
		MemoryMaxEntries: cfg.MemoryMaxEntries,
		MemoryMaxBytes:   cfg.MemoryMaxSizeBytes(),
		DiskMaxBytes:     cfg.DiskMaxSizeBytes(),
		DiskTTL:          cfg.DiskTTL(),
		Workers:          cfg.Workers,
		MaxIOPS:          cfg.MaxIOPS,
		IODelay:          cfg.IODelayDuration(),
	})
	if err := e.Open(); err != nil {
		return nil, err
	}
	return e, nil
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Defaults()
	}
	return config.ApplyEnv(cfg)
}
