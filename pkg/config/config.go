// Package config loads flashdir's optional ~/.flashdir/config.yaml and
// layers it under flag and environment overrides.
//
// Precedence follows justinlime-GileBrowser's config/config.go exactly:
// flag > env > config file > default. GileBrowser has no config file tier
// (just flag > env > default); this adds one more rung below env, read
// with gopkg.in/yaml.v3 as SPEC_FULL.md's ambient-stack section calls for.
// cmd/flashdir defines no flags for these settings, so the layers it
// applies are env > config file > default.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the scan engine and its CLI accept.
type Config struct {
	StateDir string `yaml:"state_dir"`

	MemoryMaxEntries int   `yaml:"memory_max_entries"`
	MemoryMaxBytes   int64 `yaml:"memory_max_size_mb"`

	DiskMaxBytes int64 `yaml:"disk_max_size_mb"`
	DiskTTLDays  int   `yaml:"disk_ttl_days"`

	Workers int `yaml:"workers"`
	MaxIOPS int `yaml:"max_iops"`
	IODelay int `yaml:"io_delay_ms"`

	Ignore []string `yaml:"ignore"`
}

// Defaults mirrors the spec's defaults for every bound (§4.4): 30 entries /
// 200 MiB memory, 500 MiB / 7 days disk, clamp(2*cpu,8,32) workers (0 here
// delegates to walk.WorkerCount at call sites).
func Defaults() Config {
	return Config{
		StateDir:         defaultStateDir(),
		MemoryMaxEntries: 30,
		MemoryMaxBytes:   200,
		DiskMaxBytes:     500,
		DiskTTLDays:      7,
		Workers:          0,
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".flashdir")
}

// Load reads ~/.flashdir/config.yaml if present, layering it over
// Defaults(); a missing file is not an error. Environment overrides are
// applied by the caller (cmd/flashdir's loadConfig, via ApplyEnv) after
// Load returns; no flag layer is applied there.
func Load() (Config, error) {
	cfg := Defaults()

	path := filepath.Join(defaultStateDir(), "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables (FLASHDIR_*) on top of cfg,
// lower precedence than flags but higher than the config file.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("FLASHDIR_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := envInt("FLASHDIR_WORKERS"); v != nil {
		cfg.Workers = *v
	}
	if v := envInt("FLASHDIR_MAX_IOPS"); v != nil {
		cfg.MaxIOPS = *v
	}
	return cfg
}

func envInt(name string) *int {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return nil
		}
		n = n*10 + int(c-'0')
	}
	return &n
}

// DiskTTL returns the configured TTL as a time.Duration.
func (c Config) DiskTTL() time.Duration {
	if c.DiskTTLDays <= 0 {
		return 0
	}
	return time.Duration(c.DiskTTLDays) * 24 * time.Hour
}

// MemoryMaxSizeBytes converts the configured MiB bound to bytes.
func (c Config) MemoryMaxSizeBytes() int64 {
	return c.MemoryMaxBytes << 20
}

// DiskMaxSizeBytes converts the configured MiB bound to bytes.
func (c Config) DiskMaxSizeBytes() int64 {
	return c.DiskMaxBytes << 20
}

// IODelayDuration converts the configured millisecond delay.
func (c Config) IODelayDuration() time.Duration {
	return time.Duration(c.IODelay) * time.Millisecond
}
