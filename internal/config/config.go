// Package config provides configuration loading and management.
//
// Values are layered: built-in defaults, then the YAML config file, then
// HXGREP_* environment variables. Command-line flags are applied last by
// the CLI.
package config

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/coral-mesh/hxgrep/internal/constants"
	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/safe"
	"github.com/coral-mesh/hxgrep/internal/scan"
)

// Config is the complete hxgrep configuration.
type Config struct {
	Scan   ScanConfig   `yaml:"scan"`
	Output OutputConfig `yaml:"output"`
	Limits LimitsConfig `yaml:"limits"`
	Log    LogConfig    `yaml:"log"`
}

// ScanConfig controls how inputs are read and searched.
type ScanConfig struct {
	Width      int      `yaml:"width" env:"HXGREP_WIDTH"`
	ChunkSize  ByteSize `yaml:"chunk_size" env:"HXGREP_CHUNK_SIZE"`
	OverlapCap int      `yaml:"overlap_cap" env:"HXGREP_OVERLAP_CAP"`
	MatchCap   ByteSize `yaml:"match_cap" env:"HXGREP_MATCH_CAP"`
	Parallel   bool     `yaml:"parallel" env:"HXGREP_PARALLEL"`
	// Workers is the parallel worker count; 0 means one per CPU.
	Workers int `yaml:"workers" env:"HXGREP_WORKERS"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	Format     string `yaml:"format" env:"HXGREP_FORMAT"`
	Separator  string `yaml:"separator" env:"HXGREP_SEPARATOR"`
	HideOffset bool   `yaml:"hide_offset" env:"HXGREP_HIDE_OFFSET"`
	Color      string `yaml:"color" env:"HXGREP_COLOR"`
	Progress   bool   `yaml:"progress" env:"HXGREP_PROGRESS"`
}

// LimitsConfig bounds resource use.
type LimitsConfig struct {
	MaxFileSize    ByteSize `yaml:"max_file_size" env:"HXGREP_MAX_FILE_SIZE"`
	MemoryBudget   ByteSize `yaml:"memory_budget" env:"HXGREP_MEMORY_BUDGET"`
	FollowSymlinks bool     `yaml:"follow_symlinks" env:"HXGREP_FOLLOW_SYMLINKS"`
}

// LogConfig controls diagnostics on stderr.
type LogConfig struct {
	Level  string `yaml:"level" env:"HXGREP_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"HXGREP_LOG_PRETTY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Width:      scan.DefaultWidth,
			ChunkSize:  scan.DefaultChunkSize,
			OverlapCap: scan.DefaultOverlapCap,
			MatchCap:   scan.DefaultMatchCap,
		},
		Output: OutputConfig{
			Format:    "hex",
			Separator: " ",
			Color:     "auto",
		},
		Limits: LimitsConfig{
			MaxFileSize:  ByteSize(constants.DefaultMaxFileSize),
			MemoryBudget: ByteSize(constants.DefaultMemoryBudget),
		},
		Log: LogConfig{
			Level:  "warn",
			Pretty: true,
		},
	}
}

// AvailableMemory reports the memory available to the process.
var AvailableMemory = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// EffectiveMemoryBudget is the configured budget clamped to half of the
// available memory. The configured value is used when memory cannot be
// queried.
func (c *Config) EffectiveMemoryBudget() int64 {
	budget := int64(c.Limits.MemoryBudget)
	avail, err := AvailableMemory()
	if err != nil || avail == 0 {
		return budget
	}
	if half, _ := safe.Uint64ToInt64(avail / 2); half < budget {
		return half
	}
	return budget
}

// EffectiveWorkers resolves Workers to a positive count when parallel
// scanning is enabled, and 1 otherwise.
func (c *Config) EffectiveWorkers() int {
	if !c.Scan.Parallel {
		return 1
	}
	if c.Scan.Workers > 0 {
		return c.Scan.Workers
	}
	return runtime.NumCPU()
}

// Validate checks the configuration and returns a *errors.ConfigError for
// the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Scan.Width < 1 || c.Scan.Width > scan.MaxWidth:
		return &errors.ConfigError{Field: "width", Value: c.Scan.Width, Msg: "must be between 1 and 8192"}
	case c.Scan.ChunkSize <= 0:
		return &errors.ConfigError{Field: "chunk size", Value: c.Scan.ChunkSize, Msg: "must be positive"}
	case c.Scan.Workers < 0:
		return &errors.ConfigError{Field: "workers", Value: c.Scan.Workers, Msg: "must not be negative"}
	case c.Scan.OverlapCap <= 0:
		return &errors.ConfigError{Field: "overlap cap", Value: c.Scan.OverlapCap, Msg: "must be positive"}
	case c.Scan.MatchCap <= 0:
		return &errors.ConfigError{Field: "match cap", Value: c.Scan.MatchCap, Msg: "must be positive"}
	case int64(c.Scan.OverlapCap) > int64(c.Scan.MatchCap):
		return &errors.ConfigError{Field: "overlap cap", Value: c.Scan.OverlapCap, Msg: "must not exceed the match cap"}
	case c.Limits.MaxFileSize < 0:
		return &errors.ConfigError{Field: "max file size", Value: c.Limits.MaxFileSize, Msg: "must not be negative"}
	case c.Limits.MemoryBudget <= 0:
		return &errors.ConfigError{Field: "memory budget", Value: c.Limits.MemoryBudget, Msg: "must be positive"}
	}

	if budget := c.EffectiveMemoryBudget(); int64(c.Scan.ChunkSize) > budget/4 {
		return &errors.ConfigError{
			Field: "chunk size",
			Value: c.Scan.ChunkSize,
			Msg:   "exceeds a quarter of the memory budget (" + ByteSize(budget).String() + ")",
		}
	}

	switch c.Output.Format {
	case "hex", "json", "csv", "plain":
	default:
		return &errors.ConfigError{Field: "format", Value: c.Output.Format, Msg: "must be hex, json, csv or plain"}
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return &errors.ConfigError{Field: "color", Value: c.Output.Color, Msg: "must be auto, always or never"}
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error", "off":
	default:
		return &errors.ConfigError{Field: "log level", Value: c.Log.Level, Msg: "must be trace, debug, info, warn, error or off"}
	}
	return nil
}
