// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".hxgrep"

	// EnvConfig names the environment variable overriding the config file path.
	EnvConfig = "HXGREP_CONFIG"
)

const (
	// DefaultMaxFileSize is the largest input file accepted (100 GiB).
	DefaultMaxFileSize int64 = 100 << 30

	// DefaultMemoryBudget bounds the read buffers of one scan (1 GiB).
	DefaultMemoryBudget int64 = 1 << 30

	// MaxConfigFileSize is the largest config file read.
	MaxConfigFileSize int64 = 1 << 20
)
