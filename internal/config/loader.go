package config

import (
	stderrors "errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/hxgrep/internal/constants"
	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/safe"
)

// Loader locates and reads the config file.
type Loader struct {
	path     string
	explicit bool
}

// NewLoader creates a config loader. The file is resolved in this order:
//  1. path, when not empty (the --config flag).
//  2. HXGREP_CONFIG environment variable.
//  3. ~/.hxgrep/config.yaml.
//
// A file named by 1 or 2 must exist; the default file is optional.
func NewLoader(path string) *Loader {
	if path != "" {
		return &Loader{path: path, explicit: true}
	}
	if env := os.Getenv(constants.EnvConfig); env != "" {
		return &Loader{path: env, explicit: true}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return &Loader{}
	}
	return &Loader{path: filepath.Join(homeDir, constants.DefaultDir, constants.ConfigFile)}
}

// Path returns the config file path, empty when none can be resolved.
func (l *Loader) Path() string { return l.path }

// Load returns the defaults overlaid with the config file and the
// environment. The result is not validated.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := safe.ReadFile(l.path, &safe.FileOptions{MaxSize: constants.MaxConfigFileSize})
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &errors.ConfigError{Field: "config file", Value: l.path, Msg: err.Error()}
			}
		case stderrors.Is(err, os.ErrNotExist) && !l.explicit:
		default:
			return nil, &errors.ConfigError{Field: "config file", Value: l.path, Msg: err.Error()}
		}
	}

	if err := MergeFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the loader's path, creating its directory.
func (l *Loader) Save(cfg *Config) error {
	if l.path == "" {
		return &errors.ConfigError{Field: "config file", Msg: "no path resolved"}
	}
	//nolint:gosec // G301: Directory needs standard permissions for traversal
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0o600)
}
