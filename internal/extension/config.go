package extension

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// PackConfigFile is the optional per-pack metadata file.
const PackConfigFile = "config.yaml"

// PackConfig is the contents of a pack's config.yaml.
type PackConfig struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	ShortTitle   string `yaml:"short-title"`
	Description  string `yaml:"description"`
	RequiresCore string `yaml:"requires-core"`
	Priority     *int   `yaml:"priority"`
}

// LoadPackConfig reads config.yaml from dir. A pack without the file gets a
// zero config.
func LoadPackConfig(fsys afero.Fs, dir string) (*PackConfig, error) {
	path := filepath.Join(dir, PackConfigFile)
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &PackConfig{}, nil
		}
		return nil, fmt.Errorf("reading pack config %s: %w", path, err)
	}

	var cfg PackConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing pack config %s: %w", path, err)
	}

	if cfg.Version != "" {
		if _, err := semver.NewVersion(cfg.Version); err != nil {
			return nil, fmt.Errorf("pack config %s: invalid version %q: %w", path, cfg.Version, err)
		}
	}
	if cfg.RequiresCore != "" {
		if _, err := semver.NewConstraint(cfg.RequiresCore); err != nil {
			return nil, fmt.Errorf("pack config %s: invalid requires-core %q: %w", path, cfg.RequiresCore, err)
		}
	}

	return &cfg, nil
}
