package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/webbundle/internal/branding"
	"github.com/spf13/viper"
)

const fileType = "yaml"

// Config holds every setting the build consults.
type Config struct {
	// Root is the project root all relative paths are resolved against.
	Root string `mapstructure:"root"`

	Core       CoreConfig       `mapstructure:"core"`
	Packs      PacksConfig      `mapstructure:"packs"`
	Output     OutputConfig     `mapstructure:"output"`
	Build      BuildConfig      `mapstructure:"build"`
	Bundle     BundleConfig     `mapstructure:"bundle"`
	Log        LogConfig        `mapstructure:"log"`
	Resolution ResolutionConfig `mapstructure:"resolution"`
}

// CoreConfig locates the core resource root.
type CoreConfig struct {
	Path    string `mapstructure:"path"`
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// PacksConfig locates the directory holding expansion packs.
type PacksConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// BuildConfig tunes the orchestrator.
type BuildConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// BundleConfig tunes the serializer.
type BundleConfig struct {
	Preamble     string `mapstructure:"preamble"`
	PreambleFile string `mapstructure:"preamble_file"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ResolutionConfig holds the overlay order for a pack scope. The tokens
// "pack" and "core" stand for the pack being built and the core root; any
// other entry is a directory (relative to Root) inserted as an extra overlay.
type ResolutionConfig struct {
	Order []string `mapstructure:"order"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", ".")
	v.SetDefault("core.path", "core")
	v.SetDefault("core.name", "core")
	v.SetDefault("core.version", "")
	v.SetDefault("packs.path", "expansion-packs")
	v.SetDefault("output.path", "dist")
	v.SetDefault("build.concurrency", 4)
	v.SetDefault("bundle.preamble", "")
	v.SetDefault("bundle.preamble_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("resolution.order", []string{"pack", "core"})
}

// Load reads configuration into v and decodes it. When file is empty the
// config is looked up as <root>/webbundle.yaml and a missing file is not an
// error; an explicitly named file must exist.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	} else {
		v.SetConfigName(branding.ConfigName())
		v.SetConfigType(fileType)
		v.AddConfigPath(v.GetString("root"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Build.Concurrency < 1 {
		cfg.Build.Concurrency = 1
	}
	return &cfg, nil
}

// Abs resolves p against the project root unless it is already absolute.
func (c *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// CorePath returns the resolved core root directory.
func (c *Config) CorePath() string { return c.Abs(c.Core.Path) }

// PacksPath returns the resolved expansion pack directory.
func (c *Config) PacksPath() string { return c.Abs(c.Packs.Path) }

// OutputPath returns the resolved artifact directory.
func (c *Config) OutputPath() string { return c.Abs(c.Output.Path) }
