// Package config loads updater settings from .blueprint-update.yml in the
// project root, overridden by BLUEPRINT_UPDATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/git-pkgs/blueprints/install"
	"github.com/git-pkgs/blueprints/internal/npm"
	"github.com/git-pkgs/blueprints/state"
)

// FileName is the project-level configuration file.
const FileName = ".blueprint-update.yml"

// Config holds everything the updater can be configured with.
type Config struct {
	// StatePath is the project-relative state file location.
	StatePath string `yaml:"statePath"`

	// Registry is the npm registry base URL.
	Registry string `yaml:"registry"`

	// CacheDir holds unpacked blueprint packages.
	CacheDir string `yaml:"cacheDir"`

	InstallCommand  []string `yaml:"installCommand"`
	GenerateCommand []string `yaml:"generateCommand"`

	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"maxRetries"`

	// Default is the blueprint used when none is named.
	Default *state.Default `yaml:"default"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		StatePath:       state.DefaultPath,
		Registry:        npm.DefaultURL,
		CacheDir:        defaultCacheDir(),
		InstallCommand:  slices.Clone(install.DefaultInstallCommand),
		GenerateCommand: slices.Clone(install.DefaultGenerateCommand),
		Timeout:         30 * time.Second,
		MaxRetries:      5,
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "blueprint-update")
	}
	return filepath.Join(os.TempDir(), "blueprint-update")
}

// Load reads the configuration for the project in dir.
func Load(dir string) (Config, error) {
	cfg := Defaults()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.StatePath = getEnv("BLUEPRINT_UPDATE_STATE_PATH", cfg.StatePath)
	cfg.Registry = getEnv("BLUEPRINT_UPDATE_REGISTRY", cfg.Registry)
	cfg.CacheDir = getEnv("BLUEPRINT_UPDATE_CACHE_DIR", cfg.CacheDir)
	cfg.InstallCommand = getEnvFields("BLUEPRINT_UPDATE_INSTALL_CMD", cfg.InstallCommand)
	cfg.GenerateCommand = getEnvFields("BLUEPRINT_UPDATE_GENERATE_CMD", cfg.GenerateCommand)

	if v := os.Getenv("BLUEPRINT_UPDATE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BLUEPRINT_UPDATE_TIMEOUT: %q", v)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("BLUEPRINT_UPDATE_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BLUEPRINT_UPDATE_MAX_RETRIES: %q", v)
		}
		cfg.MaxRetries = n
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must not be negative, got %d", c.MaxRetries)
	}
	if len(c.InstallCommand) == 0 {
		return errors.New("installCommand must not be empty")
	}
	if len(c.GenerateCommand) == 0 {
		return errors.New("generateCommand must not be empty")
	}
	if c.StatePath == "" {
		return errors.New("statePath must not be empty")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFields(key string, def []string) []string {
	if v := strings.Fields(os.Getenv(key)); len(v) > 0 {
		return v
	}
	return def
}
