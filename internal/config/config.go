package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/xab-mack/jvmdeps/internal/model"
)

// FileName is the config file searched for upwards from the manifest directory.
const FileName = ".jvmdeps.yaml"

type IgnoreRule struct {
	Target     string `yaml:"target" json:"target"`
	Dependency string `yaml:"dependency" json:"dependency"`
	Kind       string `yaml:"kind" json:"kind"`
	Reason     string `yaml:"reason" json:"reason"`
	Expires    string `yaml:"expires" json:"expires"`
}

type Config struct {
	CheckMissingDeps      bool         `yaml:"checkMissingDeps"`
	CheckIntransitiveDeps string       `yaml:"checkIntransitiveDeps"`
	CheckUnnecessaryDeps  bool         `yaml:"checkUnnecessaryDeps"`
	CheckPackageDeps      bool         `yaml:"checkPackageDeps"`
	Workers               int          `yaml:"workers"`
	LogLevel              string       `yaml:"logLevel"`
	CacheDir              string       `yaml:"cacheDir"`
	Baseline              string       `yaml:"baseline"`
	Ignore                []IgnoreRule `yaml:"ignore"`
}

func Default() Config {
	return Config{
		CheckIntransitiveDeps: string(model.LevelNone),
		Workers:               runtime.NumCPU(),
		LogLevel:              "info",
	}
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	if _, err := model.ParseCheckLevel(c.CheckIntransitiveDeps); err != nil {
		return fmt.Errorf("checkIntransitiveDeps: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for i, r := range c.Ignore {
		if r.Kind != "" && !knownKind(r.Kind) {
			return fmt.Errorf("ignore[%d]: unknown kind %q", i, r.Kind)
		}
	}
	return nil
}

func knownKind(k string) bool {
	for _, kind := range model.Kinds {
		if string(kind) == k {
			return true
		}
	}
	return false
}

// Load searches startDir and its parents for FileName. Missing files yield
// the defaults and an empty path.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return cfg, "", err
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, err
			}
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, candidate, fmt.Errorf("parse %s: %w", candidate, err)
			}
			if cfg.Baseline != "" && !filepath.IsAbs(cfg.Baseline) {
				cfg.Baseline = filepath.Join(dir, cfg.Baseline)
			}
			return cfg, candidate, cfg.Validate()
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached root
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// Marshal renders cfg as YAML for `jvmdeps init`.
func Marshal(cfg Config) ([]byte, error) { return yaml.Marshal(cfg) }
