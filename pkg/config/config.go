// Package config loads the run configuration from YAML. Every field has a
// default, so a file only needs the keys it changes.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"covertype/pkg/data"
	"covertype/pkg/projection"
	"covertype/pkg/sampling"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Visualize VisualizeConfig `yaml:"visualize"`
	Model     ModelConfig     `yaml:"model"`
	Seed      int64           `yaml:"seed"`
	Log       LogConfig       `yaml:"log"`
}

type DatasetConfig struct {
	Source    string        `yaml:"source"` // uci or csv
	ID        string        `yaml:"id"`
	BaseURL   string        `yaml:"base_url"`
	Path      string        `yaml:"path"`
	Target    string        `yaml:"target"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
}

type SamplingConfig struct {
	Strategy       string `yaml:"strategy"`
	Version        int    `yaml:"version"`
	NNeighbors     int    `yaml:"n_neighbors"`
	NNeighborsVer3 int    `yaml:"n_neighbors_ver3"`
	KNeighbors     int    `yaml:"k_neighbors"`
}

type VisualizeConfig struct {
	Enabled    bool     `yaml:"enabled"`
	OutDir     string   `yaml:"out_dir"`
	Show       bool     `yaml:"show"`
	MaxSamples int      `yaml:"max_samples"`
	Palette    []string `yaml:"palette"`
	// Methods lists the projections to draw, in order.
	Methods []string `yaml:"methods"`
	// Width and Height are in inches.
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	Perplexity    float64 `yaml:"perplexity"`
	LearningRate  float64 `yaml:"learning_rate"` // 0 => auto
	MaxIter       int     `yaml:"max_iter"`
	UMAPNeighbors int     `yaml:"umap_neighbors"`
	UMAPMinDist   float64 `yaml:"umap_min_dist"`
	UMAPEpochs    int     `yaml:"umap_epochs"`
}

type ModelConfig struct {
	NEstimators         int     `yaml:"n_estimators"`
	MaxDepth            int     `yaml:"max_depth"` // 0 => unbounded
	MinSamplesLeaf      int     `yaml:"min_samples_leaf"`
	MinImpurityDecrease float64 `yaml:"min_impurity_decrease"`
	Criterion           string  `yaml:"criterion"`
	TestSize            float64 `yaml:"test_size"`
	Workers             int     `yaml:"workers"` // 0 => one per logical CPU
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
	// File enables a rotated log file next to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration of a plain run on the UCI Covertype
// dataset (id 31).
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Source:    "uci",
			ID:        "31",
			BaseURL:   data.DefaultUCIBaseURL,
			Target:    "Cover_Type",
			Timeout:   2 * time.Minute,
			CacheSize: 4,
		},
		Sampling: SamplingConfig{
			Strategy:       "auto",
			Version:        1,
			NNeighbors:     3,
			NNeighborsVer3: 3,
			KNeighbors:     5,
		},
		Visualize: VisualizeConfig{
			Enabled:       true,
			OutDir:        ".",
			Show:          true,
			MaxSamples:    2000,
			Methods:       []string{"tsne", "umap"},
			Width:         6,
			Height:        6,
			Perplexity:    30,
			MaxIter:       1000,
			UMAPNeighbors: 15,
			UMAPMinDist:   0.1,
			UMAPEpochs:    200,
		},
		Model: ModelConfig{
			NEstimators:    100,
			MinSamplesLeaf: 1,
			Criterion:      "gini",
			TestSize:       0.2,
		},
		Seed: 42,
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: open")
	}
	defer file.Close()

	cfg := Default()
	dec := yaml.NewDecoder(file)
	dec.SetStrict(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "config: decode %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Wrapf(ErrInvalid, "config: "+format, args...)
	}

	switch c.Dataset.Source {
	case "uci":
		if c.Dataset.ID == "" {
			return invalid("dataset.id is required for the uci source")
		}
		if c.Dataset.Timeout <= 0 {
			return invalid("dataset.timeout must be positive, got %s", c.Dataset.Timeout)
		}
	case "csv":
		if c.Dataset.Path == "" || c.Dataset.Target == "" {
			return invalid("dataset.path and dataset.target are required for the csv source")
		}
	default:
		return invalid("dataset.source must be uci or csv, got %q", c.Dataset.Source)
	}
	if c.Dataset.CacheSize < 0 {
		return invalid("dataset.cache_size must be >= 0, got %d", c.Dataset.CacheSize)
	}

	s := c.Sampling
	if s.Version < 1 || s.Version > 3 {
		return invalid("sampling.version must be 1, 2 or 3, got %d", s.Version)
	}
	if s.NNeighbors < 1 || s.NNeighborsVer3 < 1 || s.KNeighbors < 1 {
		return invalid("sampling neighbor counts must be >= 1")
	}

	v := c.Visualize
	if v.MaxSamples < 0 {
		return invalid("visualize.max_samples must be >= 0, got %d", v.MaxSamples)
	}
	if _, err := v.ProjectionMethods(); err != nil {
		return invalid("visualize.methods: %v", err)
	}
	if v.Width <= 0 || v.Height <= 0 {
		return invalid("visualize.width and visualize.height must be positive")
	}
	if v.Perplexity <= 0 || v.LearningRate < 0 || v.MaxIter <= 0 {
		return invalid("visualize: perplexity and max_iter must be positive, learning_rate >= 0")
	}
	if v.UMAPNeighbors < 2 || v.UMAPEpochs <= 0 || v.UMAPMinDist < 0 {
		return invalid("visualize: umap_neighbors must be >= 2, umap_epochs positive, umap_min_dist >= 0")
	}

	m := c.Model
	if m.NEstimators <= 0 {
		return invalid("model.n_estimators must be positive, got %d", m.NEstimators)
	}
	if m.MaxDepth < 0 || m.Workers < 0 {
		return invalid("model.max_depth and model.workers must be >= 0")
	}
	if m.MinSamplesLeaf < 1 || m.MinImpurityDecrease < 0 {
		return invalid("model.min_samples_leaf must be >= 1 and model.min_impurity_decrease >= 0")
	}
	if m.Criterion != "gini" && m.Criterion != "entropy" {
		return invalid("model.criterion must be gini or entropy, got %q", m.Criterion)
	}
	if m.TestSize <= 0 || m.TestSize >= 1 {
		return invalid("model.test_size must be in (0, 1), got %g", m.TestSize)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return invalid("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// ProjectionMethods parses Methods. The list must be non-empty and free of
// repeats, since each method writes its own image.
func (v VisualizeConfig) ProjectionMethods() ([]projection.Method, error) {
	if len(v.Methods) == 0 {
		return nil, errors.New("at least one method is required")
	}
	seen := make(map[projection.Method]bool, len(v.Methods))
	out := make([]projection.Method, 0, len(v.Methods))
	for _, name := range v.Methods {
		m, err := projection.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			return nil, errors.Errorf("%s listed twice", m)
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, nil
}

// Params converts the section into resampler parameters.
func (s SamplingConfig) Params(seed int64) sampling.Config {
	return sampling.Config{
		Strategy:       s.Strategy,
		Version:        s.Version,
		NNeighbors:     s.NNeighbors,
		NNeighborsVer3: s.NNeighborsVer3,
		KNeighbors:     s.KNeighbors,
		Seed:           seed,
	}
}
