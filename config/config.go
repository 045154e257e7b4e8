// Package config loads YAML run configuration for the clipbench CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is one evaluation run configuration.
type Config struct {
	Model   string        `yaml:"model"`
	Dataset DatasetConfig `yaml:"dataset"`
	Encoder EncoderConfig `yaml:"encoder"`
	Run     RunConfig     `yaml:"run"`
	Store   StoreConfig   `yaml:"store"`
	Output  OutputConfig  `yaml:"output"`
}

// DatasetConfig selects the dataset source.
type DatasetConfig struct {
	// Kind is "manifest", "directory" or "s3".
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`     // manifest file or directory root
	Bucket   string `yaml:"bucket"`   // s3 only
	Manifest string `yaml:"manifest"` // s3 only: manifest object key
}

// EncoderConfig selects the embedding model backend.
type EncoderConfig struct {
	// Kind is "openai" or "onnx".
	Kind       string `yaml:"kind"`
	APIKey     string `yaml:"api_key"`     // openai: falls back to OPENAI_API_KEY
	BaseURL    string `yaml:"base_url"`    // openai: optional override
	ModelName  string `yaml:"model_name"`  // openai embedding model
	TextModel  string `yaml:"text_model"`  // onnx: text tower model path
	ImageModel string `yaml:"image_model"` // onnx: vision tower model path
	Metadata   string `yaml:"metadata"`    // onnx: metadata JSON path
	Vocab      string `yaml:"vocab"`       // onnx: tokenizer vocabulary path
	Dimension  int    `yaml:"dimension"`

	// Remote encoder middleware.
	CacheTTL   string `yaml:"cache_ttl"` // e.g. "1h"; empty disables caching
	MaxRetries int    `yaml:"max_retries"`
}

// RunConfig holds the evaluation parameters.
type RunConfig struct {
	Template      string `yaml:"template"`
	BatchSize     int    `yaml:"batch_size"`
	Normalization string `yaml:"normalization"` // "per-label" (default) or "per-dim"
}

// StoreConfig selects the results store backend. An empty Kind leaves the
// choice to the caller (the CLI falls back to its store flags).
type StoreConfig struct {
	// Kind is "memory", "file", "postgres", "redis" or "s3".
	Kind   string `yaml:"kind"`
	Path   string `yaml:"path"`   // file store directory
	DSN    string `yaml:"dsn"`    // postgres
	Addr   string `yaml:"addr"`   // redis
	Bucket string `yaml:"bucket"` // s3
	Prefix string `yaml:"prefix"`
}

// OutputConfig holds chart output paths; empty paths skip the chart.
type OutputConfig struct {
	ConfusionChart string `yaml:"confusion_chart"`
	MetricsChart   string `yaml:"metrics_chart"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{Kind: "directory"},
		Encoder: EncoderConfig{Kind: "openai", MaxRetries: 3},
		Run:     RunConfig{BatchSize: 32, Normalization: "per-label"},
	}
}

// Load reads a run configuration from a YAML file, filling unset fields from
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	switch c.Dataset.Kind {
	case "manifest", "directory":
		if c.Dataset.Path == "" {
			return fmt.Errorf("config: dataset.path is required for kind %q", c.Dataset.Kind)
		}
	case "s3":
		if c.Dataset.Bucket == "" || c.Dataset.Manifest == "" {
			return fmt.Errorf("config: dataset.bucket and dataset.manifest are required for kind s3")
		}
	default:
		return fmt.Errorf("config: unknown dataset kind %q", c.Dataset.Kind)
	}
	switch c.Encoder.Kind {
	case "openai":
		// The embeddings API has no image tower; the vision side always runs
		// locally via ONNX.
		if c.Encoder.ImageModel == "" || c.Encoder.Metadata == "" {
			return fmt.Errorf("config: encoder.image_model and encoder.metadata are required for kind openai")
		}
	case "onnx":
		if c.Encoder.TextModel == "" || c.Encoder.ImageModel == "" || c.Encoder.Metadata == "" || c.Encoder.Vocab == "" {
			return fmt.Errorf("config: encoder.text_model, encoder.image_model, encoder.metadata and encoder.vocab are required for kind onnx")
		}
	default:
		return fmt.Errorf("config: unknown encoder kind %q", c.Encoder.Kind)
	}
	switch c.Store.Kind {
	case "", "memory", "file", "postgres", "redis", "s3":
	default:
		return fmt.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
	return nil
}
