// Package config loads indexing and querying configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the per-project config file looked up under the project root.
const FileName = ".memboot.yml"

// Config controls chunking, embedding, and discovery.
type Config struct {
	MaxChunkTokens int      `yaml:"max_chunk_tokens"`
	OverlapTokens  int      `yaml:"overlap_tokens"`
	Backend        string   `yaml:"embedding_backend"`
	MaxFeatures    int      `yaml:"max_features"`
	FileExtensions []string `yaml:"file_extensions"`
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxChunkTokens: 500,
		OverlapTokens:  50,
		Backend:        "tfidf",
		MaxFeatures:    512,
		FileExtensions: []string{
			".py", ".go", ".md", ".yaml", ".yml", ".json",
			".txt", ".toml", ".cfg", ".ini", ".rst",
		},
		IgnorePatterns: []string{
			"__pycache__", ".git", "node_modules", ".venv", "venv",
			".mypy_cache", ".ruff_cache", ".pytest_cache", ".eggs",
			"*.egg-info", "dist", "build", ".tox", "vendor", ".idea",
		},
	}
}

// Load reads .memboot.yml from the project root, overlaying the defaults.
// A missing file is not an error.
func Load(root string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	if c.MaxChunkTokens <= 0 {
		return fmt.Errorf("max_chunk_tokens must be positive, got %d", c.MaxChunkTokens)
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.MaxChunkTokens {
		return fmt.Errorf("overlap_tokens must be in [0, max_chunk_tokens), got %d", c.OverlapTokens)
	}
	if c.MaxFeatures <= 0 {
		return fmt.Errorf("max_features must be positive, got %d", c.MaxFeatures)
	}
	switch c.Backend {
	case "tfidf", "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding_backend: %s", c.Backend)
	}
	return nil
}
