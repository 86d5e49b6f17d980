package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the retrieval engine and its CLI.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds index storage and chunking configuration.
type IndexConfig struct {
	Backend      string `yaml:"backend"` // "bolt" or "file"
	Name         string `yaml:"name"`    // index key within the store
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "openai", "ollama", "hash"
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	BaseURL    string `yaml:"base_url"`
	Dimension  int    `yaml:"dimension"`
	MaxRetries int    `yaml:"max_retries"`
}

// RetrieveConfig holds query defaults.
type RetrieveConfig struct {
	TopK      int     `yaml:"top_k"`
	Diversity float64 `yaml:"diversity"`
}

// IngestConfig holds document source configuration.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Backend:      "bolt",
			Name:         "main",
			ChunkSize:    800,
			ChunkOverlap: 120,
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			APIKeyEnv:  "OPENAI_API_KEY",
			Dimension:  1536,
			MaxRetries: 3,
		},
		Retrieve: RetrieveConfig{
			TopK:      5,
			Diversity: 0.3,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/.finrag/**"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, returning defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for
// finrag.yaml, then .finrag/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "finrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".finrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DataDir returns the engine's data directory under dir.
func DataDir(dir string) string {
	return filepath.Join(dir, ".finrag")
}

// IndexDBPath returns the path to the BoltDB index store.
func IndexDBPath(dir string) string {
	return filepath.Join(DataDir(dir), "index.db")
}

// IndexFilePath returns the path for the file persistence backend.
func IndexFilePath(dir string) string {
	return filepath.Join(DataDir(dir), "index.bin")
}

// EnsureDataDir ensures the .finrag directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(DataDir(dir), 0755)
}
