package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"docagent/internal/domain"
)

// Duration wraps time.Duration so YAML can carry values like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all configuration for the agent. It is constructed once at
// process start and threaded through component constructors; nothing reads
// it as ambient global state.
type Config struct {
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Tools      ToolsConfig      `yaml:"tools"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkingConfig controls the document splitter.
type ChunkingConfig struct {
	MaxSize int `yaml:"max_size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig selects the embedding backend. Vectors are comparable
// only within one model identity; changing Model invalidates the index.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "ollama", "openai", "custom"
	Model     string `yaml:"model"`       // e.g. "bge-m3", "nomic-embed-text"
	BaseURL   string `yaml:"base_url"`    // overrides the provider default
	APIKeyEnv string `yaml:"api_key_env"` // environment variable for the API key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// ModelConfig is one selectable generation backend.
type ModelConfig struct {
	ID        string `yaml:"id"`
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// GenerationConfig holds the model registry and generation limits.
type GenerationConfig struct {
	DefaultModel string        `yaml:"default_model"`
	Models       []ModelConfig `yaml:"models"`
	Timeout      Duration      `yaml:"timeout"`
	MaxTokens    int           `yaml:"max_tokens"`
	Temperature  float64       `yaml:"temperature"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK           int           `yaml:"top_k"`
	MinScore       float64       `yaml:"min_score"`
	Timeout        Duration      `yaml:"timeout"`
	PromptBudget   int           `yaml:"prompt_budget"` // characters of context packed into the prompt
	QueryCacheSize int           `yaml:"query_cache_size"`
	QueryCacheTTL  Duration      `yaml:"query_cache_ttl"`
}

// ToolsConfig configures the built-in tools.
type ToolsConfig struct {
	Weather WeatherConfig `yaml:"weather"`
	Timeout Duration      `yaml:"timeout"`
}

// WeatherConfig points at the external weather provider. The provider and
// its authentication are collaborators outside this process.
type WeatherConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// HistoryConfig bounds the conversation window fed to synthesis. The
// on-disk log itself is unbounded.
type HistoryConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MaxSize: 300,
			Overlap: 30,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "bge-m3",
			Dimension: 1024,
			BatchSize: 100,
		},
		Generation: GenerationConfig{
			DefaultModel: "qwen3:8b",
			Models: []ModelConfig{
				{ID: "qwen3:8b", Provider: "ollama", Model: "qwen3:8b"},
				{ID: "qwen3:1.7b", Provider: "ollama", Model: "qwen3:1.7b"},
				{ID: "deepseek-r1:1.5b", Provider: "ollama", Model: "deepseek-r1:1.5b"},
			},
			Timeout:     Duration(120 * time.Second),
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Retrieve: RetrieveConfig{
			TopK:           3,
			MinScore:       0.7,
			Timeout:        Duration(30 * time.Second),
			PromptBudget:   4000,
			QueryCacheSize: 100,
			QueryCacheTTL:  Duration(5 * time.Minute),
		},
		Tools: ToolsConfig{
			Weather: WeatherConfig{
				Enabled:   true,
				BaseURL:   "https://restapi.amap.com/v3/weather/weatherInfo",
				APIKeyEnv: "AMAP_API_KEY",
			},
			Timeout: Duration(10 * time.Second),
		},
		History: HistoryConfig{
			MaxTurns: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate rejects configurations that would corrupt the pipeline.
func (c *Config) Validate() error {
	if c.Chunking.MaxSize <= 0 || c.Chunking.Overlap <= 0 {
		return fmt.Errorf("%w: chunk max_size and overlap must be positive", domain.ErrInvalidConfiguration)
	}
	if c.Chunking.Overlap >= c.Chunking.MaxSize {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than max_size (%d)",
			domain.ErrInvalidConfiguration, c.Chunking.Overlap, c.Chunking.MaxSize)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive", domain.ErrInvalidConfiguration)
	}
	if c.Generation.DefaultModel == "" {
		return fmt.Errorf("%w: generation default_model is required", domain.ErrInvalidConfiguration)
	}
	for _, m := range c.Generation.Models {
		if m.ID == c.Generation.DefaultModel {
			return nil
		}
	}
	return fmt.Errorf("%w: default_model %q is not in the model registry",
		domain.ErrInvalidConfiguration, c.Generation.DefaultModel)
}

// Load loads configuration from a YAML file, filling unset fields with
// defaults.
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

// LoadFromDir loads configuration from a data directory (docagent.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docagent.yaml")
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

// IndexDBPath returns the path to the store database inside the data dir.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, "index.db")
}

// EnsureDataDir ensures the data directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
