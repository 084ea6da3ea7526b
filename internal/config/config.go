// Package config defines the explicit configuration surface for the
// Archivo CLI. All options live in one struct, persisted as TOML at
// ~/.archivo/config.toml, so there is a single place to see every knob.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/archivo-labs/archivo-cli/internal/chunker"
	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

// Embedding provider names accepted in the config file.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Default values applied when the config file is absent or partial.
const (
	DefaultTopK                 = 5
	DefaultMaxChunksPerDocument = 2
	DefaultOversampleFactor     = 3
	DefaultLexicalWeight        = 0.25
	DefaultBatchSize            = 32
)

// Config is the full configuration surface.
type Config struct {
	// DataDir holds the vector index and lexical index. Defaults to
	// ~/.archivo/data.
	DataDir string `toml:"data_dir"`

	Embedding EmbeddingConfig `toml:"embedding"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	// Model names the embedding model. Empty uses the provider default.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url,omitempty"`

	// APIKey authenticates against OpenAI. The OPENAI_API_KEY
	// environment variable takes precedence when set.
	APIKey string `toml:"api_key,omitempty"`

	// Dimensions overrides the model's vector size.
	Dimensions int `toml:"dimensions,omitempty"`

	// BatchSize caps texts per embedding API call.
	BatchSize int `toml:"batch_size"`

	// RequestsPerSecond rate-limits embedding calls. Zero uses the
	// provider default.
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

// ChunkingConfig tunes the document chunker.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// RetrievalConfig tunes query-time ranking.
type RetrievalConfig struct {
	// TopK is how many passages a query returns.
	TopK int `toml:"top_k"`

	// MaxChunksPerDocument caps how many chunks of one document may
	// appear in a result set.
	MaxChunksPerDocument int `toml:"max_chunks_per_document"`

	// OversampleFactor multiplies TopK when querying the vector index,
	// leaving headroom for the per-document cap.
	OversampleFactor int `toml:"oversample_factor"`

	// LexicalWeight blends term overlap into the similarity score.
	// Zero disables the blend; must stay within [0, 1].
	LexicalWeight float64 `toml:"lexical_weight"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Embedding: EmbeddingConfig{
			Provider:  ProviderOllama,
			BatchSize: DefaultBatchSize,
		},
		Chunking: ChunkingConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:                 DefaultTopK,
			MaxChunksPerDocument: DefaultMaxChunksPerDocument,
			OversampleFactor:     DefaultOversampleFactor,
			LexicalWeight:        DefaultLexicalWeight,
		},
	}
}

// DefaultConfigDir returns ~/.archivo.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".archivo"), nil
}

// Load reads the config file at path, layered over defaults. A missing
// file yields the defaults. The result is validated before return.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %v: %w", path, err, domain.ErrInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads from ~/.archivo/config.toml.
func LoadDefault() (Config, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return Config{}, err
	}
	return Load(filepath.Join(dir, "config.toml"))
}

// Save writes the config as TOML with restricted permissions.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate rejects configurations that cannot produce a working
// pipeline.
func (c Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider %q: %w", c.Embedding.Provider, domain.ErrInvalidConfig)
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunk size %d: %w", c.Chunking.Size, domain.ErrInvalidConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunk overlap %d for size %d: %w", c.Chunking.Overlap, c.Chunking.Size, domain.ErrInvalidConfig)
	}

	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size %d: %w", c.Embedding.BatchSize, domain.ErrInvalidConfig)
	}

	r := c.Retrieval
	if r.TopK <= 0 {
		return fmt.Errorf("top_k %d: %w", r.TopK, domain.ErrInvalidConfig)
	}
	if r.MaxChunksPerDocument <= 0 {
		return fmt.Errorf("max_chunks_per_document %d: %w", r.MaxChunksPerDocument, domain.ErrInvalidConfig)
	}
	if r.OversampleFactor < 1 {
		return fmt.Errorf("oversample_factor %d: %w", r.OversampleFactor, domain.ErrInvalidConfig)
	}
	if r.LexicalWeight < 0 || r.LexicalWeight > 1 {
		return fmt.Errorf("lexical_weight %g: %w", r.LexicalWeight, domain.ErrInvalidConfig)
	}

	return nil
}

// ResolvedDataDir returns the configured data directory, defaulting to
// ~/.archivo/data.
func (c Config) ResolvedDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// IndexPath returns the vector index database location.
func (c Config) IndexPath() (string, error) {
	dir, err := c.ResolvedDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}

// LexicalPath returns the bleve index location.
func (c Config) LexicalPath() (string, error) {
	dir, err := c.ResolvedDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lexical.bleve"), nil
}

// ResolveAPIKey returns the effective OpenAI API key, preferring the
// environment variable.
func (c Config) ResolveAPIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return c.Embedding.APIKey
}
