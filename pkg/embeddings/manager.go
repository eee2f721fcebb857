// Package embeddings generates fixed-dimension text embeddings using
// pluggable backends.
package embeddings

import (
	"fmt"
	"math"
	"sync"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

// Supported backend types.
const (
	// BackendTypeOllama uses the Ollama native API.
	BackendTypeOllama = "ollama"
	// BackendTypeOpenAI uses any OpenAI-compatible embeddings API.
	BackendTypeOpenAI = "openai"
	// BackendTypePlaceholder uses hash-based embeddings for testing.
	BackendTypePlaceholder = "placeholder"
)

// Config holds configuration for the embedding manager.
type Config struct {
	// BackendType specifies which backend to use:
	// - "ollama": Ollama native API
	// - "openai": Generic OpenAI-compatible API
	// - "placeholder": Hash-based embeddings for testing
	BackendType string

	// BaseURL is the base URL for the embedding service.
	BaseURL string

	// Model is the model name to use (e.g. "nomic-embed-text").
	Model string

	// Dimension is the embedding dimension (default 768 for nomic-embed-text).
	Dimension int

	// EnableCache enables caching of query embeddings.
	EnableCache bool

	// MaxCacheSize is the maximum number of embeddings to cache (default 1000).
	MaxCacheSize int
}

// Backend interface for different embedding implementations.
type Backend interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	Dimension() int
	Close() error
}

// Manager manages embedding generation using pluggable backends.
// All vectors returned by the manager are L2-normalized so that the same
// vector space is used for both indexed chunks and queries.
type Manager struct {
	config  *Config
	backend Backend
	cache   *cache
	mu      sync.Mutex
}

// NewManager creates a new embedding manager.
func NewManager(config *Config) (*Manager, error) {
	if config.Dimension == 0 {
		config.Dimension = 768
	}
	if config.MaxCacheSize == 0 {
		config.MaxCacheSize = 1000
	}
	if config.BackendType == "" {
		config.BackendType = BackendTypePlaceholder
	}

	var backend Backend
	var err error

	switch config.BackendType {
	case BackendTypeOllama:
		backend, err = NewOllamaBackend(config.BaseURL, config.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama backend: %w", err)
		}

	case BackendTypeOpenAI:
		if config.BaseURL == "" {
			return nil, fmt.Errorf("BaseURL is required for %s backend", config.BackendType)
		}
		if config.Model == "" {
			return nil, fmt.Errorf("model is required for %s backend", config.BackendType)
		}
		backend, err = NewOpenAICompatibleBackend(config.BaseURL, config.Model, config.Dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s backend: %w", config.BackendType, err)
		}

	case BackendTypePlaceholder:
		backend = &PlaceholderBackend{dimension: config.Dimension}

	default:
		return nil, fmt.Errorf("unknown backend type: %s (supported: ollama, openai, placeholder)", config.BackendType)
	}

	m := &Manager{
		config:  config,
		backend: backend,
	}

	if config.EnableCache {
		m.cache = newCache(config.MaxCacheSize)
	}

	return m, nil
}

// GenerateEmbedding generates L2-normalized embeddings for the given texts.
// Returns a 2D slice where each row is an embedding for the corresponding text.
func (m *Manager) GenerateEmbedding(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	// Check cache for single text requests
	if len(texts) == 1 && m.cache != nil {
		if cached := m.cache.Get(texts[0]); cached != nil {
			logger.Debugf("Cache hit for embedding")
			return [][]float32{cached}, nil
		}
	}

	m.mu.Lock()
	embedded, err := m.backend.EmbedBatch(texts)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	for i := range embedded {
		Normalize(embedded[i])
	}

	// Cache single embeddings
	if len(texts) == 1 && m.cache != nil {
		m.cache.Put(texts[0], embedded[0])
	}

	logger.Debugf("Generated %d embeddings (dimension: %d)", len(embedded), m.backend.Dimension())
	return embedded, nil
}

// CacheStats returns cache statistics.
func (m *Manager) CacheStats() map[string]any {
	if m.cache == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled": true,
		"hits":    m.cache.Hits(),
		"misses":  m.cache.Misses(),
		"size":    m.cache.Size(),
		"maxsize": m.config.MaxCacheSize,
	}
}

// Close releases resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backend != nil {
		return m.backend.Close()
	}
	return nil
}

// Dimension returns the embedding dimension.
func (m *Manager) Dimension() int {
	if m.backend != nil {
		return m.backend.Dimension()
	}
	return m.config.Dimension
}

// Normalize scales the vector to unit length in place. Zero vectors are
// left untouched.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
