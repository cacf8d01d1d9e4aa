package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	var emb Embedder
	var err error
	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		emb, err = NewJinaProvider(cfg.APIKey, cache)
	case ProviderOpenAI:
		emb, err = NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderLocal:
		emb, err = NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrUnsupportedModel, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Model != "" {
		if hp, ok := emb.(*httpProvider); ok {
			hp.model = cfg.Model
		}
	}
	return emb, nil
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. NOTECTX_EMBEDDING_PROVIDER (jina, openai, local)
//  2. Available API keys: JINA_API_KEY, then OPENAI_API_KEY
//  3. Local provider when nothing else is configured
func NewFromEnv() (Embedder, error) {
	provider := os.Getenv(EnvProvider)
	jinaKey := os.Getenv(EnvJinaAPIKey)
	openaiKey := os.Getenv(EnvOpenAIAPIKey)

	cache := NewCache(defaultCacheSize)

	if provider != "" {
		switch strings.ToLower(provider) {
		case ProviderJina:
			return NewJinaProvider(jinaKey, cache)
		case ProviderOpenAI:
			return NewOpenAIProvider(openaiKey, cache)
		case ProviderLocal:
			return NewLocalProvider(cache)
		default:
			return nil, fmt.Errorf("%w: unknown provider %q", ErrUnsupportedModel, provider)
		}
	}

	if jinaKey != "" {
		return NewJinaProvider(jinaKey, cache)
	}
	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey, cache)
	}

	return NewLocalProvider(cache)
}

// DetectProvider returns the provider that would be used based on the
// current environment
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
