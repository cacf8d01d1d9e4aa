package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Environment variables
	EnvProvider     = "NOTECTX_EMBEDDING_PROVIDER"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	MaxBatchSize = 100

	jinaEndpoint   = "https://api.jina.ai/v1/embeddings"
	openaiEndpoint = "https://api.openai.com/v1/embeddings"
)

// httpProvider implements Embedder against an OpenAI-compatible embeddings
// endpoint. Jina and OpenAI share this wire format.
type httpProvider struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewJinaProvider creates an embedder backed by the Jina AI API
func NewJinaProvider(apiKey string, cache *Cache) (Embedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}
	return newHTTPProvider(ProviderJina, jinaEndpoint, apiKey, DefaultJinaModel, JinaDimension, cache), nil
}

// NewOpenAIProvider creates an embedder backed by the OpenAI API
func NewOpenAIProvider(apiKey string, cache *Cache) (Embedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	return newHTTPProvider(ProviderOpenAI, openaiEndpoint, apiKey, DefaultOpenAIModel, OpenAIDimension, cache), nil
}

func newHTTPProvider(name, endpoint, apiKey, model string, dimension int, cache *Cache) *httpProvider {
	return &httpProvider{
		name:      name,
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}
}

func (p *httpProvider) Embed(ctx context.Context, req Request) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}

	// Single texts go through the batch path for one code path to the wire
	resp, err := p.EmbedBatch(ctx, BatchRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

func (p *httpProvider) EmbedBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	config := DefaultRetryConfig()
	embeddings, err := retryWithBackoff(ctx, config, func() ([]*Embedding, error) {
		return p.callAPI(ctx, req.Texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, config.MaxRetries, err)
	}

	if p.cache != nil {
		for i, emb := range embeddings {
			hash := ComputeHash(req.Texts[i])
			emb.Hash = hash
			p.cache.Set(hash, emb)
		}
	}

	return &BatchResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *httpProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]any{
		"input": texts,
		"model": model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(apiResp.Data), len(texts))
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     apiResp.Model,
		}
	}

	return embeddings, nil
}

func (p *httpProvider) Dimension() int {
	return p.dimension
}

func (p *httpProvider) Provider() string {
	return p.name
}

func (p *httpProvider) Model() string {
	return p.model
}

func (p *httpProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic hash-derived vectors without any
// network dependency. Not semantically meaningful, but stable: identical
// text always yields the identical unit vector, which is what offline
// operation and tests need.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "local-hash-embeddings",
		cache: cache,
	}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, req Request) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    NormalizeVector(hashVector(req.Text, LocalDimension)),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}

	if l.cache != nil {
		l.cache.Set(hash, emb)
	}

	return emb, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.Embed(ctx, Request{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

// hashVector expands a text hash across the full vector so every component
// carries signal, not just the first hash-length components.
func hashVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))
	block := seed
	for i := 0; i < dim; i += len(block) {
		for j := 0; j < len(block) && i+j < dim; j++ {
			vector[i+j] = float32(block[j])/127.5 - 1.0
		}
		var counter [8]byte
		binary.LittleEndian.PutUint64(counter[:], uint64(i))
		block = sha256.Sum256(append(seed[:], counter[:]...))
	}
	return vector
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
