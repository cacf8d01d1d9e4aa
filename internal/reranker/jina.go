package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// EnvJinaAPIKey names the API key shared with the Jina embedding provider
	EnvJinaAPIKey = "JINA_API_KEY"

	// DefaultJinaModel is the rerank model used when none is configured
	DefaultJinaModel = "jina-reranker-v2-base-multilingual"

	jinaRerankEndpoint = "https://api.jina.ai/v1/rerank"
)

// JinaReranker scores pairs with the Jina rerank API
type JinaReranker struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewJinaReranker creates a reranker backed by the Jina rerank API. The key
// falls back to JINA_API_KEY when empty.
func NewJinaReranker(apiKey, model string) (*JinaReranker, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrUnavailable, EnvJinaAPIKey)
	}
	if model == "" {
		model = DefaultJinaModel
	}
	return &JinaReranker{
		endpoint: jinaRerankEndpoint,
		apiKey:   apiKey,
		model:    model,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (j *JinaReranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	reqBody := map[string]any{
		"model":     j.model,
		"query":     query,
		"documents": documents,
		"top_n":     len(documents),
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Results) != len(documents) {
		return nil, fmt.Errorf("%w: got %d scores for %d documents", ErrUnavailable, len(apiResp.Results), len(documents))
	}

	// The API returns results sorted by relevance; map back to input order
	scores := make([]float64, len(documents))
	for _, r := range apiResp.Results {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, fmt.Errorf("%w: result index %d out of range", ErrUnavailable, r.Index)
		}
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}

func (j *JinaReranker) Available() bool { return true }

func (j *JinaReranker) Close() error {
	j.httpClient.CloseIdleConnections()
	return nil
}
