package glossary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPGlossary consumes a glossary collaborator over HTTP. The endpoint
// accepts `{"text": ...}` and answers `{"concepts": [...]}`; labels are
// normalized on receipt so both sides of a concept match use one spelling.
type HTTPGlossary struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPGlossary creates a glossary client for the given endpoint. The API
// key is optional; when set it is sent as a bearer token.
func NewHTTPGlossary(endpoint, apiKey string) (*HTTPGlossary, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint not set", ErrUnavailable)
	}
	return &HTTPGlossary{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}, nil
}

func (g *HTTPGlossary) RecognizedConcepts(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
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
		Concepts []string `json:"concepts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	seen := make(map[string]struct{}, len(apiResp.Concepts))
	out := make([]string, 0, len(apiResp.Concepts))
	for _, label := range apiResp.Concepts {
		norm := NormalizeLabel(label)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	sort.Strings(out)
	return out, nil
}

func (g *HTTPGlossary) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}
