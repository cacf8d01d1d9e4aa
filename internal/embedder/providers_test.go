package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, dimension int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data  []datum `json:"data"`
			Model string  `json:"model"`
		}{Model: req.Model}
		for i := range req.Input {
			vec := make([]float32, dimension)
			vec[0] = float32(i + 1)
			resp.Data = append(resp.Data, datum{Embedding: vec, Index: i})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestHTTPProviderEmbedBatch(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, 8)
	p := newHTTPProvider(ProviderJina, srv.URL, "test-key", DefaultJinaModel, 8, nil)

	resp, err := p.EmbedBatch(context.Background(), BatchRequest{Texts: []string{"one", "two"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, ProviderJina, resp.Provider)
	assert.Equal(t, DefaultJinaModel, resp.Model)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPProviderCachesByContentHash(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, 8)
	p := newHTTPProvider(ProviderJina, srv.URL, "test-key", DefaultJinaModel, 8, NewCache(16))

	ctx := context.Background()
	_, err := p.Embed(ctx, Request{Text: "cached text"})
	require.NoError(t, err)
	_, err = p.Embed(ctx, Request{Text: "cached text"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "second identical request must be served from cache")
}

func TestHTTPProviderServerError(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusInternalServerError, 8)
	p := newHTTPProvider(ProviderOpenAI, srv.URL, "test-key", DefaultOpenAIModel, 8, nil)

	_, err := p.EmbedBatch(context.Background(), BatchRequest{Texts: []string{"x"}})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(3), calls.Load(), "server errors retry up to the attempt limit")
}

func TestHTTPProviderBatchTooLarge(t *testing.T) {
	p := newHTTPProvider(ProviderJina, "http://unused", "test-key", DefaultJinaModel, 8, nil)

	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "t"
	}
	_, err := p.EmbedBatch(context.Background(), BatchRequest{Texts: texts})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestNewJinaProviderRequiresKey(t *testing.T) {
	t.Setenv(EnvJinaAPIKey, "")
	_, err := NewJinaProvider("", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}
