package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")
}

func TestNewFromEnvDefaultsToLocal(t *testing.T) {
	clearProviderEnv(t)

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderLocal, emb.Provider())
}

func TestNewFromEnvExplicitProvider(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, "jina")
	t.Setenv(EnvJinaAPIKey, "key")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderJina, emb.Provider())
	assert.Equal(t, JinaDimension, emb.Dimension())
}

func TestNewFromEnvAutoDetectsByKey(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvOpenAIAPIKey, "key")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderOpenAI, emb.Provider())
}

func TestNewFromEnvUnknownProvider(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, "quantum")

	_, err := NewFromEnv()
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestNewWithModelOverride(t *testing.T) {
	emb, err := New(Config{Provider: "openai", APIKey: "key", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, "text-embedding-3-large", emb.Model())
}

func TestDetectProvider(t *testing.T) {
	clearProviderEnv(t)
	assert.Equal(t, ProviderLocal, DetectProvider())

	t.Setenv(EnvJinaAPIKey, "key")
	assert.Equal(t, ProviderJina, DetectProvider())

	t.Setenv(EnvProvider, "LOCAL")
	assert.Equal(t, ProviderLocal, DetectProvider())
}
