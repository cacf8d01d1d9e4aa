package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowry/notectx/internal/scorer"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefault()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, scorer.DefaultWeights(), cfg.Scoring.Weights())
	assert.Equal(t, 75*time.Millisecond, cfg.Query.Debounce())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("NOTES_DIR", "/data/notes")
	path := writeConfig(t, `
notes:
  path: ${NOTES_DIR}
index:
  path: ./test.db
`)

	cfg := NewDefault()
	require.NoError(t, Load(path, cfg))
	assert.Equal(t, "/data/notes", cfg.Notes.Path)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
notes:
  path: ""
`)

	cfg := NewDefault()
	assert.Error(t, Load(path, cfg))
}

func TestLoadRejectsBadProvider(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: hallucinated
`)

	cfg := NewDefault()
	assert.Error(t, Load(path, cfg))
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "./notes", cfg.Notes.Path)

	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./notes", cfg.Notes.Path)

	path := writeConfig(t, `
notes:
  path: /custom/notes
`)
	cfg, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "/custom/notes", cfg.Notes.Path)
}

func TestScoringWeightsPartialOverride(t *testing.T) {
	s := ScoringConfig{BoostRate: 0.3}
	w := s.Weights()
	assert.Equal(t, 0.3, w.BoostRate)
	assert.Equal(t, scorer.DefaultWeights().Rel, w.Rel)
	assert.NoError(t, w.Validate())
}

func TestRerankerOptions(t *testing.T) {
	r := RerankerConfig{TopN: 30, Weight: 0.5, TimeoutMS: 1000}
	opts := r.Options()
	assert.Equal(t, 30, opts.TopN)
	assert.Equal(t, 0.5, opts.Weight)
	assert.Equal(t, time.Second, opts.Timeout)
}

func TestQueryConfigBounds(t *testing.T) {
	bad := QueryConfig{DebounceMS: 100000}
	assert.Error(t, bad.Validate())

	good := QueryConfig{DebounceMS: 150, Limit: 10}
	require.NoError(t, good.Validate())
	assert.Equal(t, 150*time.Millisecond, good.Debounce())
}
