package config

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tlowry/notectx/internal/reranker"
	"github.com/tlowry/notectx/internal/scorer"
)

// Embedding provider names accepted in configuration. Empty selects
// auto-detection from the environment.
const (
	ProviderAuto   = ""
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Config is the full application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Notes     NotesConfig     `yaml:"notes"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Glossary  GlossaryConfig  `yaml:"glossary"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Reranker  RerankerConfig  `yaml:"reranker"`
	Query     QueryConfig     `yaml:"query"`
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if err := c.Reranker.Validate(); err != nil {
		return err
	}
	return c.Query.Validate()
}

// AppConfig holds application-level settings
type AppConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// NotesConfig locates the markdown corpus
type NotesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IndexConfig holds the embedding index settings
type IndexConfig struct {
	Path            string `yaml:"path"`
	MaxPassageChars int    `yaml:"max_passage_chars"`
	Workers         int    `yaml:"workers"`
	Lexical         bool   `yaml:"lexical"`
}

func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxPassageChars, validation.Min(50), validation.Max(5000)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(64)),
	)
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	CacheSize int    `yaml:"cache_size"`
}

func (c *EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(ProviderAuto, ProviderJina, ProviderOpenAI, ProviderLocal)),
		validation.Field(&c.CacheSize, validation.Min(0)),
	)
}

// GlossaryConfig connects the glossary collaborator. With no endpoint the
// static term list is used; with neither, concept boosting is off.
type GlossaryConfig struct {
	Endpoint string   `yaml:"endpoint"`
	APIKey   string   `yaml:"api_key"`
	Terms    []string `yaml:"terms"`
}

// ScoringConfig holds the scorer weights. Zero values select the defaults,
// so a config file can override just one knob.
type ScoringConfig struct {
	Rel          float64 `yaml:"rel"`
	Lex          float64 `yaml:"lex"`
	QualityFloor float64 `yaml:"quality_floor"`
	BoostRate    float64 `yaml:"boost_rate"`
	HitCap       int     `yaml:"hit_cap"`
	Ceiling      float64 `yaml:"ceiling"`
}

func (c *ScoringConfig) Validate() error {
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

// Weights maps the section onto scorer weights, filling defaults for
// anything left unset
func (c *ScoringConfig) Weights() scorer.Weights {
	w := scorer.DefaultWeights()
	if c.Rel > 0 {
		w.Rel = c.Rel
	}
	if c.Lex > 0 {
		w.Lex = c.Lex
	}
	if c.QualityFloor > 0 {
		w.QualityFloor = c.QualityFloor
	}
	if c.BoostRate > 0 {
		w.BoostRate = c.BoostRate
	}
	if c.HitCap > 0 {
		w.HitCap = c.HitCap
	}
	if c.Ceiling > 0 {
		w.Ceiling = c.Ceiling
	}
	return w
}

// RerankerConfig tunes the optional second scoring pass
type RerankerConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Model     string  `yaml:"model"`
	APIKey    string  `yaml:"api_key"`
	TopN      int     `yaml:"top_n"`
	Weight    float64 `yaml:"weight"`
	TimeoutMS int     `yaml:"timeout_ms"`
}

func (c *RerankerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TopN, validation.Min(0), validation.Max(200)),
		validation.Field(&c.Weight, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.TimeoutMS, validation.Min(0)),
	)
}

// Options maps the section onto reranker blend options
func (c *RerankerConfig) Options() reranker.Options {
	opts := reranker.DefaultOptions()
	if c.TopN > 0 {
		opts.TopN = c.TopN
	}
	if c.Weight > 0 {
		opts.Weight = c.Weight
	}
	if c.TimeoutMS > 0 {
		opts.Timeout = time.Duration(c.TimeoutMS) * time.Millisecond
	}
	return opts
}

// QueryConfig tunes the query path and the client-side coordinator
type QueryConfig struct {
	DebounceMS     int `yaml:"debounce_ms"`
	Limit          int `yaml:"limit"`
	CandidateLimit int `yaml:"candidate_limit"`
	WindowTokens   int `yaml:"window_tokens"`
}

func (c *QueryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceMS, validation.Min(0), validation.Max(5000)),
		validation.Field(&c.Limit, validation.Min(0), validation.Max(100)),
		validation.Field(&c.CandidateLimit, validation.Min(0), validation.Max(500)),
		validation.Field(&c.WindowTokens, validation.Min(0), validation.Max(4000)),
	)
}

// Debounce returns the coordinator debounce delay
func (c *QueryConfig) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return 75 * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// NewDefault returns a configuration with working local defaults
func NewDefault() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: slog.LevelInfo,
		},
		Notes: NotesConfig{
			Path:  "./notes",
			Watch: true,
		},
		Index: IndexConfig{
			Path:    "./notectx.db",
			Lexical: true,
		},
		Query: QueryConfig{
			DebounceMS: 75,
			Limit:      8,
		},
	}
}
