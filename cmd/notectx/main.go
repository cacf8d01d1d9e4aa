package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tlowry/notectx/internal/config"
	"github.com/tlowry/notectx/internal/embedder"
	"github.com/tlowry/notectx/internal/glossary"
	"github.com/tlowry/notectx/internal/mcpserver"
	"github.com/tlowry/notectx/internal/notes"
	"github.com/tlowry/notectx/internal/reranker"
	"github.com/tlowry/notectx/internal/retrieval"
	"github.com/tlowry/notectx/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "notectx.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("notectx MCP server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		fmt.Printf("Vector Extension: %v\n", store.VectorExtensionAvailable)
		os.Exit(0)
	}

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "notectx: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Stdout carries the MCP protocol, so everything else goes to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	logger.Info("starting notectx",
		"version", version,
		"build_mode", store.BuildMode,
		"driver", store.DriverName,
		"vector_extension", store.VectorExtensionAvailable)

	emb, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	defer func() { _ = emb.Close() }()

	gl := newGlossary(cfg, logger)
	defer func() { _ = gl.Close() }()

	rr := newReranker(cfg, logger)

	st, err := store.NewSQLiteStore(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := os.MkdirAll(cfg.Notes.Path, 0o755); err != nil {
		return fmt.Errorf("create notes directory: %w", err)
	}
	dir, err := notes.NewDir(cfg.Notes.Path, logger)
	if err != nil {
		return fmt.Errorf("open notes directory: %w", err)
	}

	svc, err := retrieval.New(st, emb, gl, rr, dir, cfg.Scoring.Weights(), retrievalConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("init retrieval: %w", err)
	}
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Best effort: an unreachable provider at startup should not keep the
	// server from coming up, queries will surface the failure.
	if report, err := svc.Warmup(ctx, false); err != nil {
		logger.Warn("warmup failed", "error", err)
	} else {
		logger.Info("warmup complete",
			"provider", report.Provider,
			"model", report.Model,
			"dimension", report.Dimension,
			"index_cleared", report.IndexCleared,
			"rebuilt", report.Rebuilt,
			"reranker_available", report.RerankerAvailable)
	}

	if cfg.Notes.Watch {
		go func() {
			if err := dir.Watch(ctx, svc); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notes watcher stopped", "error", err)
			}
		}()
	}

	srv := mcpserver.NewServer(st, svc, dir, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func newEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	if cfg.Embedding.Provider == config.ProviderAuto {
		return embedder.NewFromEnv()
	}
	return embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		CacheSize: cfg.Embedding.CacheSize,
	})
}

func newGlossary(cfg *config.Config, logger *slog.Logger) glossary.Glossary {
	if cfg.Glossary.Endpoint != "" {
		gl, err := glossary.NewHTTPGlossary(cfg.Glossary.Endpoint, cfg.Glossary.APIKey)
		if err == nil {
			return gl
		}
		logger.Warn("glossary endpoint rejected, falling back to static terms", "error", err)
	}
	if len(cfg.Glossary.Terms) > 0 {
		return glossary.NewStatic(cfg.Glossary.Terms)
	}
	return glossary.Noop{}
}

func newReranker(cfg *config.Config, logger *slog.Logger) reranker.Reranker {
	if !cfg.Reranker.Enabled {
		return nil
	}
	rr, err := reranker.NewJinaReranker(cfg.Reranker.APIKey, cfg.Reranker.Model)
	if err != nil {
		logger.Warn("reranker disabled", "error", err)
		return nil
	}
	return rr
}

func retrievalConfig(cfg *config.Config) retrieval.Config {
	rc := retrieval.DefaultConfig()
	if cfg.Query.CandidateLimit > 0 {
		rc.CandidateLimit = cfg.Query.CandidateLimit
	}
	if cfg.Query.Limit > 0 {
		rc.DefaultLimit = cfg.Query.Limit
	}
	if cfg.Query.WindowTokens > 0 {
		rc.WindowTokenBudget = cfg.Query.WindowTokens
	}
	if cfg.Index.Workers > 0 {
		rc.Workers = cfg.Index.Workers
	}
	if cfg.Index.MaxPassageChars > 0 {
		rc.MaxPassageChars = cfg.Index.MaxPassageChars
	}
	rc.LexicalEnabled = cfg.Index.Lexical
	rc.Rerank = cfg.Reranker.Options()
	return rc
}
