// Package embedder generates vector embeddings for passages and query windows.
//
// The embedder supports multiple providers (Jina AI, OpenAI, local) behind one
// interface, with batching, LRU caching, and retry with exponential backoff.
//
// # Basic Usage
//
//	// Create embedder (auto-detects provider from environment)
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.Embed(ctx, embedder.Request{Text: passageText})
//
// # Providers
//
// Jina AI and OpenAI speak the same OpenAI-compatible embeddings endpoint and
// share one HTTP implementation. The local provider derives a deterministic
// unit vector from a text hash: no network, no semantics, but stable output,
// which keeps the engine usable offline and makes tests reproducible.
//
// Selection order in NewFromEnv:
//  1. If NOTECTX_EMBEDDING_PROVIDER is set, use that provider
//  2. Otherwise the first available API key wins (JINA_API_KEY, OPENAI_API_KEY)
//  3. Otherwise fall back to the local provider
//
// # Caching and Retry
//
// Embeddings are cached by SHA-256 content hash with LRU eviction, so
// re-indexing mostly-unchanged notes skips the provider for untouched
// passages. API calls retry up to 3 times with exponential backoff; context
// cancellation stops retries immediately.
package embedder
