// Package retrieval orchestrates cursor-conditioned retrieval over the
// note corpus.
//
// # Query pipeline
//
// Context extracts the query window around the cursor, embeds it (with an
// LRU cache over window text), gathers candidates from vector similarity
// and BM25 lexical search concurrently, scores each candidate on
// similarity, passage quality, lexical overlap, and shared glossary
// concepts, optionally reranks the leaders with a pairwise model, and
// trims to the requested limit. The querying note's own passages are
// excluded at the store level.
//
// # Indexing
//
// OnNoteSaved queues notes for a single background worker that chunks,
// tags, embeds, and stores them; saves never block on embedding work.
// Rebuild regenerates the whole index inside one store transaction and is
// idempotent when the index already matches the corpus by content hash.
// Warmup probes the embedding provider and clears the index when the
// stored dimension shows a model change.
package retrieval
