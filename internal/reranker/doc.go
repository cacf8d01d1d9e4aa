// Package reranker provides the optional second scoring pass.
//
// The first pass ranks candidates on embedding similarity, passage quality,
// lexical overlap, and shared concepts. When a reranker is configured,
// Apply sends the leading candidates to a pairwise relevance model and
// blends the min-max-normalized model scores into the first-pass scores
// before re-sorting.
//
// The pass is strictly best-effort. A missing API key, a timeout, or a
// malformed response all fall back to the first-pass ordering; the reranker
// is never a hard dependency for returning results.
package reranker
