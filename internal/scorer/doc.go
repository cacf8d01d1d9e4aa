// Package scorer combines per-passage retrieval signals into a final score.
//
// Four signals feed each score:
//   - rel: cosine similarity between the query window and passage embeddings
//   - quality: query-independent passage quality, computed once at index time
//   - lex: lexical overlap between window and passage content words
//   - active_hits: count of window concepts matched in the passage
//
// # Basic Usage
//
//	s := scorer.New(scorer.DefaultWeights())
//	score, breakdown := s.Score(window, passage, cosine)
//
// rel and lex fold into a base score, with quality modulating the semantic
// term between a configured floor and 1. Active concept hits then apply a
// saturating multiplicative boost:
//
//	base  = wRel * rel * (floor + (1-floor)*quality) + wLex * lex
//	score = min(ceiling, base * (1 + boostRate * min(hits, hitCap)))
//
// The score is monotonically non-decreasing in each signal with the others
// held fixed. A passage with zero active hits keeps its base score; the hit
// cap keeps concept-dense passages from swamping semantic relevance.
//
// # Ordering
//
// Rank sorts by descending score with ties broken by ascending passage ID,
// so identical corpus states always produce identical result orderings:
//
//	scorer.Rank(results)
//
// # Quality
//
// Quality scores passage text on index-time heuristics: fragments, bare list
// markers, and heading-only passages are penalized; moderate-length complete
// sentences score near 1. The scalar is stored with the passage and reused
// across queries.
package scorer
