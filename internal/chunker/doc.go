// Package chunker divides markdown notes into passages for embedding and retrieval.
//
// The chunker creates passages at natural prose boundaries (headings,
// paragraphs, sentences) to preserve semantic meaning and keep each passage
// within embedding-friendly size limits.
//
// # Basic Usage
//
//	c := chunker.New()
//	passages := c.ChunkNote(&types.Note{
//	    ID:      "worlds/kestrel",
//	    Kind:    types.KindNote,
//	    Content: markdown,
//	})
//
//	for _, p := range passages {
//	    fmt.Printf("Passage %s: bytes %d-%d\n", p.ID, p.StartOff, p.EndOff)
//	}
//
// # Chunking Strategy
//
// Content splits top-down:
//   - Heading lines form their own block
//   - Consecutive non-blank lines form a paragraph block
//   - Blocks within the size limit become one passage each
//   - Oversized blocks re-split at sentence boundaries, accumulating
//     sentences up to the limit
//   - A single sentence beyond the limit is hard-split at word boundaries
//
// When an oversized block produces multiple passages, the final sentence of
// each passage is carried into the next as overlap, so retrieval never loses
// the context that straddles a split point. Consecutive passages overlap by
// at most that one sentence.
//
// # Determinism and Identity
//
// Chunking is deterministic: identical content always yields the identical
// passage sequence, and passage IDs derive from note ID, ordinal, and a text
// hash. Whitespace-only blocks are dropped; folder notes yield no passages.
//
// Each passage also carries a query-independent quality scalar computed at
// chunk time (see the scorer package).
package chunker
