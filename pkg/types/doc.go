// Package types provides shared type definitions for the notectx retrieval engine.
//
// This package defines domain types used across multiple components of notectx,
// including notes, passages, query windows, and scored results.
//
// # Core Types
//
// Note is the unit of authorship, a markdown document with a workspace-stable ID:
//
//	note := &types.Note{
//	    ID:      "projects/aurora",
//	    Kind:    types.KindNote,
//	    Content: markdown,
//	}
//
// Passage is the atomic unit of embedding and retrieval, a contiguous span of
// a note with byte offsets into the note content:
//
//	passage := &types.Passage{
//	    NoteID:   "projects/aurora",
//	    Ordinal:  3,
//	    Text:     paragraph,
//	    StartOff: 512,
//	    EndOff:   790,
//	}
//	passage.ComputeID()
//
// Passage IDs are stable: the same note, position, and text always produce the
// same ID, so re-indexing an unchanged note is a no-op at the ID level.
//
// # Query Windows
//
// QueryWindow is the cursor-conditioned slice of the live editing buffer used
// as the retrieval query, together with the glossary concepts active in it:
//
//	window := &types.QueryWindow{
//	    NoteID:   "projects/aurora",
//	    Text:     currentParagraph,
//	    Concepts: []string{"resonance cascade"},
//	}
//
// # Scored Results
//
// ScoredResult combines passage content with a final score and the per-signal
// breakdown behind it:
//
//	result := &types.ScoredResult{
//	    PassageID: "worlds/kestrel#2:9f3aa1c0",
//	    Rank:      1,
//	    Score:     0.82,
//	}
//
// Scores are normalized to [0, 1], with higher values indicating better
// matches. The Breakdown field exposes rel, quality, lex, active_hits, and
// base for relevance debugging.
//
// # Validation
//
// Domain types implement validation methods to ensure data integrity:
//
//	if err := passage.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package types
