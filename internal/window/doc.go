// Package window derives the query window from the live edit buffer.
//
// The extractor splits the buffer with the chunker's block rules, picks the
// block under the cursor (the whole buffer when it is a single block), clips
// it to a token budget centered on the cursor, and asks the glossary which
// recognized concepts the window contains. An empty or whitespace-only
// buffer produces an empty window, which short-circuits retrieval without
// touching the store.
package window
