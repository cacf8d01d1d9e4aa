package window

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/tlowry/notectx/internal/chunker"
	"github.com/tlowry/notectx/internal/glossary"
	"github.com/tlowry/notectx/pkg/types"
)

// DefaultTokenBudget bounds the window handed to the embedder. Blocks are
// rarely this long; the clip only engages on degenerate wall-of-text notes.
const DefaultTokenBudget = 450

// Extractor derives the query window from the live edit buffer and cursor
// offset. The buffer is split with the same boundary rules the chunker
// applies to saved notes, so the window lines up with indexed passages.
type Extractor struct {
	glossary    glossary.Glossary
	tokenBudget int
	logger      *slog.Logger
}

// New creates an extractor with the default token budget
func New(g glossary.Glossary, logger *slog.Logger) *Extractor {
	return NewWithBudget(g, DefaultTokenBudget, logger)
}

// NewWithBudget creates an extractor with a custom token budget
func NewWithBudget(g glossary.Glossary, tokenBudget int, logger *slog.Logger) *Extractor {
	if g == nil {
		g = glossary.Noop{}
	}
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		glossary:    g,
		tokenBudget: tokenBudget,
		logger:      logger.With("component", "window"),
	}
}

// Extract builds the query window for the block containing cursorOffset.
// Empty or whitespace-only buffers yield an empty window; callers check
// QueryWindow.Empty() and skip retrieval entirely.
func (e *Extractor) Extract(ctx context.Context, noteID, text string, cursorOffset int) types.QueryWindow {
	if strings.TrimSpace(text) == "" {
		return types.QueryWindow{NoteID: noteID}
	}

	blocks := chunker.SplitBlocks(text)
	if len(blocks) == 0 {
		return types.QueryWindow{NoteID: noteID}
	}

	block := blockAt(blocks, clamp(cursorOffset, 0, len(text)))
	raw := strings.TrimSpace(block.Text)
	if raw == "" {
		return types.QueryWindow{NoteID: noteID}
	}

	// The cursor is relative to the trimmed text, so leading whitespace in
	// the block must not shift the clip center
	lead := strings.IndexFunc(block.Text, func(r rune) bool { return !unicode.IsSpace(r) })
	localCursor := clamp(cursorOffset-block.Start-lead, 0, len(raw))
	windowText := clipTokensAroundCursor(raw, localCursor, e.tokenBudget)
	if windowText == "" {
		return types.QueryWindow{NoteID: noteID}
	}

	// Glossary failure degrades to zero concepts; the query still runs on
	// similarity and lexical overlap alone.
	concepts, err := e.glossary.RecognizedConcepts(ctx, windowText)
	if err != nil {
		e.logger.Warn("glossary lookup failed", "error", err)
		concepts = nil
	}

	return types.QueryWindow{
		NoteID:   noteID,
		Text:     windowText,
		Concepts: concepts,
	}
}

// blockAt returns the block containing the cursor offset. A cursor sitting
// in the whitespace between blocks belongs to the preceding block; before
// the first block it belongs to the first.
func blockAt(blocks []chunker.Block, cursor int) chunker.Block {
	current := blocks[0]
	for _, b := range blocks {
		if cursor < b.Start {
			break
		}
		current = b
		if cursor <= b.End {
			break
		}
	}
	return current
}

// clipTokensAroundCursor bounds text to at most maxTokens whitespace-split
// tokens centered on the cursor position
func clipTokensAroundCursor(text string, cursor, maxTokens int) string {
	tokens := strings.Fields(text)
	if len(tokens) <= maxTokens {
		return strings.TrimSpace(text)
	}

	// Approximate the cursor's token index by counting tokens in the prefix
	cursorTok := len(strings.Fields(text[:clamp(cursor, 0, len(text))]))
	if cursorTok > len(tokens) {
		cursorTok = len(tokens)
	}

	half := maxTokens / 2
	start := cursorTok - half
	if start < 0 {
		start = 0
	}
	end := start + maxTokens
	if end > len(tokens) {
		end = len(tokens)
		start = end - maxTokens
	}

	return strings.Join(tokens[start:end], " ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
