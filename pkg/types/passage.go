package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// NoteKind distinguishes indexable notes from structural folders
type NoteKind string

const (
	KindNote   NoteKind = "note"
	KindFolder NoteKind = "folder"
)

// Note is the unit of authorship: a markdown document identified by a
// workspace-stable ID. Folders exist for hierarchy only and are never indexed.
type Note struct {
	ID      string
	Kind    NoteKind
	Content string
}

// ContentHash returns the SHA-256 hex digest of the note content,
// used to skip re-indexing unchanged notes.
func (n *Note) ContentHash() string {
	sum := sha256.Sum256([]byte(n.Content))
	return hex.EncodeToString(sum[:])
}

// Validate checks if the note is well-formed for indexing
func (n *Note) Validate() error {
	if n.ID == "" {
		return ErrEmptyNoteID
	}
	if n.Kind == "" {
		return errors.New("note kind is required")
	}
	return nil
}

// Passage represents a contiguous span of a note, the atomic unit of
// embedding and retrieval. Offsets are byte offsets into the note content
// at indexing time.
type Passage struct {
	// Identification
	ID      string
	NoteID  string
	Ordinal int

	// Content
	Text     string
	StartOff int
	EndOff   int

	// Query-independent signal computed at index time
	Quality float64

	// Glossary concept labels recognized in the text, lower-cased
	Concepts []string
}

// PassageID derives the stable identifier for a passage: the parent note ID,
// the passage ordinal within the note, and a short hash of the text. The ID
// is unchanged as long as the text and position are unchanged.
func PassageID(noteID string, ordinal int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s#%d:%s", noteID, ordinal, hex.EncodeToString(sum[:4]))
}

// ComputeID sets the passage ID from its note, ordinal, and text
func (p *Passage) ComputeID() {
	p.ID = PassageID(p.NoteID, p.Ordinal, p.Text)
}

// Validate performs comprehensive validation of the passage
func (p *Passage) Validate() error {
	if p.NoteID == "" {
		return ErrEmptyNoteID
	}
	if strings.TrimSpace(p.Text) == "" {
		return ErrEmptyText
	}
	if p.StartOff < 0 || p.EndOff < p.StartOff {
		return errors.New("passage offsets must satisfy 0 <= start <= end")
	}
	if p.Quality < 0 || p.Quality > 1 {
		return errors.New("quality must be between 0 and 1")
	}
	if p.ID == "" {
		return ErrInvalidPassageID
	}
	return nil
}

// QueryWindow is the cursor-conditioned slice of the live buffer used as the
// retrieval query. Concepts are the glossary terms active in the window.
type QueryWindow struct {
	NoteID   string
	Text     string
	Concepts []string
}

// Empty reports whether the window contains no queryable content
func (w *QueryWindow) Empty() bool {
	return strings.TrimSpace(w.Text) == ""
}
