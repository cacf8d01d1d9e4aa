package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyNoteID      = errors.New("note ID cannot be empty")
	ErrEmptyText        = errors.New("text cannot be empty")
	ErrInvalidPassageID = errors.New("invalid passage ID")
	ErrInvalidRank      = errors.New("rank must be >= 1")
	ErrInvalidScore     = errors.New("score must be between 0 and 1")
)
