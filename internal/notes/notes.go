package notes

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tlowry/notectx/pkg/types"
)

// Handler receives save and delete events from the corpus
type Handler interface {
	OnNoteSaved(note types.Note)
	OnNoteDeleted(ctx context.Context, noteID string) error
}

// Dir adapts a markdown directory into the note corpus. Note IDs are
// slash-separated paths relative to the root without the .md extension;
// directories are folders and are never indexed.
type Dir struct {
	root   string
	logger *slog.Logger
}

// NewDir creates a corpus over the given directory
func NewDir(root string, logger *slog.Logger) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("notes root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("notes root %q is not a directory", root)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dir{
		root:   filepath.Clean(root),
		logger: logger.With("component", "notes"),
	}, nil
}

// Root returns the corpus root directory
func (d *Dir) Root() string { return d.root }

// List reads every markdown file under the root and returns it as a note.
// Unreadable files are logged and skipped.
func (d *Dir) List(ctx context.Context) ([]types.Note, error) {
	var notes []types.Note

	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			if path != d.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		id, ok := d.noteID(path)
		if !ok {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			d.logger.Warn("skipping unreadable note", "path", path, "error", readErr)
			return nil
		}
		notes = append(notes, types.Note{
			ID:      id,
			Kind:    types.KindNote,
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk notes root: %w", err)
	}
	return notes, nil
}

// Read returns a single note by ID
func (d *Dir) Read(noteID string) (types.Note, error) {
	path, err := d.notePath(noteID)
	if err != nil {
		return types.Note{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return types.Note{}, fmt.Errorf("failed to read note %q: %w", noteID, err)
	}
	return types.Note{ID: noteID, Kind: types.KindNote, Content: string(content)}, nil
}

// Write stores note content under the corpus root, creating parent
// directories as needed
func (d *Dir) Write(noteID, content string) error {
	path, err := d.notePath(noteID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create note directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write note %q: %w", noteID, err)
	}
	return nil
}

// Remove deletes the note file. Removing an absent note is a no-op.
func (d *Dir) Remove(noteID string) error {
	path, err := d.notePath(noteID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove note %q: %w", noteID, err)
	}
	return nil
}

// noteID maps an absolute path to a note ID, false for non-markdown files
func (d *Dir) noteID(path string) (string, bool) {
	if !strings.HasSuffix(path, ".md") {
		return "", false
	}
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return "", false
	}
	id := strings.TrimSuffix(filepath.ToSlash(rel), ".md")
	if id == "" || strings.HasPrefix(id, "..") {
		return "", false
	}
	return id, true
}

// notePath maps a note ID back to its file path, rejecting IDs that would
// escape the root
func (d *Dir) notePath(noteID string) (string, error) {
	if noteID == "" {
		return "", types.ErrEmptyNoteID
	}
	clean := filepath.Clean(filepath.FromSlash(noteID))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid note id %q", noteID)
	}
	return filepath.Join(d.root, clean+".md"), nil
}
