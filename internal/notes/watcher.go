package notes

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch runs an fsnotify watcher over the corpus root until ctx is
// cancelled, turning markdown file changes into Handler calls. New
// directories created at runtime are added to the watch list and their
// existing files indexed. Rename fires on the old path only; the new path
// arrives as its own Create event when it stays inside the root.
func (d *Dir) Watch(ctx context.Context, h Handler) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := addDirsRecursive(w, d.root); err != nil {
		return err
	}

	d.logger.Info("watcher started", "root", d.root)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			d.handleEvent(ctx, w, h, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.logger.Error("watcher error", "error", watchErr)
		}
	}
}

func (d *Dir) handleEvent(ctx context.Context, w *fsnotify.Watcher, h Handler, ev fsnotify.Event) {
	path := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(w, path); addErr != nil {
				d.logger.Warn("failed to watch new directory", "path", path, "error", addErr)
			}
			d.saveExisting(ctx, h, path)
			return
		}
	}

	id, ok := d.noteID(path)
	if !ok {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		note, readErr := d.Read(id)
		if readErr != nil {
			d.logger.Warn("failed to read changed note", "note_id", id, "error", readErr)
			return
		}
		h.OnNoteSaved(note)

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if delErr := h.OnNoteDeleted(ctx, id); delErr != nil {
			d.logger.Warn("failed to handle note deletion", "note_id", id, "error", delErr)
		}
	}
}

// saveExisting emits save events for markdown files already present in a
// newly watched directory
func (d *Dir) saveExisting(ctx context.Context, h Handler, dirPath string) {
	_ = filepath.WalkDir(dirPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		id, ok := d.noteID(path)
		if !ok {
			return nil
		}
		note, readErr := d.Read(id)
		if readErr != nil {
			return nil
		}
		h.OnNoteSaved(note)
		return nil
	})
}

// addDirsRecursive adds root and all non-hidden subdirectories to the watcher
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
