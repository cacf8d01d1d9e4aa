package notes

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowry/notectx/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDir(t *testing.T) *Dir {
	t.Helper()
	d, err := NewDir(t.TempDir(), testLogger())
	require.NoError(t, err)
	return d
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewDirRequiresDirectory(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "missing"), testLogger())
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = NewDir(file, testLogger())
	assert.Error(t, err)
}

func TestListMapsPathsToNoteIDs(t *testing.T) {
	d := newTestDir(t)
	writeFile(t, d.Root(), "top.md", "Top note.")
	writeFile(t, d.Root(), "worlds/kestrel.md", "Kestrel note.")
	writeFile(t, d.Root(), "worlds/deep/aurora.md", "Aurora note.")
	writeFile(t, d.Root(), "ignored.txt", "not markdown")
	writeFile(t, d.Root(), ".hidden/secret.md", "hidden")

	notes, err := d.List(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
		assert.Equal(t, types.KindNote, n.Kind)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"top", "worlds/deep/aurora", "worlds/kestrel"}, ids)
}

func TestReadWriteRemove(t *testing.T) {
	d := newTestDir(t)

	require.NoError(t, d.Write("worlds/kestrel", "The harbor freezes."))
	note, err := d.Read("worlds/kestrel")
	require.NoError(t, err)
	assert.Equal(t, "The harbor freezes.", note.Content)

	require.NoError(t, d.Remove("worlds/kestrel"))
	_, err = d.Read("worlds/kestrel")
	assert.Error(t, err)

	// Removing again is a no-op
	assert.NoError(t, d.Remove("worlds/kestrel"))
}

func TestNotePathRejectsEscapes(t *testing.T) {
	d := newTestDir(t)

	for _, id := range []string{"", "../outside", "/abs/path", ".."} {
		_, err := d.notePath(id)
		assert.Error(t, err, "id %q", id)
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	saved   []types.Note
	deleted []string
}

func (r *recordingHandler) OnNoteSaved(note types.Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, note)
}

func (r *recordingHandler) OnNoteDeleted(_ context.Context, noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, noteID)
	return nil
}

func (r *recordingHandler) savedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.saved))
	for i, n := range r.saved {
		ids[i] = n.ID
	}
	return ids
}

func (r *recordingHandler) deletedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

func TestWatchEmitsSaveAndDelete(t *testing.T) {
	d := newTestDir(t)
	h := &recordingHandler{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Watch(ctx, h)
	}()

	// Give the watcher a moment to install
	time.Sleep(50 * time.Millisecond)

	writeFile(t, d.Root(), "kestrel.md", "The harbor freezes.")
	assert.Eventually(t, func() bool {
		for _, id := range h.savedIDs() {
			if id == "kestrel" {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(d.Root(), "kestrel.md")))
	assert.Eventually(t, func() bool {
		for _, id := range h.deletedIDs() {
			if id == "kestrel" {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func TestWatchPicksUpNewDirectories(t *testing.T) {
	d := newTestDir(t)
	h := &recordingHandler{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Watch(ctx, h) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Join(d.Root(), "worlds"), 0o755))
	time.Sleep(50 * time.Millisecond)
	writeFile(t, d.Root(), "worlds/aurora.md", "Aurora note.")

	assert.Eventually(t, func() bool {
		for _, id := range h.savedIDs() {
			if id == "worlds/aurora" {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}
