package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tlowry/notectx/pkg/types"
)

// DefaultDebounce is the pause after the last edit before a query dispatches
const DefaultDebounce = 75 * time.Millisecond

// Query is the coalescable unit of work: the latest edit state of one note
type Query struct {
	NoteID       string
	Text         string
	CursorOffset int
	Limit        int
}

// FetchFunc executes a retrieval call. Cancelling the context must abort
// the call with context.Canceled.
type FetchFunc func(ctx context.Context, q Query) ([]types.ScoredResult, error)

// Update carries new UI state to the listener. A non-empty Message means
// the query failed and results were cleared.
type Update struct {
	NoteID  string
	Results []types.ScoredResult
	Message string
}

// Coordinator turns keystroke-rate edit events into well-ordered retrieval
// calls: at most one request in flight, a single pending slot holding only
// the latest edit, a debounce delay coalescing bursts, and cancellation
// when the pending note differs from the in-flight one. Displayed results
// always converge to the latest edit state.
type Coordinator struct {
	fetch    FetchFunc
	listener func(Update)
	debounce time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	noteID    string
	pending   *Query
	timer     *time.Timer
	inflight  *flight
	displayed []types.ScoredResult
	message   string
	closed    bool
	wg        sync.WaitGroup
}

type flight struct {
	query  Query
	cancel context.CancelFunc
}

// New creates a coordinator. listener receives result updates off the
// editing goroutine; it must not block for long. debounce <= 0 selects the
// default.
func New(fetch FetchFunc, listener func(Update), debounce time.Duration, logger *slog.Logger) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if listener == nil {
		listener = func(Update) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fetch:    fetch,
		listener: listener,
		debounce: debounce,
		logger:   logger.With("component", "coordinator"),
	}
}

// Edit records an edit event. Identical consecutive edits are no-ops. The
// query dispatches after the debounce elapses, or immediately after the
// current in-flight request completes.
func (c *Coordinator) Edit(q Query) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.pending != nil && *c.pending == q {
		return
	}
	if c.pending == nil && c.inflight != nil && c.inflight.query == q {
		return
	}

	c.noteID = q.NoteID
	c.pending = &q

	if c.inflight != nil {
		// A different note makes the in-flight answer useless; same note
		// is allowed to finish and the completion handler dispatches next
		if c.inflight.query.NoteID != q.NoteID {
			c.inflight.cancel()
		}
		return
	}

	c.resetTimerLocked()
}

// SetNote switches the active note, clearing pending and in-flight state
// and resetting displayed results
func (c *Coordinator) SetNote(noteID string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.noteID = noteID
	c.clearLocked()
	listener := c.listener
	c.mu.Unlock()

	listener(Update{NoteID: noteID})
}

// Reset clears all state, as when the editor is emptied
func (c *Coordinator) Reset() {
	c.SetNote("")
}

// Close cancels any in-flight work and waits for it to drain
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	c.clearLocked()
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// Displayed returns the currently displayed results
func (c *Coordinator) Displayed() []types.ScoredResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayed
}

// Message returns the current error message, empty when none
func (c *Coordinator) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// clearLocked drops pending, cancels in-flight, and resets displayed state
func (c *Coordinator) clearLocked() {
	c.pending = nil
	c.stopTimerLocked()
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
	c.displayed = nil
	c.message = ""
}

func (c *Coordinator) resetTimerLocked() {
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.timer = nil
		c.dispatchLocked()
	})
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// dispatchLocked starts the pending query when nothing is in flight
func (c *Coordinator) dispatchLocked() {
	if c.closed || c.inflight != nil || c.pending == nil {
		return
	}

	q := *c.pending
	c.pending = nil
	c.stopTimerLocked()

	ctx, cancel := context.WithCancel(context.Background())
	f := &flight{query: q, cancel: cancel}
	c.inflight = f

	c.wg.Add(1)
	go c.run(ctx, f)
}

func (c *Coordinator) run(ctx context.Context, f *flight) {
	defer c.wg.Done()
	defer f.cancel()

	results, err := c.fetch(ctx, f.query)

	c.mu.Lock()
	if c.inflight != f {
		// Superseded by SetNote/Reset while running; its outcome is void
		c.mu.Unlock()
		return
	}
	c.inflight = nil

	var update *Update
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil):
		// Cancellation is not an error: displayed results stay untouched
	case err != nil:
		c.displayed = nil
		c.message = err.Error()
		update = &Update{NoteID: f.query.NoteID, Message: c.message}
		c.logger.Warn("query failed", "note_id", f.query.NoteID, "error", err)
	default:
		c.displayed = results
		c.message = ""
		update = &Update{NoteID: f.query.NoteID, Results: results}
	}

	// The pending slot may have changed while this request ran; converge
	// on the latest edit state without another debounce
	c.dispatchLocked()
	listener := c.listener
	c.mu.Unlock()

	if update != nil {
		listener(*update)
	}
}
