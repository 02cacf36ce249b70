// Package suggest drives typeahead completion for symbol, member, and role
// inputs. Every dispatched request carries a strictly increasing sequence
// number; a response is applied only when its sequence still equals the
// latest dispatched one, so a slow early response can never overwrite the
// result of a later request.
package suggest

import (
	"sync"
	"time"
)

// Kind names the completion source.
type Kind string

const (
	KindSymbol Kind = "symbol"
	KindMember Kind = "member"
	KindRole   Kind = "role"
)

// Request describes one completion fetch.
type Request struct {
	Seq   uint64
	Kind  Kind
	Query string
	Tape  string
	Limit int
}

// DispatchFunc performs the actual fetch for a request. It is invoked off
// the engine's lock; the result comes back through Engine.Apply carrying
// the request's sequence number.
type DispatchFunc func(req Request)

// Engine owns the suggestion list for one input field. Typing schedules a
// debounced dispatch; empty input suppresses requests entirely and clears
// the list immediately.
type Engine struct {
	mu       sync.Mutex
	quiet    time.Duration
	dispatch DispatchFunc
	kind     Kind
	limit    int

	seq    uint64
	query  string
	tape   string
	timer  *time.Timer
	items  []string
	cursor int
	open   bool
	closed bool
}

// NewEngine creates an engine for one completion source. The quiet period
// should be shorter than the filter-commit quiet period; suggestions are
// lighter weight and more latency sensitive.
func NewEngine(kind Kind, quiet time.Duration, limit int, dispatch DispatchFunc) *Engine {
	return &Engine{
		kind:     kind,
		quiet:    quiet,
		limit:    limit,
		dispatch: dispatch,
	}
}

// Input records the current text of the field and schedules a dispatch
// after the quiet period. Empty input cancels any pending dispatch, bumps
// the sequence so in-flight responses are discarded, and clears the list.
func (e *Engine) Input(text, tape string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.query = text
	e.tape = tape
	e.stopTimerLocked()
	if text == "" {
		e.seq++
		e.items = nil
		e.cursor = 0
		e.open = false
		return
	}
	e.timer = time.AfterFunc(e.quiet, e.fire)
}

func (e *Engine) fire() {
	e.mu.Lock()
	if e.closed || e.query == "" {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.seq++
	req := Request{
		Seq:   e.seq,
		Kind:  e.kind,
		Query: e.query,
		Tape:  e.tape,
		Limit: e.limit,
	}
	dispatch := e.dispatch
	e.mu.Unlock()

	if dispatch != nil {
		dispatch(req)
	}
}

// Apply installs a response. It reports whether the response was current;
// stale responses are discarded without touching the visible list.
func (e *Engine) Apply(seq uint64, items []string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || seq != e.seq || e.query == "" {
		return false
	}
	e.items = items
	e.cursor = 0
	e.open = len(items) > 0
	return true
}

// Items returns the visible candidate list.
func (e *Engine) Items() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items
}

// Open reports whether the suggestion list is showing.
func (e *Engine) Open() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Cursor returns the highlighted candidate index.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Next moves the highlight down one candidate, wrapping from the last back
// to the first.
func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.items) == 0 {
		return
	}
	e.cursor = (e.cursor + 1) % len(e.items)
}

// Prev moves the highlight up one candidate, wrapping from the first to
// the last.
func (e *Engine) Prev() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.items) == 0 {
		return
	}
	e.cursor = (e.cursor - 1 + len(e.items)) % len(e.items)
}

// Select returns the highlighted candidate and closes the list. The caller
// commits the selection immediately; there is nothing to coalesce once the
// user has chosen. The second return is false when no list is open.
func (e *Engine) Select() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open || e.cursor >= len(e.items) {
		return "", false
	}
	choice := e.items[e.cursor]
	e.seq++
	e.items = nil
	e.cursor = 0
	e.open = false
	e.query = ""
	return choice, true
}

// Dismiss closes the list without selecting, discarding in-flight
// responses.
func (e *Engine) Dismiss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	e.seq++
	e.items = nil
	e.cursor = 0
	e.open = false
}

// Close stops the engine permanently.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	e.closed = true
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
