package feedstate

import (
	"net/url"
	"sync"
	"time"
)

// Cache is an optional cross-navigation convenience cache for filter
// state. The store hydrates from it when the URL carries no parameters and
// flushes to it on close.
type Cache interface {
	LoadFilterState(view string) (FilterState, bool, error)
	SaveFilterState(view string, s FilterState) error
}

// CommitFunc receives each committed filter state together with its
// generation number. Generations increase monotonically; a fetch triggered
// by an old generation must not overwrite results from a newer one.
type CommitFunc func(s FilterState, generation uint64)

// Store owns the filter state for one view. Edits update local state
// immediately; a commit fires after the quiet period elapses with no
// further edits, coalescing rapid changes into a single committed write.
// All state is guarded by one mutex and updated atomically per action.
type Store struct {
	mu        sync.Mutex
	quiet     time.Duration
	onCommit  CommitFunc
	view      string
	cache     Cache
	state     FilterState
	committed FilterState
	gen       uint64
	timer     *time.Timer
	closed    bool
}

// NewStore creates a store with the given quiet period and commit callback.
// cache may be nil; view names the cache slot.
func NewStore(quiet time.Duration, onCommit CommitFunc, cache Cache, view string) *Store {
	return &Store{
		quiet:     quiet,
		onCommit:  onCommit,
		cache:     cache,
		view:      view,
		state:     Default(),
		committed: Default(),
	}
}

// Hydrate initializes state from URL parameters. When the URL carries no
// filter parameters, the session cache (if any) is consulted instead.
// Hydration sets both local and committed state and fires no commit.
func (s *Store) Hydrate(values url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := ParseValues(values)
	if st == Default() && s.cache != nil {
		if cached, ok, err := s.cache.LoadFilterState(s.view); err == nil && ok {
			st = cached
		}
	}
	s.state = st
	s.committed = st
}

// State returns the current (possibly uncommitted) filter state.
func (s *Store) State() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Committed returns the last committed filter state.
func (s *Store) Committed() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Generation returns the current commit generation. Results of a fetch
// keyed to an older generation are stale and must be discarded.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Apply mutates the filter state optimistically and schedules a debounced
// commit.
func (s *Store) Apply(mutate func(*FilterState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	mutate(&s.state)
	s.scheduleLocked()
}

// SetMode switches the tape mode, clearing filters that do not apply to
// the new mode, as one atomic update.
func (s *Store) SetMode(m Mode) {
	s.Apply(func(st *FilterState) {
		*st = st.WithMode(m)
	})
}

// Reset restores every filter and the mode to defaults in a single update,
// producing at most one commit.
func (s *Store) Reset() {
	s.Apply(func(st *FilterState) {
		*st = Default()
	})
}

// CommitNow applies a mutation and commits immediately, bypassing the
// quiet period. Used when a suggestion is selected: the choice is final,
// there is nothing to coalesce.
func (s *Store) CommitNow(mutate func(*FilterState)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if mutate != nil {
		mutate(&s.state)
	}
	s.stopTimerLocked()
	st, gen, fire := s.commitLocked()
	s.mu.Unlock()
	if fire && s.onCommit != nil {
		s.onCommit(st, gen)
	}
}

// Close cancels any pending commit and flushes the committed state to the
// session cache. The store accepts no further edits.
func (s *Store) Close() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.closed = true
	st := s.committed
	cache, view := s.cache, s.view
	s.mu.Unlock()

	if cache != nil {
		// Best-effort convenience cache; a write failure is not fatal.
		_ = cache.SaveFilterState(view, st)
	}
}

// scheduleLocked (re)arms the debounce timer. Held under s.mu.
func (s *Store) scheduleLocked() {
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.quiet, s.fire)
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Store) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	st, gen, fire := s.commitLocked()
	s.mu.Unlock()
	if fire && s.onCommit != nil {
		s.onCommit(st, gen)
	}
}

// commitLocked promotes local state to committed. A no-op when nothing
// changed since the last commit, so a timer firing after CommitNow does
// not produce a duplicate write.
func (s *Store) commitLocked() (FilterState, uint64, bool) {
	if s.state == s.committed && s.gen > 0 {
		return s.committed, s.gen, false
	}
	s.committed = s.state
	s.gen++
	return s.committed, s.gen, true
}
