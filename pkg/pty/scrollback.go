package pty

import (
	"sync"

	"github.com/relaycode/loom/pkg/ui/compositor"
)

// Scrollback is a bounded, mutex-guarded ring of rows scrolled off the top
// of a Grid. The bounded-ring-under-one-lock shape follows the scrollback
// buffer in the reference UI stack, adapted here from styled chat lines to
// raw terminal cell rows.
type Scrollback struct {
	mu    sync.RWMutex
	rows  [][]compositor.Cell
	limit int
}

// NewScrollback creates a scrollback ring holding at most limit rows.
func NewScrollback(limit int) *Scrollback {
	if limit < 1 {
		limit = 1
	}
	return &Scrollback{limit: limit}
}

// Push appends a row, evicting the oldest row if the ring is full.
func (s *Scrollback) Push(row []compositor.Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	if over := len(s.rows) - s.limit; over > 0 {
		s.rows = s.rows[over:]
	}
}

// Len returns the number of rows currently retained.
func (s *Scrollback) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Limit returns the configured maximum number of rows.
func (s *Scrollback) Limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limit
}

// SetLimit changes the maximum retained rows, trimming the oldest if the
// new limit is smaller than the current content.
func (s *Scrollback) SetLimit(limit int) {
	if limit < 1 {
		limit = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
	if over := len(s.rows) - s.limit; over > 0 {
		s.rows = s.rows[over:]
	}
}

// Lines returns a snapshot of the retained rows, oldest first.
func (s *Scrollback) Lines() [][]compositor.Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]compositor.Cell, len(s.rows))
	copy(out, s.rows)
	return out
}
