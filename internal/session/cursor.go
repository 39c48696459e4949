package session

import (
	"context"
	"sync"
)

// Cursor is one saved streaming continuation: the server-side cursor id,
// the namespace it belongs to, and the backend connection pinned to it.
type Cursor struct {
	ID        int64
	Namespace string
	Conn      BackendConnection
}

// CursorStore tracks the live cursors of one connection, keyed by cursor
// id. Streaming commands save a cursor after producing a first batch;
// follow-up commands look it up; exhaustion or connection close destroys
// it. Safe for concurrent use.
type CursorStore struct {
	mu      sync.Mutex
	cursors map[int64]*Cursor
}

func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[int64]*Cursor)}
}

// Save registers a cursor, replacing any previous cursor with the same id.
func (s *CursorStore) Save(c *Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[c.ID] = c
}

// Get returns the cursor for an id, or nil when unknown.
func (s *CursorStore) Get(id int64) *Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[id]
}

// Invalidate removes a cursor and closes its pinned connection.
func (s *CursorStore) Invalidate(ctx context.Context, id int64) error {
	s.mu.Lock()
	c, ok := s.cursors[id]
	delete(s.cursors, id)
	s.mu.Unlock()

	if !ok || c.Conn == nil {
		return nil
	}
	return c.Conn.Close(ctx)
}

// InvalidateAll drops every cursor, closing pinned connections. Called by
// the connection layer on connection close; the last close error wins.
func (s *CursorStore) InvalidateAll(ctx context.Context) error {
	s.mu.Lock()
	cursors := s.cursors
	s.cursors = make(map[int64]*Cursor)
	s.mu.Unlock()

	var lastErr error
	for _, c := range cursors {
		if c.Conn == nil {
			continue
		}
		if err := c.Conn.Close(ctx); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Len reports the number of live cursors.
func (s *CursorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cursors)
}
