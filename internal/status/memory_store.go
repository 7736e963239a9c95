package status

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store. This is intended for
// testing. Production should use FileStore or postgres.Store.
type MemoryStore struct {
	mu      sync.RWMutex
	doc     *Document
	history []HistoryEntry
}

// NewMemoryStore creates a new in-memory status store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the current document, or (nil, nil) if none was saved yet.
func (s *MemoryStore) Load(_ context.Context) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc == nil {
		return nil, nil
	}

	// Return a copy
	cpy := *s.doc
	cpy.Components = append([]Component(nil), s.doc.Components...)
	cpy.Incidents = append([]Incident(nil), s.doc.Incidents...)
	return &cpy, nil
}

// Save replaces the stored document.
func (s *MemoryStore) Save(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpy := *doc
	cpy.Components = append([]Component(nil), doc.Components...)
	cpy.Incidents = append([]Incident(nil), doc.Incidents...)
	s.doc = &cpy
	return nil
}

// AppendHistory appends an entry and trims to HistoryLimit.
func (s *MemoryStore) AppendHistory(_ context.Context, entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, entry)
	if len(s.history) > HistoryLimit {
		s.history = s.history[len(s.history)-HistoryLimit:]
	}
	return nil
}

// History returns a copy of the stored history log.
func (s *MemoryStore) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]HistoryEntry(nil), s.history...)
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
