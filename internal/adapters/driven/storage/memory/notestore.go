// Package memory provides in-memory implementations of the storage ports,
// used by tests and as a lightweight backend for development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/keepstack/keepstack/internal/core/domain"
	"github.com/keepstack/keepstack/internal/core/ports/driven"
)

// Ensure NoteStore implements the interface.
var _ driven.NoteStore = (*NoteStore)(nil)

// NoteStore is an in-memory implementation of driven.NoteStore.
type NoteStore struct {
	mu    sync.RWMutex
	notes map[string]domain.Note
}

// NewNoteStore creates a new in-memory note store.
func NewNoteStore() *NoteStore {
	return &NoteStore{
		notes: make(map[string]domain.Note),
	}
}

// SaveNote stores or updates a note.
func (s *NoteStore) SaveNote(_ context.Context, note *domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now
	s.notes[note.ID] = *note
	return nil
}

// GetNote retrieves a note by ID.
func (s *NoteStore) GetNote(_ context.Context, id string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &note, nil
}

// DeleteNote removes a note.
func (s *NoteStore) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	return nil
}
