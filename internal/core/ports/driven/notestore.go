package driven

import (
	"context"

	"github.com/keepstack/keepstack/internal/core/domain"
)

// NoteStore reads and writes notes. Note CRUD endpoints live outside this
// module; the port exists so the indexer can re-read a note's current
// content when a debounce timer fires and so summarisation can fetch a
// note's body.
type NoteStore interface {
	// GetNote retrieves a note by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetNote(ctx context.Context, id string) (*domain.Note, error)

	// SaveNote stores or updates a note.
	SaveNote(ctx context.Context, note *domain.Note) error

	// DeleteNote removes a note and, through cascade, its chunks.
	DeleteNote(ctx context.Context, id string) error
}
