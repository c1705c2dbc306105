package driven

import (
	"context"

	"github.com/keepstack/keepstack/internal/core/domain"
)

// ChunkStore persists embedded chunks and serves similarity search.
// Backed by SQLite; chunks cascade-delete with their owning note.
type ChunkStore interface {
	// SaveChunks stores a batch of chunks in a single transaction.
	// Callers that index in batches get at-least-partial progress: a
	// failed later batch does not roll back earlier ones.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// DeleteBySource removes every chunk of the given source type for a
	// note. Used to replace a whole generation before re-indexing.
	DeleteBySource(ctx context.Context, noteID string, source domain.SourceType) error

	// GetChunks retrieves a note's chunks ordered by source and index.
	GetChunks(ctx context.Context, noteID string) ([]domain.Chunk, error)

	// SearchSimilar returns the limit nearest chunks to the query
	// embedding by cosine similarity, restricted to the given note ids.
	// Hits carry their note's id and title for citation.
	SearchSimilar(ctx context.Context, embedding []float32, noteIDs []string, limit int) ([]domain.SimilarChunk, error)
}
