package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/keepstack/keepstack/internal/core/domain"
	"github.com/keepstack/keepstack/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Similarity search resolves note titles through an optional NoteStore.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	notes  *NoteStore
}

// NewChunkStore creates a new in-memory chunk store. The note store may
// be nil; hits then carry empty titles.
func NewChunkStore(notes *NoteStore) *ChunkStore {
	return &ChunkStore{
		chunks: make(map[string]domain.Chunk),
		notes:  notes,
	}
}

// SaveChunks stores a batch of chunks.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, chunk := range chunks {
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		chunk.UpdatedAt = now
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// DeleteBySource removes all chunks of one source type for a note.
func (s *ChunkStore) DeleteBySource(_ context.Context, noteID string, source domain.SourceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, chunk := range s.chunks {
		if chunk.NoteID == noteID && chunk.Source == source {
			delete(s.chunks, id)
		}
	}
	return nil
}

// GetChunks retrieves a note's chunks ordered by source and index.
func (s *ChunkStore) GetChunks(_ context.Context, noteID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []domain.Chunk
	for _, chunk := range s.chunks {
		if chunk.NoteID == noteID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Source != chunks[j].Source {
			return chunks[i].Source < chunks[j].Source
		}
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}

// SearchSimilar ranks chunks of the given notes by cosine similarity.
func (s *ChunkStore) SearchSimilar(
	ctx context.Context, embedding []float32, noteIDs []string, limit int,
) ([]domain.SimilarChunk, error) {
	if len(embedding) == 0 || len(noteIDs) == 0 || limit <= 0 {
		return nil, nil
	}

	visible := make(map[string]bool, len(noteIDs))
	for _, id := range noteIDs {
		visible[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.SimilarChunk
	for _, chunk := range s.chunks {
		if !visible[chunk.NoteID] || len(chunk.Embedding) != len(embedding) {
			continue
		}
		hit := domain.SimilarChunk{
			Content:    chunk.Content,
			NoteID:     chunk.NoteID,
			Similarity: cosine(embedding, chunk.Embedding),
		}
		if s.notes != nil {
			if note, err := s.notes.GetNote(ctx, chunk.NoteID); err == nil {
				hit.NoteTitle = note.Title
			}
		}
		hits = append(hits, hit)
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// cosine computes cosine similarity between two equal-length vectors.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
