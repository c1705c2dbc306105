package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/keepstack/keepstack/internal/chunker"
	"github.com/keepstack/keepstack/internal/core/domain"
	"github.com/keepstack/keepstack/internal/core/ports/driven"
	"github.com/keepstack/keepstack/internal/core/ports/driving"
	"github.com/keepstack/keepstack/internal/extract"
	"github.com/keepstack/keepstack/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexOrchestrator = (*IndexService)(nil)

// IndexService rebuilds a note's searchable chunks from its current
// content. Each source type (note body, PDF attachment) is replaced
// independently so attachment chunks survive a body reindex.
type IndexService struct {
	noteStore  driven.NoteStore
	chunkStore driven.ChunkStore
	embedder   driven.EmbeddingService
	pdf        driven.PDFExtractor
	splitter   *chunker.Splitter
	limiter    *rate.Limiter
	batchSize  int
}

// IndexConfig tunes the indexing pipeline.
type IndexConfig struct {
	// BatchSize is the number of chunks persisted per store write.
	BatchSize int

	// EmbedRate limits embedding requests per second. Zero disables
	// rate limiting.
	EmbedRate int
}

// NewIndexService creates an index service. The PDF extractor is
// optional; without it attachment reindexing reports an error.
func NewIndexService(
	noteStore driven.NoteStore,
	chunkStore driven.ChunkStore,
	embedder driven.EmbeddingService,
	pdf driven.PDFExtractor,
	splitter *chunker.Splitter,
	cfg IndexConfig,
) *IndexService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.EmbedRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRate), cfg.EmbedRate)
	}

	return &IndexService{
		noteStore:  noteStore,
		chunkStore: chunkStore,
		embedder:   embedder,
		pdf:        pdf,
		splitter:   splitter,
		limiter:    limiter,
		batchSize:  batchSize,
	}
}

// ReindexNote re-reads the note and replaces its note-body chunks.
// The content is fetched fresh at call time, so a debounced call made
// against an old revision still indexes the latest text. A note that has
// been deleted in the meantime just has its chunks dropped.
func (s *IndexService) ReindexNote(ctx context.Context, noteID string) error {
	logger.Section("Reindex Note")
	logger.Debug("Note: %s", noteID)

	note, err := s.noteStore.GetNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Info("Note %s no longer exists, dropping its chunks", noteID)
			if err := s.chunkStore.DeleteBySource(ctx, noteID, domain.SourceNoteText); err != nil {
				return fmt.Errorf("drop chunks of deleted note: %w", err)
			}
			return s.chunkStore.DeleteBySource(ctx, noteID, domain.SourcePDFAttachment)
		}
		return fmt.Errorf("get note %s: %w", noteID, err)
	}

	text := extract.FromJSON(note.Content)
	logger.Debug("Extracted %d bytes of text", len(text))

	return s.replaceChunks(ctx, noteID, domain.SourceNoteText, "", text)
}

// ReindexAttachment extracts text from the PDF bytes and replaces the
// note's attachment chunks. A PDF that yields no text (or fails
// extraction) clears the old attachment chunks and indexes nothing,
// without reporting an error.
func (s *IndexService) ReindexAttachment(
	ctx context.Context, noteID string, data []byte, filename string,
) error {
	logger.Section("Reindex Attachment")
	logger.Debug("Note: %s, file: %s, size: %d bytes", noteID, filename, len(data))

	if s.pdf == nil {
		return fmt.Errorf("%w: pdf extraction not configured", domain.ErrServiceUnavailable)
	}

	if _, err := s.noteStore.GetNote(ctx, noteID); err != nil {
		return fmt.Errorf("get note %s: %w", noteID, err)
	}

	text, err := s.pdf.ExtractText(ctx, data)
	if err != nil {
		// Corrupt or image-only PDFs are expected input, not faults.
		logger.Warn("PDF extraction failed for %s: %v", filename, err)
		text = ""
	}

	if text != "" {
		text = fmt.Sprintf("[PDF Content from: %s]\n\n%s", filename, text)
	}

	return s.replaceChunks(ctx, noteID, domain.SourcePDFAttachment, filename, text)
}

// replaceChunks deletes the note's chunks of one source type and indexes
// the given text in their place. Batches are persisted as they complete,
// so an embedding failure mid-run leaves the earlier batches searchable
// rather than discarding the whole reindex.
func (s *IndexService) replaceChunks(
	ctx context.Context, noteID string, source domain.SourceType, sourceFile, text string,
) error {
	if err := s.chunkStore.DeleteBySource(ctx, noteID, source); err != nil {
		return fmt.Errorf("delete %s chunks: %w", source, err)
	}

	if text == "" {
		logger.Info("No content to index for note %s (%s)", noteID, source)
		return nil
	}

	pieces := s.splitter.Split(text)
	logger.Debug("Split into %d chunks", len(pieces))

	batch := make([]domain.Chunk, 0, s.batchSize)
	saved := 0

	for i, piece := range pieces {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		embedding, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return fmt.Errorf("embed chunk %d of note %s: %w", i, noteID, err)
		}

		batch = append(batch, domain.Chunk{
			ID:         uuid.NewString(),
			NoteID:     noteID,
			Index:      i,
			Content:    piece,
			Embedding:  embedding,
			Source:     source,
			SourceFile: sourceFile,
		})

		if len(batch) >= s.batchSize {
			if err := s.chunkStore.SaveChunks(ctx, batch); err != nil {
				return fmt.Errorf("save chunk batch: %w", err)
			}
			saved += len(batch)
			logger.Debug("Saved batch, %d/%d chunks done", saved, len(pieces))
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.chunkStore.SaveChunks(ctx, batch); err != nil {
			return fmt.Errorf("save chunk batch: %w", err)
		}
		saved += len(batch)
	}

	logger.Info("Indexed %d chunks for note %s (%s)", saved, noteID, source)
	return nil
}
