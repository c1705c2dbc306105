package domain

import (
	"encoding/json"
	"time"
)

// SourceType identifies where a chunk's text originated.
type SourceType string

const (
	// SourceNoteText marks chunks extracted from the note body itself.
	SourceNoteText SourceType = "NOTE_TEXT"

	// SourcePDFAttachment marks chunks extracted from an attached PDF.
	SourcePDFAttachment SourceType = "PDF_ATTACHMENT"
)

// Note is a structured document owned by a user. The editor persists the
// body as a JSON document tree; keepstack only reads it for indexing and
// summarisation. Note CRUD itself lives outside this module.
type Note struct {
	// ID is the unique identifier for the note.
	ID string

	// WorkspaceID groups notes that are visible together.
	WorkspaceID string

	// OwnerID is the user that owns the note.
	OwnerID string

	// Title is the human-readable title.
	Title string

	// Content is the raw JSON document tree as stored by the editor.
	Content json.RawMessage

	// CreatedAt is when the note was created.
	CreatedAt time.Time

	// UpdatedAt is when the note was last modified.
	UpdatedAt time.Time
}

// Chunk is a bounded, independently embedded slice of a note's text.
// Identity is (NoteID, Index, Source): re-indexing a note for a source
// type replaces every chunk of that type, so indices stay dense and
// zero-based within a generation.
type Chunk struct {
	// ID is the unique identifier for the chunk row.
	ID string

	// NoteID links to the owning note. Chunks are cascade-deleted with it.
	NoteID string

	// Index is the zero-based ordinal within (NoteID, Source).
	Index int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation used for similarity search.
	Embedding []float32

	// Source records whether the text came from the note body or a PDF.
	Source SourceType

	// SourceFile is the attachment filename for PDF chunks, empty otherwise.
	SourceFile string

	// CreatedAt is when the chunk was written.
	CreatedAt time.Time

	// UpdatedAt is when the chunk was last written.
	UpdatedAt time.Time
}

// SimilarChunk is a similarity search hit enriched with note identity so
// answers can cite their source.
type SimilarChunk struct {
	// Content is the chunk text.
	Content string

	// NoteID is the id of the note the chunk belongs to.
	NoteID string

	// NoteTitle is the title of that note.
	NoteTitle string

	// Similarity is the cosine similarity to the query (higher is closer).
	Similarity float64
}
