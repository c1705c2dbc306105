package driving

import "context"

// IndexOrchestrator rebuilds a note's searchable chunks.
type IndexOrchestrator interface {
	// ReindexNote re-reads the note's current content and replaces all of
	// its note-body chunks. The note content is fetched fresh so debounced
	// callers never index stale state.
	ReindexNote(ctx context.Context, noteID string) error

	// ReindexAttachment extracts text from the given PDF bytes and
	// replaces all of the note's attachment chunks. Unextractable PDFs
	// short-circuit with no content indexed and no error.
	ReindexAttachment(ctx context.Context, noteID string, data []byte, filename string) error
}

// ReindexScheduler coalesces rapid edits into a single deferred reindex.
type ReindexScheduler interface {
	// Schedule arms (or re-arms) the debounce timer for a note.
	// The call returns immediately; the reindex runs after the quiet
	// period on its own goroutine.
	Schedule(noteID string)

	// Cancel drops a pending timer for a note, if any.
	Cancel(noteID string)
}
