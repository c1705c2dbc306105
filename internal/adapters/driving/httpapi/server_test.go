package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepstack/keepstack/internal/adapters/driven/storage/memory"
	"github.com/keepstack/keepstack/internal/core/domain"
)

// fakeChat replays a fixed fragment sequence.
type fakeChat struct {
	chunks []domain.StreamChunk
}

func (f *fakeChat) Answer(_ context.Context, _ domain.ChatRequest) <-chan domain.StreamChunk {
	out := make(chan domain.StreamChunk, len(f.chunks))
	for _, chunk := range f.chunks {
		out <- chunk
	}
	close(out)
	return out
}

// fakeScheduler records schedule and cancel calls.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
	cancelled []string
}

func (f *fakeScheduler) Schedule(noteID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, noteID)
}

func (f *fakeScheduler) Cancel(noteID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, noteID)
}

// attachmentCall captures one ReindexAttachment invocation.
type attachmentCall struct {
	noteID   string
	filename string
	size     int
}

// fakeIndexer signals recorded calls on channels so tests can wait for
// the handler's background goroutine.
type fakeIndexer struct {
	attachments chan attachmentCall
	reindexed   chan string
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		attachments: make(chan attachmentCall, 4),
		reindexed:   make(chan string, 4),
	}
}

func (f *fakeIndexer) ReindexNote(_ context.Context, noteID string) error {
	f.reindexed <- noteID
	return nil
}

func (f *fakeIndexer) ReindexAttachment(_ context.Context, noteID string, data []byte, filename string) error {
	f.attachments <- attachmentCall{noteID: noteID, filename: filename, size: len(data)}
	return nil
}

func newTestServer(chat *fakeChat) (*Server, *fakeScheduler, *fakeIndexer, *memory.NoteStore) {
	scheduler := &fakeScheduler{}
	indexer := newFakeIndexer()
	notes := memory.NewNoteStore()
	return NewServer(chat, indexer, scheduler, notes), scheduler, indexer, notes
}

func TestServer_ChatStreamsSSE(t *testing.T) {
	chat := &fakeChat{chunks: []domain.StreamChunk{
		{Answer: "Hel"},
		{Answer: "Hello"},
		{Answer: "Hello", Done: true},
	}}
	server, _, _, _ := newTestServer(chat)

	body := `{"message": "hi", "owner_id": "u1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	events := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, events, 3)

	for i, event := range events {
		require.True(t, strings.HasPrefix(event, "data: "), "event %d: %q", i, event)
		var chunk domain.StreamChunk
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(event, "data: ")), &chunk))
		assert.Equal(t, chat.chunks[i], chunk)
	}
}

func TestServer_ChatRequiresMessage(t *testing.T) {
	server, _, _, _ := newTestServer(&fakeChat{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": ""}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ChatRejectsBadJSON(t *testing.T) {
	server, _, _, _ := newTestServer(&fakeChat{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SaveNoteSchedulesReindex(t *testing.T) {
	server, scheduler, _, notes := newTestServer(&fakeChat{})

	body := `{"workspace_id": "w1", "owner_id": "u1", "title": "Plans",
		"content": [{"type": "text", "text": "hello"}]}`
	req := httptest.NewRequest(http.MethodPut, "/api/notes/note-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	note, err := notes.GetNote(context.Background(), "note-1")
	require.NoError(t, err)
	assert.Equal(t, "Plans", note.Title)
	assert.Equal(t, []string{"note-1"}, scheduler.scheduled)
}

func TestServer_DeleteNoteDropsChunks(t *testing.T) {
	server, scheduler, indexer, notes := newTestServer(&fakeChat{})

	require.NoError(t, notes.SaveNote(context.Background(), &domain.Note{ID: "note-1"}))

	req := httptest.NewRequest(http.MethodDelete, "/api/notes/note-1", http.NoBody)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"note-1"}, scheduler.cancelled)

	select {
	case noteID := <-indexer.reindexed:
		assert.Equal(t, "note-1", noteID)
	case <-time.After(2 * time.Second):
		t.Fatal("chunk cleanup did not run")
	}

	_, err := notes.GetNote(context.Background(), "note-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestServer_ReindexAccepted(t *testing.T) {
	server, scheduler, _, _ := newTestServer(&fakeChat{})

	req := httptest.NewRequest(http.MethodPost, "/api/notes/note-1/reindex", http.NoBody)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"note-1"}, scheduler.scheduled)
}

func TestServer_AttachmentIndexedInBackground(t *testing.T) {
	server, _, indexer, _ := newTestServer(&fakeChat{})

	req := httptest.NewRequest(http.MethodPost, "/api/notes/note-1/attachments",
		strings.NewReader("%PDF-1.7 fake"))
	req.Header.Set("X-Filename", "report.pdf")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case call := <-indexer.attachments:
		assert.Equal(t, "note-1", call.noteID)
		assert.Equal(t, "report.pdf", call.filename)
		assert.Equal(t, len("%PDF-1.7 fake"), call.size)
	case <-time.After(2 * time.Second):
		t.Fatal("attachment indexing did not run")
	}
}

func TestServer_AttachmentRequiresBody(t *testing.T) {
	server, _, _, _ := newTestServer(&fakeChat{})

	req := httptest.NewRequest(http.MethodPost, "/api/notes/note-1/attachments", http.NoBody)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Health(t *testing.T) {
	server, _, _, _ := newTestServer(&fakeChat{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
