// Package httpapi exposes the indexing and answering pipeline over HTTP.
// Chat replies stream as server-sent events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/keepstack/keepstack/internal/core/domain"
	"github.com/keepstack/keepstack/internal/core/ports/driven"
	"github.com/keepstack/keepstack/internal/core/ports/driving"
	"github.com/keepstack/keepstack/internal/logger"
)

// maxAttachmentSize caps uploaded PDF bodies.
const maxAttachmentSize = 32 << 20 // 32 MiB

// Server is the keepstack HTTP API server.
type Server struct {
	chat      driving.ChatService
	indexer   driving.IndexOrchestrator
	scheduler driving.ReindexScheduler
	notes     driven.NoteStore

	server   *http.Server
	listener net.Listener
}

// NewServer creates an API server wired to the given services.
func NewServer(
	chat driving.ChatService,
	indexer driving.IndexOrchestrator,
	scheduler driving.ReindexScheduler,
	notes driven.NoteStore,
) *Server {
	return &Server{
		chat:      chat,
		indexer:   indexer,
		scheduler: scheduler,
		notes:     notes,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("PUT /api/notes/{id}", s.handleSaveNote)
	mux.HandleFunc("DELETE /api/notes/{id}", s.handleDeleteNote)
	mux.HandleFunc("POST /api/notes/{id}/reindex", s.handleReindex)
	mux.HandleFunc("POST /api/notes/{id}/attachments", s.handleAttachment)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start begins serving on addr. It returns once the listener is bound;
// serving continues on a background goroutine.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: chat responses stream for as long as
		// generation runs.
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("HTTP server stopped: %v", err)
		}
	}()

	logger.Info("API server listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound listen address, useful when addr had port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// chatPayload is the POST /api/chat request body.
type chatPayload struct {
	Message string            `json:"message"`
	OwnerID string            `json:"owner_id"`
	NoteIDs []string          `json:"note_ids"`
	History []domain.ChatTurn `json:"history"`
}

// handleChat streams the answer as SSE, one JSON fragment per event.
// The terminal event has done set; client disconnect cancels generation
// through the request context.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Tell buffering reverse proxies to pass events through.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := s.chat.Answer(r.Context(), domain.ChatRequest{
		Message: payload.Message,
		OwnerID: payload.OwnerID,
		NoteIDs: payload.NoteIDs,
		History: payload.History,
	})

	for chunk := range stream {
		data, err := json.Marshal(chunk)
		if err != nil {
			logger.Warn("Marshal stream chunk: %v", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client went away; the context cancels the pipeline.
			return
		}
		flusher.Flush()
	}
}

// notePayload is the PUT /api/notes/{id} request body.
type notePayload struct {
	WorkspaceID string          `json:"workspace_id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Content     json.RawMessage `json:"content"`
}

// handleSaveNote upserts a note and debounces its reindex.
func (s *Server) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var payload notePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note := &domain.Note{
		ID:          id,
		WorkspaceID: payload.WorkspaceID,
		OwnerID:     payload.OwnerID,
		Title:       payload.Title,
		Content:     payload.Content,
	}
	if err := s.notes.SaveNote(r.Context(), note); err != nil {
		logger.Warn("Save note %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to save note")
		return
	}

	s.scheduler.Schedule(id)
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// handleDeleteNote removes a note and drops its chunks in the background.
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.scheduler.Cancel(id)
	if err := s.notes.DeleteNote(r.Context(), id); err != nil {
		logger.Warn("Delete note %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}

	// Reindexing a deleted note drops its chunks.
	go func() {
		if err := s.indexer.ReindexNote(context.Background(), id); err != nil {
			logger.Warn("Drop chunks of note %s: %v", id, err)
		}
	}()

	w.WriteHeader(http.StatusNoContent)
}

// handleReindex schedules a debounced reindex and returns immediately.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Schedule(r.PathValue("id"))
	w.WriteHeader(http.StatusAccepted)
}

// handleAttachment accepts PDF bytes and indexes them in the background.
// The filename comes from the X-Filename header, defaulting to the
// attachment id.
func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxAttachmentSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read attachment")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "attachment body is empty")
		return
	}
	if len(data) > maxAttachmentSize {
		writeError(w, http.StatusRequestEntityTooLarge, "attachment too large")
		return
	}

	filename := r.Header.Get("X-Filename")
	if filename == "" {
		filename = id + ".pdf"
	}

	go func() {
		if err := s.indexer.ReindexAttachment(context.Background(), id, data, filename); err != nil {
			logger.Warn("Index attachment %s for note %s: %v", filename, id, err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Write JSON response: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
