package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keepstack/keepstack/internal/core/domain"
	"github.com/keepstack/keepstack/internal/core/ports/driven"
	"github.com/keepstack/keepstack/internal/core/ports/driving"
	"github.com/keepstack/keepstack/internal/extract"
	"github.com/keepstack/keepstack/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// basePrompt grounds every chat turn.
const basePrompt = `You are the assistant built into a personal note-taking app.
Answer concisely and helpfully. When note content is provided below,
ground your answer in it and mention which note it came from. If the
notes do not contain the answer, say so instead of guessing.`

// Canned replies for turns the pipeline resolves without generation.
const (
	historyTooLongReply = "This conversation has grown too long for me to follow. " +
		"Please start a new chat and ask again."
	upstreamFailureReply = "I'm sorry, I ran into a problem while answering. " +
		"Please try again."
	rateLimitedReply = "I'm handling too many requests right now. " +
		"Please try again in a moment."
)

// System prompt extensions for intents that cannot be served with
// retrieved content. The turn is still answered.
const (
	noNoteContentPrompt = "The user asked about a note, but it has no " +
		"readable content yet. Tell them that, then answer whatever you can " +
		"from the conversation itself."
	supportLaterPrompt = "The user asked to create, edit or delete a note " +
		"or workspace. You cannot make changes from chat yet; explain that, " +
		"point them to the editor, and still answer whatever else the " +
		"message asks."
)

// ChatConfig tunes the answering pipeline.
type ChatConfig struct {
	// HistoryBudget is the maximum token count of the base prompt,
	// history and new message combined.
	HistoryBudget int

	// SearchLimit is how many chunks similarity search contributes.
	SearchLimit int
}

// ChatService answers user questions, optionally grounded in chunks
// retrieved from the user's notes.
type ChatService struct {
	chunkStore driven.ChunkStore
	noteStore  driven.NoteStore
	embedder   driven.EmbeddingService
	llm        driven.LLMService
	intents    *IntentRouter
	tokens     driven.TokenCounter
	cfg        ChatConfig
}

// NewChatService creates a chat service.
func NewChatService(
	chunkStore driven.ChunkStore,
	noteStore driven.NoteStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	intents *IntentRouter,
	tokens driven.TokenCounter,
	cfg ChatConfig,
) *ChatService {
	if cfg.HistoryBudget <= 0 {
		cfg.HistoryBudget = 500
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 2
	}
	return &ChatService{
		chunkStore: chunkStore,
		noteStore:  noteStore,
		embedder:   embedder,
		llm:        llm,
		intents:    intents,
		tokens:     tokens,
		cfg:        cfg,
	}
}

// Answer streams the reply to req as ordered fragments. The channel is
// closed after the terminal fragment; cancelling ctx stops production.
func (s *ChatService) Answer(ctx context.Context, req domain.ChatRequest) <-chan domain.StreamChunk {
	out := make(chan domain.StreamChunk, 8)
	go func() {
		defer close(out)
		s.answer(ctx, req, out)
	}()
	return out
}

// answer runs one chat turn end to end. Every path ends with a terminal
// fragment; upstream failures become an apology instead of a fault.
func (s *ChatService) answer(ctx context.Context, req domain.ChatRequest, out chan<- domain.StreamChunk) {
	logger.Section("Chat Turn")
	logger.Debug("Owner: %s, notes in scope: %d, history: %d turns",
		req.OwnerID, len(req.NoteIDs), len(req.History))

	decision := s.intents.Classify(ctx, req.Message, req.History)

	system := basePrompt
	switch decision.Type {
	case domain.IntentSupportLater:
		system = basePrompt + "\n\n" + supportLaterPrompt

	case domain.IntentSearch:
		// Retrieval failures degrade to an ungrounded answer, never a
		// failed turn.
		noteContext, err := s.searchContext(ctx, decision.Query, req.NoteIDs)
		if err != nil {
			logger.Warn("Search context failed, answering without it: %v", err)
			noteContext = ""
		}
		if noteContext != "" {
			system = basePrompt + "\n\nRelevant note content:\n\n" + noteContext
		}

	case domain.IntentSummarizeNote:
		noteContext, err := s.summarizeContext(ctx, decision.Query, req.NoteIDs)
		if err != nil {
			logger.Warn("Loading note to summarize failed: %v", err)
			noteContext = ""
		}
		if noteContext == "" {
			system = basePrompt + "\n\n" + noNoteContentPrompt
		} else {
			system = basePrompt + "\n\nSummarize this note for the user:\n\n" + noteContext
		}
	}

	// The budget covers the fully assembled prompt, retrieved context
	// included, so oversized turns never reach generation.
	messages := s.promptMessages(system, req)
	if used := s.tokens.CountMessages(messages); used > s.cfg.HistoryBudget {
		logger.Info("Prompt too long: %d tokens over budget %d", used, s.cfg.HistoryBudget)
		s.send(ctx, out, domain.StreamChunk{
			Answer:    historyTooLongReply,
			Done:      true,
			ErrorType: domain.StreamErrHistoryTooLong,
		})
		return
	}

	s.stream(ctx, out, messages)
}

// promptMessages assembles the LLM message list: system prompt, replayed
// history, then the new user message.
func (s *ChatService) promptMessages(system string, req domain.ChatRequest) []driven.ChatMessage {
	messages := make([]driven.ChatMessage, 0, len(req.History)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: system})
	for _, turn := range req.History {
		messages = append(messages, driven.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, driven.ChatMessage{Role: "user", Content: req.Message})
}

// searchContext embeds the query and renders the top matching chunks,
// each labelled with its source note.
func (s *ChatService) searchContext(ctx context.Context, query string, noteIDs []string) (string, error) {
	if len(noteIDs) == 0 {
		logger.Debug("Search intent with no notes in scope, answering without context")
		return "", nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.chunkStore.SearchSimilar(ctx, embedding, noteIDs, s.cfg.SearchLimit)
	if err != nil {
		return "", fmt.Errorf("similarity search: %w", err)
	}
	logger.Debug("Similarity search: %d hits", len(hits))

	sections := make([]string, 0, len(hits))
	for _, hit := range hits {
		sections = append(sections, fmt.Sprintf("[Source: %s (ID: %s)]\n%s",
			hit.NoteTitle, hit.NoteID, hit.Content))
	}
	return strings.Join(sections, "\n\n"), nil
}

// summarizeContext loads the full extracted text of the note to
// summarize, bypassing the chunk index so the summary sees the body as
// a whole. The classifier may name the note in its query; a named note
// outside the request scope is treated as unreadable rather than
// silently swapped for another. With no note named, the first note in
// scope is assumed to be the one on screen.
func (s *ChatService) summarizeContext(ctx context.Context, query string, noteIDs []string) (string, error) {
	noteID := ""
	if query != "" {
		for _, id := range noteIDs {
			if id == query {
				noteID = id
				break
			}
		}
		if noteID == "" {
			logger.Debug("Note %s named for summarize is not in scope", query)
			return "", nil
		}
	} else if len(noteIDs) > 0 {
		noteID = noteIDs[0]
	}
	if noteID == "" {
		return "", nil
	}

	note, err := s.noteStore.GetNote(ctx, noteID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("Note %s not found for summarize", noteID)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load note %s: %w", noteID, err)
	}

	text := extract.FromJSON(note.Content)
	if text == "" {
		return "", nil
	}
	return fmt.Sprintf("[Source: %s (ID: %s)]\n%s", note.Title, note.ID, text), nil
}

// stream generates the reply, forwarding each fragment with the
// cumulative answer so far, then the terminal fragment.
func (s *ChatService) stream(ctx context.Context, out chan<- domain.StreamChunk, messages []driven.ChatMessage) {
	var answer strings.Builder

	err := s.llm.ChatStream(ctx, messages, driven.ChatOptions{}, func(delta string) error {
		answer.WriteString(delta)
		if !s.send(ctx, out, domain.StreamChunk{Answer: answer.String()}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		logger.Warn("Chat generation failed: %v", err)
		s.fail(ctx, out, err)
		return
	}

	s.send(ctx, out, domain.StreamChunk{Answer: answer.String(), Done: true})
}

// fail converts an upstream error into a single terminal fragment.
func (s *ChatService) fail(ctx context.Context, out chan<- domain.StreamChunk, err error) {
	reply := upstreamFailureReply
	if errors.Is(err, domain.ErrRateLimited) {
		reply = rateLimitedReply
	}
	s.send(ctx, out, domain.StreamChunk{Answer: reply, Done: true})
}

// send delivers a fragment unless the consumer is gone. Returns false
// once ctx is cancelled.
func (s *ChatService) send(ctx context.Context, out chan<- domain.StreamChunk, chunk domain.StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
