package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/keepstack/keepstack/internal/core/domain"
	"github.com/keepstack/keepstack/internal/core/ports/driven"
	"github.com/keepstack/keepstack/internal/logger"
)

// intentPrompt instructs the model to classify the user's message.
// The reply must be bare JSON so it can be machine-parsed.
const intentPrompt = `You classify a user's message to a note-taking assistant.

Reply with ONLY a JSON object, no prose and no code fences:
{"intent": "<intent>", "query": "<query>"}

Intents:
- "general": ordinary conversation or questions answerable without the user's notes
- "search": the user wants information that lives in their notes
- "summarize_note": the user asks to summarize the note they are viewing
- "support_later": the user asks to create, edit or delete a note or workspace, which the assistant cannot do yet

For "search", set "query" to the message rewritten as a concise
standalone search query. For "summarize_note", set "query" to the note
id mentioned in the message, or "" if none is mentioned. Otherwise
repeat the message unchanged.`

// IntentRouter classifies chat messages so the answering pipeline can
// pick a retrieval strategy.
type IntentRouter struct {
	llm driven.LLMService
}

// NewIntentRouter creates an intent router backed by the given LLM.
func NewIntentRouter(llm driven.LLMService) *IntentRouter {
	return &IntentRouter{llm: llm}
}

// intentReply is the JSON shape the classification prompt requests.
type intentReply struct {
	Intent string `json:"intent"`
	Query  string `json:"query"`
}

// Classify determines the intent of a chat message. The prior turns are
// replayed into the classification call so follow-ups like "try again"
// classify the same way as the message they refer to. Classification is
// best-effort: an LLM failure or an unparseable reply degrades to the
// general intent rather than failing the chat turn.
func (r *IntentRouter) Classify(ctx context.Context, message string, history []domain.ChatTurn) domain.IntentDecision {
	fallback := domain.IntentDecision{Type: domain.IntentGeneral, Query: message}

	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: intentPrompt})
	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: "user", Content: message})

	reply, err := r.llm.Chat(ctx, messages, driven.ChatOptions{MaxTokens: 200})
	if err != nil {
		logger.Warn("Intent classification failed: %v (defaulting to general)", err)
		return fallback
	}

	decision, err := parseIntentReply(reply)
	if err != nil {
		logger.Warn("Intent reply unparseable: %v (defaulting to general)", err)
		return fallback
	}

	// A search without a rewritten query falls back to the raw message.
	// A summarize without a note id stays empty so the caller can pick
	// the note in scope.
	if decision.Type == domain.IntentSearch && decision.Query == "" {
		decision.Query = message
	}
	logger.Info("Intent: %s, query: %q", decision.Type, decision.Query)
	return decision
}

// parseIntentReply decodes the model's classification JSON. Models
// occasionally wrap the object in a code fence despite instructions, so
// fences are stripped before decoding.
func parseIntentReply(reply string) (domain.IntentDecision, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	var parsed intentReply
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		return domain.IntentDecision{}, domain.ErrIntentParse
	}

	intent := domain.IntentType(parsed.Intent)
	if !intent.Valid() {
		return domain.IntentDecision{}, domain.ErrIntentParse
	}

	return domain.IntentDecision{Type: intent, Query: strings.TrimSpace(parsed.Query)}, nil
}
