package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepstack/keepstack/internal/core/domain"
)

func TestIntentRouter_ClassifiesSearch(t *testing.T) {
	llm := &mockLLM{chatReply: `{"intent": "search", "query": "project deadlines"}`}
	router := NewIntentRouter(llm)

	decision := router.Classify(context.Background(), "when are my project deadlines?", nil)

	assert.Equal(t, domain.IntentSearch, decision.Type)
	assert.Equal(t, "project deadlines", decision.Query)
}

func TestIntentRouter_StripsCodeFences(t *testing.T) {
	llm := &mockLLM{chatReply: "```json\n{\"intent\": \"summarize_note\", \"query\": \"note-7\"}\n```"}
	router := NewIntentRouter(llm)

	decision := router.Classify(context.Background(), "summarize this note", nil)

	assert.Equal(t, domain.IntentSummarizeNote, decision.Type)
	assert.Equal(t, "note-7", decision.Query)
}

func TestIntentRouter_UnparseableReplyDefaultsToGeneral(t *testing.T) {
	llm := &mockLLM{chatReply: "sure, that sounds like a search to me!"}
	router := NewIntentRouter(llm)

	decision := router.Classify(context.Background(), "hello there", nil)

	assert.Equal(t, domain.IntentGeneral, decision.Type)
	assert.Equal(t, "hello there", decision.Query)
}

func TestIntentRouter_UnknownLabelDefaultsToGeneral(t *testing.T) {
	llm := &mockLLM{chatReply: `{"intent": "translate", "query": "hola"}`}
	router := NewIntentRouter(llm)

	decision := router.Classify(context.Background(), "translate hola", nil)

	assert.Equal(t, domain.IntentGeneral, decision.Type)
	assert.Equal(t, "translate hola", decision.Query)
}

func TestIntentRouter_LLMFailureDefaultsToGeneral(t *testing.T) {
	llm := &mockLLM{chatErr: domain.ErrServiceUnavailable}
	router := NewIntentRouter(llm)

	decision := router.Classify(context.Background(), "what's the weather?", nil)

	assert.Equal(t, domain.IntentGeneral, decision.Type)
	assert.Equal(t, "what's the weather?", decision.Query)
}

func TestIntentRouter_EmptyQueryFallsBackToMessage(t *testing.T) {
	llm := &mockLLM{chatReply: `{"intent": "search", "query": ""}`}
	router := NewIntentRouter(llm)

	decision := router.Classify(context.Background(), "find my tax notes", nil)

	assert.Equal(t, domain.IntentSearch, decision.Type)
	assert.Equal(t, "find my tax notes", decision.Query)
}

func TestIntentRouter_ReplaysHistoryIntoClassification(t *testing.T) {
	llm := &mockLLM{chatReply: `{"intent": "search", "query": "tax notes"}`}
	router := NewIntentRouter(llm)

	history := []domain.ChatTurn{
		{Role: "user", Content: "find my tax notes"},
		{Role: "assistant", Content: "I found nothing."},
	}
	router.Classify(context.Background(), "try again", history)

	require.Len(t, llm.chatCalls, 1)
	messages := llm.chatCalls[0]
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "find my tax notes", messages[1].Content)
	assert.Equal(t, "I found nothing.", messages[2].Content)
	assert.Equal(t, "try again", messages[3].Content)
}

func TestParseIntentReply_RejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not json",
		`{"intent": 42}`,
		`["search"]`,
	}
	for _, reply := range cases {
		_, err := parseIntentReply(reply)
		assert.ErrorIs(t, err, domain.ErrIntentParse, "reply: %q", reply)
	}
}
