package services

import (
	"context"
	"sync"

	"github.com/keepstack/keepstack/internal/core/domain"
	"github.com/keepstack/keepstack/internal/core/ports/driven"
)

// --- Shared mock implementations for service testing ---

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	mu        sync.Mutex
	calls     []string
	vector    []float32
	vectorFor map[string][]float32
	err       error
	failAfter int // fail on the Nth call (1-based); 0 disables
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{vector: []float32{1, 0, 0}}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if m.err != nil {
		return nil, m.err
	}
	if m.failAfter > 0 && len(m.calls) >= m.failAfter {
		return nil, domain.ErrServiceUnavailable
	}
	if v, ok := m.vectorFor[text]; ok {
		return v, nil
	}
	return m.vector, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockEmbedder) Dimensions() int              { return len(m.vector) }
func (m *mockEmbedder) ModelName() string            { return "mock-embedding" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM implements driven.LLMService for testing. Chat serves intent
// classification, ChatStream serves generation.
type mockLLM struct {
	mu sync.Mutex

	chatReply string
	chatErr   error
	chatCalls [][]driven.ChatMessage

	streamDeltas []string
	streamErr    error
	streamCalls  [][]driven.ChatMessage
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatCalls = append(m.chatCalls, messages)
	return m.chatReply, m.chatErr
}

func (m *mockLLM) ChatStream(
	_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions, onDelta func(string) error,
) error {
	m.mu.Lock()
	m.streamCalls = append(m.streamCalls, messages)
	deltas := m.streamDeltas
	err := m.streamErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	for _, delta := range deltas {
		if err := onDelta(delta); err != nil {
			return nil
		}
	}
	return nil
}

func (m *mockLLM) lastStreamMessages() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streamCalls) == 0 {
		return nil
	}
	return m.streamCalls[len(m.streamCalls)-1]
}

func (m *mockLLM) streamCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streamCalls)
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockTokenCounter implements driven.TokenCounter. It returns the fixed
// count unless fn is set, which lets tests make the count depend on the
// messages actually assembled.
type mockTokenCounter struct {
	count int
	fn    func([]driven.ChatMessage) int
}

func (m *mockTokenCounter) CountMessages(messages []driven.ChatMessage) int {
	if m.fn != nil {
		return m.fn(messages)
	}
	return m.count
}

// mockPDFExtractor implements driven.PDFExtractor for testing.
type mockPDFExtractor struct {
	text string
	err  error
}

func (m *mockPDFExtractor) ExtractText(_ context.Context, _ []byte) (string, error) {
	return m.text, m.err
}

// recordingChunkStore implements driven.ChunkStore and keeps each saved
// batch separate so tests can assert batching behaviour.
type recordingChunkStore struct {
	mu      sync.Mutex
	batches [][]domain.Chunk
	deletes []string
	saveErr error
}

func (m *recordingChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	batch := make([]domain.Chunk, len(chunks))
	copy(batch, chunks)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *recordingChunkStore) DeleteBySource(_ context.Context, noteID string, source domain.SourceType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, noteID+"/"+string(source))
	return nil
}

func (m *recordingChunkStore) GetChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *recordingChunkStore) SearchSimilar(
	_ context.Context, _ []float32, _ []string, _ int,
) ([]domain.SimilarChunk, error) {
	return nil, nil
}

func (m *recordingChunkStore) saved() []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Chunk
	for _, batch := range m.batches {
		all = append(all, batch...)
	}
	return all
}

// Ensure mocks implement interfaces
var _ driven.EmbeddingService = (*mockEmbedder)(nil)
var _ driven.LLMService = (*mockLLM)(nil)
var _ driven.TokenCounter = (*mockTokenCounter)(nil)
var _ driven.PDFExtractor = (*mockPDFExtractor)(nil)
var _ driven.ChunkStore = (*recordingChunkStore)(nil)
