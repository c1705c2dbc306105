package driven

import "context"

// LLMService provides text generation for intent classification and
// answer streaming.
//
// Failures are reported wrapping domain.ErrServiceUnavailable, or
// domain.ErrRateLimited when the provider signals request throttling.
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream conducts a conversation and delivers the reply
	// incrementally. onDelta is called once per fragment, in order, from a
	// single goroutine. Returning a non-nil error from onDelta stops the
	// stream promptly; no further upstream reads are made after that.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, onDelta func(delta string) error) error

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
