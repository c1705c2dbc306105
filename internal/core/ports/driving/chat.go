package driving

import (
	"context"

	"github.com/keepstack/keepstack/internal/core/domain"
)

// ChatService answers user questions grounded in indexed note content.
type ChatService interface {
	// Answer streams the reply as ordered fragments. The returned channel
	// is closed after the terminal fragment (Done=true). Cancelling ctx
	// stops production promptly; the stream never surfaces an unhandled
	// fault, upstream failures arrive as a terminal fragment instead.
	Answer(ctx context.Context, req domain.ChatRequest) <-chan domain.StreamChunk
}
