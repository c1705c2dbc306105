// Package tokenizer counts prompt tokens with the tiktoken encodings
// used by OpenAI chat models.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/keepstack/keepstack/internal/core/ports/driven"
)

// Ensure Counter implements the interface.
var _ driven.TokenCounter = (*Counter)(nil)

// fallbackEncoding covers models tiktoken does not know about yet.
const fallbackEncoding = "cl100k_base"

// Chat request framing overhead, per OpenAI's token accounting:
// every message costs three tokens of scaffolding, and the reply is
// primed with three more.
const (
	tokensPerMessage = 3
	replyPrimer      = 3
)

// Counter counts tokens for a specific generation model.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewForModel creates a counter using the model's own encoding, falling
// back to cl100k_base for models not yet in the tiktoken registry.
func NewForModel(model string) (*Counter, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load %s encoding: %w", fallbackEncoding, err)
		}
	}
	return &Counter{encoding: encoding}, nil
}

// CountMessages returns the token total of a message list, including the
// per-message framing overhead.
func (c *Counter) CountMessages(messages []driven.ChatMessage) int {
	total := 0
	for _, msg := range messages {
		total += tokensPerMessage
		if msg.Content != "" {
			total += len(c.encoding.Encode(msg.Content, nil, nil))
		}
	}
	return total + replyPrimer
}
