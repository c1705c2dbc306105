package domain

// Stream error labels carried by terminal chunks.
const (
	// StreamErrHistoryTooLong marks a request whose assembled prompt
	// exceeded the token budget. Caller-correctable: shorten the input.
	StreamErrHistoryTooLong = "HISTORY_TOO_LONG"
)

// StreamChunk is one incremental answer fragment. Fragments are emitted in
// strict order; Answer always carries the cumulative text so far, and the
// final fragment of every stream has Done set.
type StreamChunk struct {
	// Answer is the answer text accumulated so far.
	Answer string `json:"answer"`

	// Done marks the terminal fragment of the stream.
	Done bool `json:"done"`

	// ErrorType labels an explicitly recoverable terminal condition,
	// such as StreamErrHistoryTooLong. Empty on success.
	ErrorType string `json:"error_type,omitempty"`
}

// ChatTurn is one prior exchange entry replayed into the prompt.
type ChatTurn struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the turn text.
	Content string `json:"content"`
}

// ChatRequest is an inbound question for the answer pipeline.
type ChatRequest struct {
	// Message is the new user message.
	Message string

	// OwnerID is the requesting user.
	OwnerID string

	// NoteIDs scopes similarity search to notes the owner may access.
	NoteIDs []string

	// History is the prior conversation, oldest first.
	History []ChatTurn
}
