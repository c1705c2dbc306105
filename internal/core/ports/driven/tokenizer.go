package driven

// TokenCounter counts prompt tokens using the generation model's own
// tokenizer, so budget checks agree with what the provider will bill.
type TokenCounter interface {
	// CountMessages returns the token total of a full message list,
	// including per-message framing overhead.
	CountMessages(messages []ChatMessage) int
}
