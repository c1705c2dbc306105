package domain

// IntentType is the fixed label set the intent classifier may produce.
type IntentType string

const (
	// IntentGeneral answers from history and model knowledge alone.
	IntentGeneral IntentType = "general"

	// IntentSearch runs vector similarity search with the decision query.
	IntentSearch IntentType = "search"

	// IntentSummarizeNote fetches one note's full text and summarises it.
	// The decision query carries the note id.
	IntentSummarizeNote IntentType = "summarize_note"

	// IntentSupportLater covers mutations (create/delete/update note or
	// workspace) the chat cannot perform yet.
	IntentSupportLater IntentType = "support_later"
)

// IntentDecision is the validated outcome of classifying a user message.
// Exactly one variant is active per request; Query is only meaningful for
// IntentSearch (search text) and IntentSummarizeNote (note id).
type IntentDecision struct {
	Type  IntentType
	Query string
}

// Valid reports whether t is one of the known intent labels.
func (t IntentType) Valid() bool {
	switch t {
	case IntentGeneral, IntentSearch, IntentSummarizeNote, IntentSupportLater:
		return true
	}
	return false
}
