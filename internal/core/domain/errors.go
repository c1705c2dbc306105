package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates invalid component configuration,
	// such as a chunk overlap that is not smaller than the chunk size.
	// It is fatal at construction time and not recoverable.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrServiceUnavailable indicates an upstream AI capability
	// (embedding or generation) is unreachable or erroring.
	// The answer path recovers it into a user-facing message;
	// the indexing path surfaces it as a hard reindex failure.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimited indicates the upstream API rate limit was exceeded.
	// Recovered into a softened retry-later message on the answer path.
	ErrRateLimited = errors.New("rate limited")

	// ErrIntentParse indicates the intent classifier output could not be
	// validated into a known IntentDecision variant. Callers default to
	// the general intent rather than failing the request.
	ErrIntentParse = errors.New("intent output unparseable")
)
