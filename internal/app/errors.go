package app

import "errors"

// Pipeline failure taxonomy. Each stage wraps its sentinel with detail via
// fmt.Errorf("...: %w", ...) so callers can branch with errors.Is.
var (
	// ErrValidation rejects an upload before any document row exists.
	ErrValidation = errors.New("validation failed")

	// ErrExtraction marks unreadable or corrupt input; it fails the
	// document, never the request.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbedding aborts an ingestion as FAILED, or forces retrieval
	// fallback at query time.
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval propagates to the orchestrator as a fallback trigger.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration is caught at the orchestrator boundary and produces the
	// apology answer.
	ErrGeneration = errors.New("generation failed")
)

// Service-level errors shared across handlers.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentNotFound = errors.New("document not found")
)
