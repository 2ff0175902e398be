package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching across package boundaries.
var (
	// ErrIngestion marks unreadable or empty source material. Surfaced to the
	// caller; the turn never reaches the state machine.
	ErrIngestion = errors.New("ingestion error")
	// ErrRetrieval marks an unavailable embedding/search backend. Callers
	// degrade to ungrounded generation and flag the response.
	ErrRetrieval = errors.New("retrieval error")
	// ErrGeneration marks an exhausted retry budget against the generative
	// collaborator. Handled inside capabilities by the recovery chain.
	ErrGeneration = errors.New("generation error")
	// ErrTransitionGuard marks an intent that is not valid for the current
	// stage. The session stage stays unchanged.
	ErrTransitionGuard = errors.New("transition guard violation")
	// ErrPersistence marks a failed session snapshot write. The in-memory
	// session remains authoritative for the rest of the process lifetime.
	ErrPersistence = errors.New("persistence error")
	// ErrSessionNotFound is returned by stores for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// IngestionError wraps a source ingestion failure.
func IngestionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIngestion, fmt.Sprintf(format, args...))
}

// RetrievalError wraps a retrieval backend failure.
func RetrievalError(cause error) error {
	return fmt.Errorf("%w: %v", ErrRetrieval, cause)
}

// GenerationError wraps a terminal generative collaborator failure.
func GenerationError(cause error) error {
	return fmt.Errorf("%w: %v", ErrGeneration, cause)
}

// GuardViolation describes a rejected transition with an actionable message.
type GuardViolation struct {
	Stage  Stage
	Intent Intent
	Reason string
}

// Error implements error.
func (g *GuardViolation) Error() string {
	return fmt.Sprintf("transition guard violation: intent %q not allowed in stage %q: %s", g.Intent, g.Stage, g.Reason)
}

// Unwrap lets errors.Is(err, ErrTransitionGuard) match.
func (g *GuardViolation) Unwrap() error { return ErrTransitionGuard }
