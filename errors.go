package mealsuggest

import (
	"errors"
	"fmt"
)

var (
	// ErrEnumeration means Phase 1 could not produce enough unique meal
	// names. Fatal for the request; never retried automatically.
	ErrEnumeration = errors.New("meal name enumeration failed")

	// ErrInsufficientResults means fewer recipe generations succeeded than
	// the minimum-acceptable threshold allows.
	ErrInsufficientResults = errors.New("insufficient recipe generations")

	// ErrMissingProfileProvider is a configuration error: a new session was
	// requested but no profile provider was wired in.
	ErrMissingProfileProvider = errors.New("profile provider not configured")

	// ErrMissingBackend is a configuration error: the orchestrator was built
	// without a generation backend.
	ErrMissingBackend = errors.New("generation backend not configured")

	// ErrSessionNotFound is returned by operations that require an existing,
	// live, caller-owned session.
	ErrSessionNotFound = errors.New("session not found")
)

// Generation phases, used in errors, logs, and metrics.
const (
	PhaseNames     = "names"
	PhaseRecipes   = "recipes"
	PhaseTranslate = "translate"
)

// GenerationError wraps a pipeline failure with the phase it happened in.
type GenerationError struct {
	Phase string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed in %s phase: %v", e.Phase, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewGenerationError builds a GenerationError for the given phase.
func NewGenerationError(phase string, err error) *GenerationError {
	return &GenerationError{Phase: phase, Err: err}
}
