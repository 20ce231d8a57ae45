package oneiro

import "errors"

// Error taxonomy for the pipeline. Errors are wrapped with fmt.Errorf("%w")
// at the point of failure so callers can classify with errors.Is.
var (
	// ErrInvalidParameter indicates a bad duration or channel count.
	// Rejected before any work begins; fatal to the whole run.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientData indicates a signal too short for spectral
	// analysis. Aborts only the current cycle.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrEmptyKnowledgeBase indicates retrieval over an empty corpus.
	// Search returns empty results instead of raising this; it is used
	// only where a non-empty corpus is a hard requirement.
	ErrEmptyKnowledgeBase = errors.New("empty knowledge base")

	// ErrExternalService indicates an embedding or generation failure.
	// Recovered via the fallback path with a confidence penalty.
	ErrExternalService = errors.New("external service failure")
)
