package domain

import "errors"

// Error taxonomy shared by engines, jobs and the API layer. Wrap with fmt.Errorf("...: %w").
var (
	// ErrDataUnavailable means a feed was unreachable or returned nothing.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrComputation means inputs were insufficient for a requested derived value.
	ErrComputation = errors.New("computation error")
	// ErrExternalService means a collaborator (narrative provider) failed or timed out.
	ErrExternalService = errors.New("external service error")
	// ErrValidation means a request was rejected before reaching engine state.
	ErrValidation = errors.New("validation error")
	// ErrNotFound means the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
)
