package domain

import "errors"

// Sentinel errors shared across layers. Callers classify failures with
// errors.Is and map them to transport responses at the edge.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUnknownTargetType  = errors.New("unknown target type")
	ErrEmptyAudience      = errors.New("empty audience")
	ErrAudienceLookup     = errors.New("audience lookup failed")
	ErrMissingCredentials = errors.New("missing provider credentials")
)
