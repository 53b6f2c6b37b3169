package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Proof document errors.
var (
	// ErrDanglingReference is returned when a reference no longer resolves.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrStructural is returned when an edit would break document well-formedness.
	// The document is left unchanged.
	ErrStructural = errors.New("structural violation")
	// ErrOutOfScope is returned when a justification cites a dependency it cannot see.
	ErrOutOfScope = errors.New("dependency out of scope")
	// ErrRuleMismatch is returned when a rule rejects a conclusion.
	ErrRuleMismatch = errors.New("rule mismatch")
	// ErrReentrant is returned when a scoped mutation re-enters the entity it holds.
	ErrReentrant = errors.New("reentrant mutation")
)
