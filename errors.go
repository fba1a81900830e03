package anchor

import "errors"

// Sentinel errors, compared with errors.Is, following the convention
// used throughout the teacher's view/sync package (ErrUnknownMutation,
// ErrNotStarted, ErrAlreadyStarted).
var (
	// ErrWrongKind is returned when a kind-specific method (e.g.
	// Push on a record facade) is called against a facade of a
	// different Kind.
	ErrWrongKind = errors.New("anchor: method not valid for this facade kind")

	// ErrDestroyed is returned by an operation attempted on a facade
	// whose state has been destroyed.
	ErrDestroyed = errors.New("anchor: state has been destroyed")

	// ErrNotAnchored is returned by Get/Read when passed a value that
	// the registry does not recognize as an anchored facade.
	ErrNotAnchored = errors.New("anchor: value is not an anchored facade")

	// ErrNotLinkable is returned by Anchor when the supplied value is
	// not one of the four recognized container shapes.
	ErrNotLinkable = errors.New("anchor: value is not linkable")

	// ErrValidation is returned (strict mode) when a write fails schema
	// validation.
	ErrValidation = errors.New("anchor: validation failed")

	// ErrImmutable is returned — in reporting form via OnViolation, and
	// as the error of a no-op write — when a mutation is attempted
	// against an immutable facade.
	ErrImmutable = errors.New("anchor: facade is immutable")

	// ErrOutOfRange is returned by sequence index operations given an
	// index outside [0, Len()).
	ErrOutOfRange = errors.New("anchor: index out of range")
)
