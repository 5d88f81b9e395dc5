package factory

import "errors"

var (
	// ErrInvalidParameters is returned when update or commit is attempted
	// while the factory's domain constraints do not hold. Recoverable by
	// fixing parameters.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInvalidState is returned when an operation is attempted in a state
	// that does not permit it (e.g. commit after cancel).
	ErrInvalidState = errors.New("invalid state")

	// ErrPartialCommit is returned by a multi-factory commit that failed
	// partway; the accompanying MultiResult carries the completed entries.
	ErrPartialCommit = errors.New("partial commit failure")
)
