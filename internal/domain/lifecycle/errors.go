package lifecycle

import "errors"

var (
	// ErrInvalidTransition is returned when the transition table does not permit a move
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned when a status is not one of the lifecycle statuses
	ErrInvalidStatus = errors.New("invalid status")

	// ErrGuardFailed is returned when every guarded transition to the target rejects the move
	ErrGuardFailed = errors.New("guard condition failed")
)
