package entity

import "errors"

var (
	// ErrNotFound is returned when a request id is unknown
	ErrNotFound = errors.New("approval request not found")

	// ErrInvalidStatus is returned when an action is not valid for the
	// request's current status
	ErrInvalidStatus = errors.New("action not valid for current status")

	// ErrUnauthorizedRole is returned when the approver's role is not in the
	// threshold's required roles
	ErrUnauthorizedRole = errors.New("approver role not authorized")

	// ErrDuplicateDecision is returned when an approver has already decided
	ErrDuplicateDecision = errors.New("approver already decided")

	// ErrConcurrentModification is returned when a lost update is detected
	// at persist time; the caller may retry
	ErrConcurrentModification = errors.New("request modified concurrently")

	// ErrPersistenceFailure is returned when the store is unavailable
	ErrPersistenceFailure = errors.New("persistence store unavailable")
)
