package errs

import (
	"errors"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrResourceUnavailable = errors.New("no units available")
	ErrAlreadyCheckedOut   = errors.New("already checked out")
	ErrAlreadyClosed       = errors.New("session already closed")
)

type PolicyReason string

const (
	ReasonBanned    PolicyReason = "PATRON_BANNED"
	ReasonFineLimit PolicyReason = "FINE_LIMIT_EXCEEDED"
	ReasonOpenLimit PolicyReason = "CONCURRENT_LIMIT_REACHED"
)

// PolicyViolationError carries the specific eligibility sub-reason so
// callers can react without inspecting internals.
type PolicyViolationError struct {
	Reason PolicyReason
}

func (e *PolicyViolationError) Error() string {
	return "policy violation: " + string(e.Reason)
}
