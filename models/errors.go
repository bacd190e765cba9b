package models

import (
	"errors"
	"fmt"
)

var (
	ErrProjectAlreadyAssigned = errors.New("project has already been assigned to a student")
	ErrAlreadyApplied         = errors.New("you have already applied to this project")
	ErrPaymentAlreadyLinked   = errors.New("a payment is already linked to this project")
	ErrRevisionsNotExhausted  = errors.New("work can only be rejected after all revision requests are used")
	ErrDeadlinePassed         = errors.New("application deadline has passed")
	ErrNoAssignedStudent      = errors.New("project has no assigned student yet")
	ErrOrderMismatch          = errors.New("order does not belong to this project")
	ErrRefundReasonTooShort   = errors.New("refund reason must be at least 5 characters")
	ErrRefundTooLarge         = errors.New("refund amount cannot exceed the original payment")
	ErrRatingOutOfRange       = errors.New("rating must be between 1 and 5")
	ErrReviewTooLong          = errors.New("review cannot exceed 1000 characters")
	ErrRatingWindowClosed     = errors.New("rating can no longer be changed after 24 hours")
)

// InvalidTransitionError reports a state machine guard failure. Handlers map
// it to 409 Conflict.
type InvalidTransitionError struct {
	Entity   string
	Current  string
	Required string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: current status is %q, required: %s", e.Entity, e.Current, e.Required)
}

// RevisionLimitError reports an attempt to request more revisions than the
// project allows.
type RevisionLimitError struct {
	Allowed int
}

func (e *RevisionLimitError) Error() string {
	return fmt.Sprintf("maximum of %d revision requests reached for this project", e.Allowed)
}
