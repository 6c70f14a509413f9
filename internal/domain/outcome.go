package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutcomeKind tags the result of one authorization attempt
type OutcomeKind string

const (
	OutcomeSucceeded          OutcomeKind = "SUCCEEDED"
	OutcomeDeviceBlocked      OutcomeKind = "DEVICE_BLOCKED"
	OutcomeChallengeFailed    OutcomeKind = "CHALLENGE_FAILED"
	OutcomeChallengeLocked    OutcomeKind = "CHALLENGE_LOCKED"
	OutcomeValidationFailed   OutcomeKind = "VALIDATION_FAILED"
	OutcomeServiceUnavailable OutcomeKind = "SERVICE_UNAVAILABLE"
)

// TransferOutcome is the user-facing result emitted after an engine step.
// Terminal outcomes end the authorization session.
type TransferOutcome struct {
	ID            uuid.UUID
	SessionID     uuid.UUID
	Kind          OutcomeKind
	ChallengeKind ChallengeKind // set for challenge outcomes
	Reasons       []Violation   // set for validation outcomes
	Title         string
	Message       string
	Terminal      bool
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Total         decimal.Decimal
	OccurredAt    time.Time
}

// IsRecoverable reports whether the user can try again in the same session
func (o TransferOutcome) IsRecoverable() bool {
	return !o.Terminal
}

// ReasonFields returns the violated field names of a validation outcome
func (o TransferOutcome) ReasonFields() []string {
	fields := make([]string, 0, len(o.Reasons))
	for _, r := range o.Reasons {
		fields = append(fields, r.Field)
	}
	return fields
}
