package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ChallengeKind represents the factor a challenge verifies
type ChallengeKind string

const (
	ChallengeKindPIN ChallengeKind = "PIN"
	ChallengeKindOTP ChallengeKind = "OTP"
)

// ExpectedLength returns the number of digits the kind requires
func (k ChallengeKind) ExpectedLength() int {
	if k == ChallengeKindOTP {
		return 6
	}
	return 4
}

// ChallengeState represents where a challenge is in its lifecycle
type ChallengeState string

const (
	ChallengeStatePending   ChallengeState = "PENDING"
	ChallengeStateSatisfied ChallengeState = "SATISFIED"
	ChallengeStateRejected  ChallengeState = "REJECTED"
	ChallengeStateExpired   ChallengeState = "EXPIRED"
	ChallengeStateLocked    ChallengeState = "LOCKED"
)

// ChallengePolicy bounds how a challenge may be attempted.
// Zero values disable the corresponding check.
type ChallengePolicy struct {
	MaxAttempts int
	TTL         time.Duration
}

// Challenge is a single-factor verification step.
// Pending -> Satisfied | Rejected; Rejected may be resubmitted.
// Locked and Satisfied are final; Expired needs Reissue.
type Challenge struct {
	ID             uuid.UUID
	Kind           ChallengeKind
	ExpectedLength int
	State          ChallengeState
	Value          string
	FailedAttempts int
	Policy         ChallengePolicy
	IssuedAt       time.Time
}

// NewChallenge opens a pending challenge of the given kind
func NewChallenge(kind ChallengeKind, policy ChallengePolicy, now time.Time) *Challenge {
	return &Challenge{
		ID:             uuid.New(),
		Kind:           kind,
		ExpectedLength: kind.ExpectedLength(),
		State:          ChallengeStatePending,
		Policy:         policy,
		IssuedAt:       now,
	}
}

// Input records the digits typed so far.
// It rejects non-digits and values longer than ExpectedLength.
func (c *Challenge) Input(value string) error {
	if value != "" && !IsDigits(value) {
		return NewValidationError("Invalid Code", string(c.Kind), "code must contain digits only")
	}
	if len(value) > c.ExpectedLength {
		return NewValidationError("Invalid Code", string(c.Kind),
			"code must be at most "+strconv.Itoa(c.ExpectedLength)+" digits")
	}
	c.Value = value
	return nil
}

// ExpiresAt returns the expiry instant, or the zero time when no TTL applies
func (c *Challenge) ExpiresAt() time.Time {
	if c.Policy.TTL <= 0 {
		return time.Time{}
	}
	return c.IssuedAt.Add(c.Policy.TTL)
}

// CheckSubmittable reports whether the current value may be sent for verification.
// An elapsed TTL moves the challenge to Expired.
func (c *Challenge) CheckSubmittable(now time.Time) error {
	switch c.State {
	case ChallengeStateLocked:
		return ErrChallengeLocked
	case ChallengeStateSatisfied:
		return ErrInvalidState
	case ChallengeStateExpired:
		return ErrChallengeExpired
	}

	if exp := c.ExpiresAt(); !exp.IsZero() && now.After(exp) {
		c.State = ChallengeStateExpired
		return ErrChallengeExpired
	}

	if len(c.Value) != c.ExpectedLength {
		return NewValidationError("Incomplete Code", string(c.Kind),
			"Please enter all "+strconv.Itoa(c.ExpectedLength)+" digits")
	}
	return nil
}

// RecordResult applies a verification result and clears the entered value
func (c *Challenge) RecordResult(ok bool) ChallengeState {
	c.Value = ""
	if ok {
		c.State = ChallengeStateSatisfied
		return c.State
	}

	c.FailedAttempts++
	c.State = ChallengeStateRejected
	if c.Policy.MaxAttempts > 0 && c.FailedAttempts >= c.Policy.MaxAttempts {
		c.State = ChallengeStateLocked
	}
	return c.State
}

// Reissue returns a non-locked challenge to Pending with a fresh issue time.
// Failed attempts carry over so reissuing cannot reset a lockout counter.
func (c *Challenge) Reissue(now time.Time) error {
	if c.State == ChallengeStateLocked {
		return ErrChallengeLocked
	}
	c.State = ChallengeStatePending
	c.Value = ""
	c.IssuedAt = now
	return nil
}

// AttemptsRemaining returns the attempts left, or -1 when unlimited
func (c *Challenge) AttemptsRemaining() int {
	if c.Policy.MaxAttempts <= 0 {
		return -1
	}
	remaining := c.Policy.MaxAttempts - c.FailedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
