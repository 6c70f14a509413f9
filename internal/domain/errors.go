package domain

import (
	"errors"
	"strings"
)

// Sentinel errors shared by the use cases and adapters
var (
	ErrValidationFailed     = errors.New("validation failed")
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrChallengeRejected    = errors.New("challenge rejected")
	ErrChallengeExpired     = errors.New("challenge expired")
	ErrChallengeLocked      = errors.New("challenge locked after too many failed attempts")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrPolicyBlocked        = errors.New("blocked by policy")
	ErrInvalidState         = errors.New("invalid state for operation")
	ErrVerificationInFlight = errors.New("a verification call is already in flight")
	ErrOtpNotVerified       = errors.New("otp has not been verified")
	ErrFieldLocked          = errors.New("field is locked while a recipient is applied")
	ErrOtpNotFound          = errors.New("otp not found or expired")
	ErrSessionNotFound      = errors.New("transfer session not found")
)

// Violation is a single field-level validation failure
type Violation struct {
	Field   string
	Message string
}

// ValidationError carries the ordered violations found while validating input.
// It matches ErrValidationFailed under errors.Is.
type ValidationError struct {
	Title      string
	Violations []Violation
}

// NewValidationError builds a ValidationError with a single violation
func NewValidationError(title, field, message string) *ValidationError {
	return &ValidationError{
		Title:      title,
		Violations: []Violation{{Field: field, Message: message}},
	}
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return e.Title
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return e.Title + ": " + strings.Join(msgs, "; ")
}

// Is reports whether target is ErrValidationFailed
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Fields returns the violated field names in order
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}
