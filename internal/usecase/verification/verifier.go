package verification

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// PinVerifier checks a candidate PIN for the session's user.
// A wrong PIN is (false, nil); errors are reserved for verifier outages.
type PinVerifier interface {
	VerifyPin(ctx context.Context, session domain.SessionContext, candidate string) (bool, error)
}

// OtpVerifier delegates one-time code checks to the external OTP service
type OtpVerifier interface {
	VerifyOtp(ctx context.Context, session domain.SessionContext, code string) (bool, error)
}

// OtpSender issues a fresh one-time code to the session's user
type OtpSender interface {
	SendOtp(ctx context.Context, session domain.SessionContext) error
}

// BcryptPinVerifier compares candidates against a bcrypt hash of the authorization PIN
type BcryptPinVerifier struct {
	hash []byte
}

// NewBcryptPinVerifier creates a verifier from a bcrypt hash
func NewBcryptPinVerifier(hash string) (*BcryptPinVerifier, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid PIN hash: %w", err)
	}
	return &BcryptPinVerifier{hash: []byte(hash)}, nil
}

// VerifyPin reports whether candidate matches the configured PIN
func (v *BcryptPinVerifier) VerifyPin(ctx context.Context, session domain.SessionContext, candidate string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(v.hash, []byte(candidate))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare PIN: %w", err)
	}
}

// Scripted is a verifier double with a fixed answer.
// It stands in for the demo behaviors: a PIN that is never accepted, an OTP
// service that always rejects, or one that always accepts.
type Scripted struct {
	Accept  bool
	Err     error
	calls   atomic.Int32
	sent    atomic.Int32
	lastArg atomic.Value
}

// AlwaysAccept returns a Scripted double that accepts every code
func AlwaysAccept() *Scripted {
	return &Scripted{Accept: true}
}

// AlwaysReject returns a Scripted double that rejects every code
func AlwaysReject() *Scripted {
	return &Scripted{}
}

// VerifyPin implements PinVerifier
func (s *Scripted) VerifyPin(ctx context.Context, session domain.SessionContext, candidate string) (bool, error) {
	return s.answer(candidate)
}

// VerifyOtp implements OtpVerifier
func (s *Scripted) VerifyOtp(ctx context.Context, session domain.SessionContext, code string) (bool, error) {
	return s.answer(code)
}

// SendOtp implements OtpSender
func (s *Scripted) SendOtp(ctx context.Context, session domain.SessionContext) error {
	s.sent.Add(1)
	return s.Err
}

// Calls returns how many verifications were requested
func (s *Scripted) Calls() int {
	return int(s.calls.Load())
}

// Sent returns how many codes were sent
func (s *Scripted) Sent() int {
	return int(s.sent.Load())
}

// LastValue returns the most recently verified value
func (s *Scripted) LastValue() string {
	v, _ := s.lastArg.Load().(string)
	return v
}

func (s *Scripted) answer(value string) (bool, error) {
	s.calls.Add(1)
	s.lastArg.Store(value)
	if s.Err != nil {
		return false, s.Err
	}
	return s.Accept, nil
}
