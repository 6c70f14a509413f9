package passwordreset

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
	"github.com/simaogato/transferauth-backend/internal/usecase/account"
	"github.com/simaogato/transferauth-backend/internal/usecase/verification"
)

const (
	msgEnterAllDigits = "Please enter all 6 digits"
	msgRequestNew     = "OTP has expired. Please request a new one"
	msgLocked         = "Too many incorrect attempts. Please request a new OTP"
	msgVerifyFirst    = "Please verify your OTP first"
)

// ResetService runs one Flow per email behind the forgotPassword, verifyOtp and
// resetPassword actions, so the emailed code is subject to the attempt cap.
type ResetService struct {
	actions Actions
	policy  domain.ChallengePolicy
	opts    verification.Options
	logger  *zap.Logger

	mu    sync.Mutex
	flows map[string]*Flow
}

// NewResetService creates a new ResetService instance
func NewResetService(actions Actions, policy domain.ChallengePolicy, opts verification.Options) *ResetService {
	return &ResetService{
		actions: actions,
		policy:  policy,
		opts:    opts,
		logger:  logging.OrNop(opts.Logger),
		flows:   make(map[string]*Flow),
	}
}

// ForgotPassword starts a fresh flow for email, replacing any flow in progress
func (s *ResetService) ForgotPassword(ctx context.Context, email string) (account.Result, error) {
	flow := NewFlow(s.actions, s.policy, s.opts)
	if _, err := flow.SubmitEmail(ctx, email); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return account.Result{Success: false, Message: flow.Message()}, nil
		}
		return account.Result{}, err
	}

	s.mu.Lock()
	s.flows[domain.NormalizeEmail(email)] = flow
	s.mu.Unlock()

	return account.Result{Success: true, Message: flow.Message()}, nil
}

// VerifyOtp submits the code to the email's flow.
// A locked code ends the flow; the user has to request a new one.
func (s *ResetService) VerifyOtp(ctx context.Context, email, otp string) (account.Result, error) {
	flow, ok := s.flow(email)
	if !ok {
		return account.Result{Success: false, Message: msgRequestNew}, nil
	}

	_, err := flow.SubmitCode(ctx, otp)
	switch {
	case err == nil:
		return account.Result{Success: true, Message: flow.Message()}, nil
	case errors.Is(err, domain.ErrValidationFailed):
		return account.Result{Success: false, Message: msgEnterAllDigits}, nil
	case errors.Is(err, domain.ErrChallengeRejected):
		return account.Result{Success: false, Message: flow.Message()}, nil
	case errors.Is(err, domain.ErrChallengeExpired):
		return account.Result{Success: false, Message: msgRequestNew}, nil
	case errors.Is(err, domain.ErrChallengeLocked):
		s.drop(email, flow)
		s.logger.Warn("password reset code locked", zap.String("email_domain", emailDomain(email)))
		return account.Result{Success: false, Message: msgLocked}, nil
	case errors.Is(err, domain.ErrInvalidState):
		if flow.Step() == StepReset {
			return account.Result{Success: true, Message: flow.Message()}, nil
		}
		return account.Result{Success: false, Message: msgRequestNew}, nil
	default:
		return account.Result{}, err
	}
}

// ResetPassword commits the new password once the email's code has been verified
func (s *ResetService) ResetPassword(ctx context.Context, email, newPassword string) (account.Result, error) {
	flow, ok := s.flow(email)
	if !ok || flow.Step() != StepReset {
		return account.Result{Success: false, Message: msgVerifyFirst}, nil
	}

	if _, err := flow.SubmitPassword(ctx, newPassword); err != nil {
		if errors.Is(err, domain.ErrValidationFailed) {
			return account.Result{Success: false, Message: flow.Message()}, nil
		}
		return account.Result{}, err
	}

	s.drop(email, flow)
	return account.Result{Success: true, Message: flow.Message()}, nil
}

// Pending returns the number of flows in progress
func (s *ResetService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

func (s *ResetService) flow(email string) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[domain.NormalizeEmail(email)]
	return flow, ok
}

// drop forgets the email's flow unless a newer one replaced it
func (s *ResetService) drop(email string, flow *Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.NormalizeEmail(email)
	if s.flows[key] == flow {
		delete(s.flows, key)
	}
}

func emailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}
