package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/usecase/account"
	"github.com/simaogato/transferauth-backend/internal/usecase/verification"
)

// Step is a screen of the reset flow
type Step string

const (
	StepEmail   Step = "EMAIL"
	StepOtp     Step = "OTP"
	StepReset   Step = "RESET"
	StepSuccess Step = "SUCCESS"
)

// Actions are the account collaborators the flow drives
type Actions interface {
	ForgotPassword(ctx context.Context, email string) (account.Result, error)
	VerifyOtp(ctx context.Context, email, otp string) (account.Result, error)
	ResetPassword(ctx context.Context, email, newPassword string) (account.Result, error)
}

// Flow sequences Email -> Otp -> Reset -> Success for one user.
// The OTP step is a verification.Challenge whose verifier and sender are the
// account actions.
type Flow struct {
	actions Actions
	policy  domain.ChallengePolicy
	opts    verification.Options

	mu        sync.Mutex
	step      Step
	session   domain.SessionContext
	challenge *verification.Challenge
	bridge    *actionBridge
}

// NewFlow creates a flow at the Email step
func NewFlow(actions Actions, policy domain.ChallengePolicy, opts verification.Options) *Flow {
	return &Flow{
		actions: actions,
		policy:  policy,
		opts:    opts,
		step:    StepEmail,
	}
}

// Step returns the current step
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Email returns the address the flow is resetting
func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.UserEmail
}

// Message returns the user-facing message of the most recent account action
func (f *Flow) Message() string {
	f.mu.Lock()
	bridge := f.bridge
	f.mu.Unlock()
	if bridge == nil {
		return ""
	}
	return bridge.result().Message
}

// SubmitEmail requests a reset code and moves to the Otp step
func (f *Flow) SubmitEmail(ctx context.Context, email string) (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepEmail {
		return f.step, domain.ErrInvalidState
	}

	session := domain.NewSessionContext(email, "")
	bridge := &actionBridge{actions: f.actions}
	f.bridge = bridge
	challenge := verification.NewOtpChallenge(bridge, bridge, f.policy, f.opts)
	if err := challenge.Issue(ctx, session); err != nil {
		return f.step, err
	}

	f.session = session
	f.challenge = challenge
	f.step = StepOtp
	return f.step, nil
}

// SubmitCode checks the 6-digit code and moves to the Reset step.
// A locked code sends the user back to the Email step.
func (f *Flow) SubmitCode(ctx context.Context, code string) (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepOtp {
		return f.step, domain.ErrInvalidState
	}

	res, err := f.challenge.Submit(ctx, f.session, code)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeLocked) {
			f.restart()
		}
		return f.step, err
	}

	switch res.State {
	case domain.ChallengeStateSatisfied:
		f.step = StepReset
		return f.step, nil
	case domain.ChallengeStateLocked:
		f.restart()
		return f.step, domain.ErrChallengeLocked
	default:
		return f.step, fmt.Errorf("invalid otp: %w", domain.ErrChallengeRejected)
	}
}

// Resend issues a new code while on the Otp step
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepOtp {
		return domain.ErrInvalidState
	}
	return f.challenge.Resend(ctx, f.session)
}

// SubmitPassword commits the new password and finishes the flow
func (f *Flow) SubmitPassword(ctx context.Context, newPassword string) (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepReset {
		return f.step, domain.ErrInvalidState
	}

	res, err := f.actions.ResetPassword(ctx, f.session.UserEmail, newPassword)
	if err != nil {
		return f.step, err
	}
	f.bridge.record(res)
	if !res.Success {
		return f.step, domain.NewValidationError("Reset Failed", "newPassword", res.Message)
	}

	f.step = StepSuccess
	return f.step, nil
}

func (f *Flow) restart() {
	f.step = StepEmail
	f.challenge = nil
	f.session = domain.SessionContext{}
}

// actionBridge adapts Actions to the verification collaborator interfaces
// and remembers the last result they returned
type actionBridge struct {
	actions Actions

	mu   sync.Mutex
	last account.Result
}

func (b *actionBridge) record(res account.Result) {
	b.mu.Lock()
	b.last = res
	b.mu.Unlock()
}

func (b *actionBridge) result() account.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func (b *actionBridge) SendOtp(ctx context.Context, session domain.SessionContext) error {
	res, err := b.actions.ForgotPassword(ctx, session.UserEmail)
	if err != nil {
		return err
	}
	b.record(res)
	if !res.Success {
		return domain.NewValidationError("Reset Unavailable", "email", res.Message)
	}
	return nil
}

func (b *actionBridge) VerifyOtp(ctx context.Context, session domain.SessionContext, code string) (bool, error) {
	res, err := b.actions.VerifyOtp(ctx, session.UserEmail, code)
	if err != nil {
		return false, err
	}
	b.record(res)
	return res.Success, nil
}
