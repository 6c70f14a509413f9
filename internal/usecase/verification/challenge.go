package verification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
	"github.com/simaogato/transferauth-backend/internal/resilience"
)

// Result describes the challenge after a submission
type Result struct {
	State             domain.ChallengeState
	AttemptsRemaining int
}

// Challenge runs a single PIN or OTP challenge against its verifier.
// At most one verification call is outstanding at a time; a concurrent
// Submit or Resend returns domain.ErrVerificationInFlight.
type Challenge struct {
	mu       sync.Mutex
	state    *domain.Challenge
	inFlight atomic.Bool

	verify func(ctx context.Context, session domain.SessionContext, value string) (bool, error)
	sender OtpSender
	guard  *resilience.Guard
	now    func() time.Time
	logger *zap.Logger
}

// Options carries the collaborators shared by every challenge
type Options struct {
	// Guard bounds verifier and sender calls; nil calls them directly
	Guard  *resilience.Guard
	Clock  func() time.Time
	Logger *zap.Logger
}

func (o Options) clock() func() time.Time {
	if o.Clock == nil {
		return time.Now
	}
	return o.Clock
}

// NewPinChallenge creates a pending PIN challenge
func NewPinChallenge(verifier PinVerifier, policy domain.ChallengePolicy, opts Options) *Challenge {
	now := opts.clock()
	return &Challenge{
		state:  domain.NewChallenge(domain.ChallengeKindPIN, policy, now()),
		verify: verifier.VerifyPin,
		guard:  opts.Guard,
		now:    now,
		logger: logging.OrNop(opts.Logger).With(zap.String("challenge", "pin")),
	}
}

// NewOtpChallenge creates a pending OTP challenge.
// No code is sent until Issue or Resend is called.
func NewOtpChallenge(verifier OtpVerifier, sender OtpSender, policy domain.ChallengePolicy, opts Options) *Challenge {
	now := opts.clock()
	return &Challenge{
		state:  domain.NewChallenge(domain.ChallengeKindOTP, policy, now()),
		verify: verifier.VerifyOtp,
		sender: sender,
		guard:  opts.Guard,
		now:    now,
		logger: logging.OrNop(opts.Logger).With(zap.String("challenge", "otp")),
	}
}

// Kind returns PIN or OTP
func (c *Challenge) Kind() domain.ChallengeKind {
	return c.state.Kind
}

// Snapshot returns a copy of the challenge state without the entered value
func (c *Challenge) Snapshot() domain.Challenge {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := *c.state
	snap.Value = ""
	return snap
}

// State returns the current lifecycle state
func (c *Challenge) State() domain.ChallengeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.State
}

// Issue sends the first code for an OTP challenge; it is a no-op for PIN
func (c *Challenge) Issue(ctx context.Context, session domain.SessionContext) error {
	if c.sender == nil {
		return nil
	}
	return c.send(ctx, session)
}

// Resend asks the OTP provider for a new code and resets the challenge to Pending.
// Only OTP challenges can be resent, and a locked challenge stays locked.
func (c *Challenge) Resend(ctx context.Context, session domain.SessionContext) error {
	if c.sender == nil {
		return domain.ErrInvalidState
	}
	c.mu.Lock()
	locked := c.state.State == domain.ChallengeStateLocked
	c.mu.Unlock()
	if locked {
		return domain.ErrChallengeLocked
	}
	return c.send(ctx, session)
}

func (c *Challenge) send(ctx context.Context, session domain.SessionContext) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return domain.ErrVerificationInFlight
	}
	defer c.inFlight.Store(false)

	if err := c.call(ctx, func(ctx context.Context) error {
		return c.sender.SendOtp(ctx, session)
	}); err != nil {
		c.logger.Warn("failed to send verification code", zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Reissue(c.now())
}

// Submit verifies value and records the result.
// Validation, expiry and lockout errors leave the attempt count untouched,
// as does a verifier outage.
func (c *Challenge) Submit(ctx context.Context, session domain.SessionContext, value string) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return c.result(), domain.ErrVerificationInFlight
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	if err := c.state.Input(value); err != nil {
		c.mu.Unlock()
		return c.result(), err
	}
	if err := c.state.CheckSubmittable(c.now()); err != nil {
		c.state.Value = ""
		c.mu.Unlock()
		return c.result(), err
	}
	candidate := c.state.Value
	c.mu.Unlock()

	var ok bool
	err := c.call(ctx, func(ctx context.Context) error {
		var verr error
		ok, verr = c.verify(ctx, session, candidate)
		return verr
	})
	if err != nil {
		c.mu.Lock()
		c.state.Value = ""
		c.mu.Unlock()
		c.logger.Warn("verification call failed", zap.Error(err))
		return c.result(), err
	}

	c.mu.Lock()
	state := c.state.RecordResult(ok)
	failed := c.state.FailedAttempts
	c.mu.Unlock()

	c.logger.Info("challenge submitted",
		zap.String("state", string(state)),
		zap.Int("failed_attempts", failed))

	return c.result(), nil
}

func (c *Challenge) result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{State: c.state.State, AttemptsRemaining: c.state.AttemptsRemaining()}
}

func (c *Challenge) call(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	if c.guard == nil {
		err = fn(ctx)
	} else {
		err = c.guard.Do(ctx, fn)
	}
	// A verifier answering "no" through an error is still only a rejection
	if errors.Is(err, domain.ErrChallengeRejected) {
		return nil
	}
	return err
}
