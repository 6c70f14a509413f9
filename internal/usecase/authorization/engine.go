package authorization

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
	"github.com/simaogato/transferauth-backend/internal/resilience"
	"github.com/simaogato/transferauth-backend/internal/usecase/devicetrust"
	"github.com/simaogato/transferauth-backend/internal/usecase/verification"
)

// User-facing notices
const (
	titleIncorrectPin    = "Incorrect PIN"
	messageIncorrectPin  = "The PIN you entered is incorrect. Please try again."
	titleIncorrectCode   = "Incorrect Code"
	messageIncorrectCode = "The code you entered is incorrect. Please try again."
	titleCodeExpired     = "Code Expired"
	messageCodeExpired   = "Your verification code has expired. Request a new code to continue."
	titleLocked          = "Too Many Attempts"
	messageLocked        = "Transfers are locked for this session after too many failed attempts. Please contact support."
	titleDeviceBlocked   = "Transfer Blocked"
	messageDeviceBlocked = "Security Alert: Unrecognized Device. For your security, money transfers can only be initiated from your registered device."
	titleUnavailable     = "Service Unavailable"
	messageUnavailable   = "We could not reach the verification service. Please try again in a moment."
	titleSucceeded       = "Transfer Authorized"

	noticeEnterPin = "Enter your 4-digit PIN to authorize this transfer"
	noticeEnterOtp = "Enter the 6-digit code sent to your email"
	noticeResent   = "A new verification code has been sent"
)

// Dependencies are the collaborators an Engine consults
type Dependencies struct {
	Pin       verification.PinVerifier
	Otp       verification.OtpVerifier
	OtpSender verification.OtpSender
	Device    *devicetrust.Gate

	// Guard bounds PIN and OTP calls; nil calls them directly
	Guard  *resilience.Guard
	Clock  func() time.Time
	Logger *zap.Logger
}

// Listener receives every outcome the engine emits
type Listener func(domain.TransferOutcome)

// Step is the result of an engine operation
type Step struct {
	State     State
	Outcome   *domain.TransferOutcome
	Challenge *domain.Challenge
	Notice    string
}

// Engine drives one transfer authorization session from draft to terminal outcome.
//
// Drafting -> Validating -> PinChallenge -> [OtpChallenge] -> [DeviceCheck] -> Succeeded
//
// Validation and challenge failures are recoverable. A PIN rejection returns to
// Drafting with the draft intact; an OTP rejection stays in OtpChallenge.
// Blocked is reached by a failed device check or a locked challenge.
// Collaborator outages leave the engine in the state it was in.
type Engine struct {
	session domain.SessionContext
	policy  Policy
	deps    Dependencies
	now     func() time.Time
	logger  *zap.Logger

	// busy admits one verification call per session at a time
	busy atomic.Bool
	view atomic.Value

	mu        sync.Mutex
	state     State
	draft     *domain.TransferDraft
	pin       *verification.Challenge
	otp       *verification.Challenge
	listeners []Listener
}

// NewEngine creates an engine in Drafting with an empty draft
func NewEngine(session domain.SessionContext, policy Policy, deps Dependencies) (*Engine, error) {
	if deps.Pin == nil {
		return nil, errors.New("pin verifier is required")
	}
	if policy.RequireOtp && (deps.Otp == nil || deps.OtpSender == nil) {
		return nil, fmt.Errorf("policy %s requires an OTP verifier and sender", policy.Name)
	}
	if policy.RequireDevice && deps.Device == nil {
		return nil, fmt.Errorf("policy %s requires a device trust gate", policy.Name)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	e := &Engine{
		session: session,
		policy:  policy,
		deps:    deps,
		now:     deps.Clock,
		logger: logging.OrNop(deps.Logger).With(
			zap.String("session_id", session.ID.String()),
			zap.String("policy", policy.Name)),
		draft: domain.NewTransferDraft(),
	}
	e.pin = e.newPinChallenge()
	e.setState(StateDrafting)
	return e, nil
}

// OnOutcome registers a listener for emitted outcomes
func (e *Engine) OnOutcome(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Session returns the session the engine serves
func (e *Engine) Session() domain.SessionContext {
	return e.session
}

// Policy returns the engine's policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// State returns the current state without waiting on an in-flight call
func (e *Engine) State() State {
	return e.view.Load().(State)
}

// Draft returns a copy of the current draft
func (e *Engine) Draft() domain.TransferDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.draft.Clone()
}

// EditDraft changes one draft field; only allowed while Drafting
func (e *Engine) EditDraft(field domain.DraftField, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrafting {
		return domain.ErrInvalidState
	}
	return e.draft.Edit(field, value)
}

// ApplyRecipient snapshots a directory recipient into the draft.
// Recipients without complete bank details are rejected and the draft is unchanged.
func (e *Engine) ApplyRecipient(r domain.Recipient) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrafting {
		return domain.ErrInvalidState
	}
	if !r.IsTransferReady() {
		return domain.NewValidationError("Incomplete Recipient", "recipientId",
			r.DisplayName+" has no bank details on file and cannot receive transfers")
	}
	e.draft.ApplyRecipient(r)
	return nil
}

// ClearRecipient re-enables free-text recipient entry
func (e *Engine) ClearRecipient() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrafting {
		return domain.ErrInvalidState
	}
	e.draft.ClearRecipient()
	return nil
}

// Submit validates the draft and opens the PIN challenge.
// A validation failure emits a ValidationFailed outcome and stays in Drafting.
func (e *Engine) Submit() (Step, error) {
	e.mu.Lock()
	step, err := e.submit()
	e.mu.Unlock()
	e.publish(step)
	return step, err
}

func (e *Engine) submit() (Step, error) {
	if e.state != StateDrafting {
		return e.step(), domain.ErrInvalidState
	}

	e.setState(StateValidating)
	if err := e.draft.Validate(e.policy.Limits); err != nil {
		e.setState(StateDrafting)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			return e.step(), err
		}
		o := e.outcome(domain.OutcomeValidationFailed, verr.Title, verr.Violations[0].Message, false)
		o.Reasons = append([]domain.Violation(nil), verr.Violations...)
		e.logger.Info("draft rejected", zap.Strings("fields", verr.Fields()))
		return e.withOutcome(o), nil
	}

	if e.pin.State() == domain.ChallengeStateSatisfied {
		e.pin = e.newPinChallenge()
	}
	e.setState(StatePinChallenge)

	step := e.step()
	step.Notice = noticeEnterPin
	return step, nil
}

// SubmitPin verifies the PIN for the pending transfer
func (e *Engine) SubmitPin(ctx context.Context, pin string) (Step, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Step{State: e.State()}, domain.ErrVerificationInFlight
	}
	defer e.busy.Store(false)

	e.mu.Lock()
	step, err := e.submitPin(ctx, pin)
	e.mu.Unlock()
	e.publish(step)
	return step, err
}

func (e *Engine) submitPin(ctx context.Context, pin string) (Step, error) {
	if e.state != StatePinChallenge {
		return e.step(), domain.ErrInvalidState
	}

	res, err := e.pin.Submit(ctx, e.session, pin)
	if step, handled := e.challengeError(domain.ChallengeKindPIN, err); handled {
		return step, nil
	}
	if err != nil {
		return e.step(), err
	}

	switch res.State {
	case domain.ChallengeStateSatisfied:
		e.logger.Info("pin challenge satisfied")
		return e.advance(ctx, StatePinChallenge), nil
	case domain.ChallengeStateLocked:
		return e.lock(domain.ChallengeKindPIN), nil
	default:
		e.setState(StateDrafting)
		o := e.outcome(domain.OutcomeChallengeFailed, titleIncorrectPin, messageIncorrectPin, false)
		o.ChallengeKind = domain.ChallengeKindPIN
		e.logger.Info("pin challenge rejected", zap.Int("attempts_remaining", res.AttemptsRemaining))
		return e.withOutcome(o), nil
	}
}

// SubmitOtp verifies the one-time code through the OTP service
func (e *Engine) SubmitOtp(ctx context.Context, code string) (Step, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Step{State: e.State()}, domain.ErrVerificationInFlight
	}
	defer e.busy.Store(false)

	e.mu.Lock()
	step, err := e.submitOtp(ctx, code)
	e.mu.Unlock()
	e.publish(step)
	return step, err
}

func (e *Engine) submitOtp(ctx context.Context, code string) (Step, error) {
	if e.state != StateOtpChallenge {
		return e.step(), domain.ErrInvalidState
	}

	res, err := e.otp.Submit(ctx, e.session, code)
	if step, handled := e.challengeError(domain.ChallengeKindOTP, err); handled {
		return step, nil
	}
	if err != nil {
		return e.step(), err
	}

	switch res.State {
	case domain.ChallengeStateSatisfied:
		e.logger.Info("otp challenge satisfied")
		return e.advance(ctx, StateOtpChallenge), nil
	case domain.ChallengeStateLocked:
		return e.lock(domain.ChallengeKindOTP), nil
	default:
		o := e.outcome(domain.OutcomeChallengeFailed, titleIncorrectCode, messageIncorrectCode, false)
		o.ChallengeKind = domain.ChallengeKindOTP
		e.logger.Info("otp challenge rejected", zap.Int("attempts_remaining", res.AttemptsRemaining))
		return e.withOutcome(o), nil
	}
}

// ResendOtp requests a new code and resets the OTP challenge to Pending
func (e *Engine) ResendOtp(ctx context.Context) (Step, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Step{State: e.State()}, domain.ErrVerificationInFlight
	}
	defer e.busy.Store(false)

	e.mu.Lock()
	step, err := e.resendOtp(ctx)
	e.mu.Unlock()
	e.publish(step)
	return step, err
}

func (e *Engine) resendOtp(ctx context.Context) (Step, error) {
	if e.state != StateOtpChallenge {
		return e.step(), domain.ErrInvalidState
	}

	if err := e.otp.Resend(ctx, e.session); err != nil {
		if errors.Is(err, domain.ErrChallengeLocked) {
			return e.lock(domain.ChallengeKindOTP), nil
		}
		e.logger.Warn("failed to resend otp", zap.Error(err))
		return e.withOutcome(e.unavailable()), nil
	}

	step := e.step()
	step.Notice = noticeResent
	return step, nil
}

// CheckDevice retries a device check interrupted by an outage
func (e *Engine) CheckDevice(ctx context.Context) (Step, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Step{State: e.State()}, domain.ErrVerificationInFlight
	}
	defer e.busy.Store(false)

	e.mu.Lock()
	var step Step
	var err error
	if e.state != StateDeviceCheck {
		step, err = e.step(), domain.ErrInvalidState
	} else {
		step = e.checkDevice(ctx)
	}
	e.mu.Unlock()
	e.publish(step)
	return step, err
}

// Cancel discards the draft and any open challenge and returns to Drafting.
// Failed PIN attempts are kept for the rest of the session.
func (e *Engine) Cancel() (Step, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.IsTerminal() {
		return e.step(), domain.ErrInvalidState
	}
	e.draft = domain.NewTransferDraft()
	e.otp = nil
	e.setState(StateDrafting)
	e.logger.Info("transfer cancelled")
	return e.step(), nil
}

// advance moves past a satisfied step to whatever the policy selects next
func (e *Engine) advance(ctx context.Context, passed State) Step {
	switch next := e.policy.next(passed); next {
	case StateOtpChallenge:
		e.otp = verification.NewOtpChallenge(e.deps.Otp, e.deps.OtpSender, e.policy.Otp, e.challengeOptions())
		e.setState(StateOtpChallenge)
		if err := e.otp.Issue(ctx, e.session); err != nil {
			e.logger.Warn("failed to issue otp", zap.Error(err))
			return e.withOutcome(e.unavailable())
		}
		step := e.step()
		step.Notice = noticeEnterOtp
		return step
	case StateDeviceCheck:
		e.setState(StateDeviceCheck)
		return e.checkDevice(ctx)
	default:
		return e.succeed()
	}
}

func (e *Engine) checkDevice(ctx context.Context) Step {
	decision, err := e.deps.Device.Evaluate(ctx, e.session)
	if err != nil {
		return e.withOutcome(e.unavailable())
	}
	if decision == devicetrust.DecisionTrusted {
		return e.advance(ctx, StateDeviceCheck)
	}

	e.setState(StateBlocked)
	o := e.outcome(domain.OutcomeDeviceBlocked, titleDeviceBlocked, messageDeviceBlocked, true)
	e.logger.Warn("transfer blocked by device trust gate")
	return e.withOutcome(o)
}

func (e *Engine) succeed() Step {
	e.setState(StateSucceeded)
	o := e.outcome(domain.OutcomeSucceeded, titleSucceeded,
		"Your transfer of "+domain.FormatUSD(e.draft.Amount.Decimal)+" to "+e.draft.RecipientName+" has been authorized.", true)
	e.draft = domain.NewTransferDraft()
	e.otp = nil
	e.logger.Info("transfer authorized",
		zap.String("amount", o.Amount.StringFixed(2)),
		zap.String("total", o.Total.StringFixed(2)))
	return e.withOutcome(o)
}

func (e *Engine) lock(kind domain.ChallengeKind) Step {
	e.setState(StateBlocked)
	o := e.outcome(domain.OutcomeChallengeLocked, titleLocked, messageLocked, true)
	o.ChallengeKind = kind
	e.logger.Warn("challenge locked", zap.String("kind", string(kind)))
	return e.withOutcome(o)
}

// challengeError turns the recoverable challenge errors into outcomes
func (e *Engine) challengeError(kind domain.ChallengeKind, err error) (Step, bool) {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return Step{}, false
	case errors.As(err, &verr):
		o := e.outcome(domain.OutcomeValidationFailed, verr.Title, verr.Violations[0].Message, false)
		o.ChallengeKind = kind
		o.Reasons = append([]domain.Violation(nil), verr.Violations...)
		return e.withOutcome(o), true
	case errors.Is(err, domain.ErrChallengeExpired):
		o := e.outcome(domain.OutcomeChallengeFailed, titleCodeExpired, messageCodeExpired, false)
		o.ChallengeKind = kind
		return e.withOutcome(o), true
	case errors.Is(err, domain.ErrChallengeLocked):
		return e.lock(kind), true
	case errors.Is(err, domain.ErrServiceUnavailable):
		o := e.unavailable()
		o.ChallengeKind = kind
		return e.withOutcome(o), true
	default:
		return Step{}, false
	}
}

func (e *Engine) unavailable() domain.TransferOutcome {
	return e.outcome(domain.OutcomeServiceUnavailable, titleUnavailable, messageUnavailable, false)
}

func (e *Engine) outcome(kind domain.OutcomeKind, title, message string, terminal bool) domain.TransferOutcome {
	o := domain.TransferOutcome{
		ID:         uuid.New(),
		SessionID:  e.session.ID,
		Kind:       kind,
		Title:      title,
		Message:    message,
		Terminal:   terminal,
		Fee:        e.draft.Fee(),
		Total:      e.draft.Total(),
		OccurredAt: e.now(),
	}
	if e.draft.Amount.Valid {
		o.Amount = e.draft.Amount.Decimal
	}
	return o
}

func (e *Engine) withOutcome(o domain.TransferOutcome) Step {
	step := e.step()
	step.Outcome = &o
	return step
}

func (e *Engine) step() Step {
	step := Step{State: e.state}
	var active *verification.Challenge
	switch e.state {
	case StatePinChallenge:
		active = e.pin
	case StateOtpChallenge:
		active = e.otp
	}
	if active != nil {
		snap := active.Snapshot()
		step.Challenge = &snap
	}
	return step
}

func (e *Engine) setState(s State) {
	e.state = s
	e.view.Store(s)
}

func (e *Engine) newPinChallenge() *verification.Challenge {
	return verification.NewPinChallenge(e.deps.Pin, e.policy.Pin, e.challengeOptions())
}

func (e *Engine) challengeOptions() verification.Options {
	return verification.Options{Guard: e.deps.Guard, Clock: e.now, Logger: e.logger}
}

func (e *Engine) publish(step Step) {
	if step.Outcome == nil {
		return
	}
	e.mu.Lock()
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l(*step.Outcome)
	}
}
