package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
)

// BreakerConfig tunes the circuit breaker around a collaborator
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig suits a remote user-data or OTP provider
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         3,
		Interval:            2 * time.Minute,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Guard bounds calls to an external collaborator with a timeout and a circuit breaker.
// Timeouts, open-breaker rejections and infrastructure errors surface as
// domain.ErrServiceUnavailable; business errors pass through unchanged.
type Guard struct {
	name    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewGuard creates a Guard for the named collaborator
func NewGuard(name string, timeout time.Duration, cfg BreakerConfig, logger *zap.Logger) *Guard {
	logger = logging.OrNop(logger).With(zap.String("collaborator", name))

	settings := gobreaker.Settings{
		Name:        "collaborator-" + name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsBusinessError(err)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Guard{
		name:    name,
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Name returns the collaborator name
func (g *Guard) Name() string {
	return g.name
}

// State reports the breaker state as "closed", "half-open" or "open"
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// Do runs fn under the guard
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

type callResult[T any] struct {
	value T
	err   error
}

// Call runs fn under the guard and returns its value.
// fn runs on its own goroutine so a collaborator that ignores ctx still cannot
// hold the caller past the timeout.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	out, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		done := make(chan callResult[T], 1)
		go func() {
			v, err := fn(callCtx)
			done <- callResult[T]{value: v, err: err}
		}()

		select {
		case res := <-done:
			return res.value, res.err
		case <-callCtx.Done():
			return zero, callCtx.Err()
		}
	})
	if err != nil {
		return zero, g.translate(err)
	}

	v, _ := out.(T)
	return v, nil
}

func (g *Guard) translate(err error) error {
	switch {
	case IsBusinessError(err):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.logger.Warn("collaborator call rejected by open circuit")
		return fmt.Errorf("%s: %w: %w", g.name, domain.ErrServiceUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		g.logger.Warn("collaborator call timed out", zap.Duration("timeout", g.timeout))
		return fmt.Errorf("%s timed out after %s: %w", g.name, g.timeout, domain.ErrServiceUnavailable)
	case errors.Is(err, domain.ErrServiceUnavailable):
		return err
	default:
		g.logger.Error("collaborator call failed", zap.Error(err))
		return fmt.Errorf("%s: %w: %w", g.name, domain.ErrServiceUnavailable, err)
	}
}

// IsBusinessError reports whether err is an expected domain answer rather than an outage
func IsBusinessError(err error) bool {
	return errors.Is(err, domain.ErrValidationFailed) ||
		errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrRecipientNotFound) ||
		errors.Is(err, domain.ErrOtpNotFound) ||
		errors.Is(err, domain.ErrOtpNotVerified) ||
		errors.Is(err, domain.ErrChallengeRejected) ||
		errors.Is(err, context.Canceled)
}
