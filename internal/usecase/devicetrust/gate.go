package devicetrust

import (
	"context"

	"go.uber.org/zap"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
	"github.com/simaogato/transferauth-backend/internal/resilience"
)

// Decision is the gate's verdict for a device
type Decision string

const (
	DecisionTrusted Decision = "TRUSTED"
	DecisionBlocked Decision = "BLOCKED"
)

// Policy decides whether a device fingerprint is registered to the user
type Policy interface {
	IsDeviceRegistered(ctx context.Context, session domain.SessionContext) (bool, error)
}

// PolicyFunc adapts a function to Policy
type PolicyFunc func(ctx context.Context, session domain.SessionContext) (bool, error)

// IsDeviceRegistered implements Policy
func (f PolicyFunc) IsDeviceRegistered(ctx context.Context, session domain.SessionContext) (bool, error) {
	return f(ctx, session)
}

// RegistryPolicy consults a device registry
type RegistryPolicy struct {
	Registry domain.DeviceRegistry
}

// IsDeviceRegistered implements Policy
func (p RegistryPolicy) IsDeviceRegistered(ctx context.Context, session domain.SessionContext) (bool, error) {
	return p.Registry.IsRegistered(ctx, session.UserEmail, session.DeviceFingerprint)
}

// StaticPolicy answers the same for every device.
// StaticPolicy(false) reproduces the always-blocked demo gate.
type StaticPolicy bool

// IsDeviceRegistered implements Policy
func (p StaticPolicy) IsDeviceRegistered(ctx context.Context, session domain.SessionContext) (bool, error) {
	return bool(p), nil
}

// Gate evaluates device trust once a challenge has succeeded
type Gate struct {
	Policy Policy
	guard  *resilience.Guard
	logger *zap.Logger
}

// NewGate creates a Gate. A nil guard calls the policy directly.
func NewGate(policy Policy, guard *resilience.Guard, logger *zap.Logger) *Gate {
	return &Gate{
		Policy: policy,
		guard:  guard,
		logger: logging.OrNop(logger),
	}
}

// Evaluate returns Trusted or Blocked for the session's device.
// Policy outages surface as domain.ErrServiceUnavailable when guarded.
func (g *Gate) Evaluate(ctx context.Context, session domain.SessionContext) (Decision, error) {
	var registered bool
	check := func(ctx context.Context) error {
		var err error
		registered, err = g.Policy.IsDeviceRegistered(ctx, session)
		return err
	}

	var err error
	if g.guard != nil {
		err = g.guard.Do(ctx, check)
	} else {
		err = check(ctx)
	}
	if err != nil {
		g.logger.Warn("device trust check failed",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
		return DecisionBlocked, err
	}

	decision := DecisionBlocked
	if registered {
		decision = DecisionTrusted
	}
	g.logger.Info("device trust evaluated",
		zap.String("session_id", session.ID.String()),
		zap.String("decision", string(decision)))
	return decision, nil
}
