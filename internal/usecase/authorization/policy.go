package authorization

import (
	"fmt"
	"strings"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// State is a node of the authorization state machine
type State string

const (
	StateDrafting     State = "DRAFTING"
	StateValidating   State = "VALIDATING"
	StatePinChallenge State = "PIN_CHALLENGE"
	StateOtpChallenge State = "OTP_CHALLENGE"
	StateDeviceCheck  State = "DEVICE_CHECK"
	StateSucceeded    State = "SUCCEEDED"
	StateBlocked      State = "BLOCKED"
)

// IsTerminal reports whether the session has ended
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateBlocked
}

// Policy names accepted by ParsePolicy
const (
	PolicyPinOnly      = "pin_only"
	PolicyPinDevice    = "pin_device"
	PolicyPinOtp       = "pin_otp"
	PolicyPinOtpDevice = "pin_otp_device"
)

// Policy selects which checks follow the PIN challenge.
// The PIN challenge always comes first, then OTP, then the device check.
type Policy struct {
	Name          string
	RequireOtp    bool
	RequireDevice bool
	Limits        domain.AmountLimits
	Pin           domain.ChallengePolicy
	Otp           domain.ChallengePolicy
}

// ParsePolicy builds a Policy from its name with default limits and no attempt caps
func ParsePolicy(name string) (Policy, error) {
	p := Policy{
		Name:   strings.ToLower(strings.TrimSpace(name)),
		Limits: domain.DefaultAmountLimits(),
	}
	switch p.Name {
	case PolicyPinOnly:
	case PolicyPinDevice:
		p.RequireDevice = true
	case PolicyPinOtp:
		p.RequireOtp = true
	case PolicyPinOtpDevice:
		p.RequireOtp = true
		p.RequireDevice = true
	default:
		return Policy{}, fmt.Errorf("unknown transfer policy %q", name)
	}
	return p, nil
}

// Steps returns the challenge states in the order the policy visits them
func (p Policy) Steps() []State {
	steps := []State{StatePinChallenge}
	if p.RequireOtp {
		steps = append(steps, StateOtpChallenge)
	}
	if p.RequireDevice {
		steps = append(steps, StateDeviceCheck)
	}
	return steps
}

// next returns the state that follows a passed step
func (p Policy) next(passed State) State {
	steps := p.Steps()
	for i, s := range steps {
		if s == passed && i+1 < len(steps) {
			return steps[i+1]
		}
	}
	return StateSucceeded
}
