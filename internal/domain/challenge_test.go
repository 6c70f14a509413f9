package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeKind_ExpectedLength(t *testing.T) {
	assert.Equal(t, 4, ChallengeKindPIN.ExpectedLength())
	assert.Equal(t, 6, ChallengeKindOTP.ExpectedLength())
}

func TestChallenge_Input(t *testing.T) {
	tests := []struct {
		name    string
		kind    ChallengeKind
		value   string
		wantErr bool
	}{
		{name: "partial PIN is accepted", kind: ChallengeKindPIN, value: "12"},
		{name: "full PIN is accepted", kind: ChallengeKindPIN, value: "1234"},
		{name: "empty value is accepted", kind: ChallengeKindPIN, value: ""},
		{name: "PIN longer than 4 digits is rejected", kind: ChallengeKindPIN, value: "12345", wantErr: true},
		{name: "letters are rejected", kind: ChallengeKindPIN, value: "12a4", wantErr: true},
		{name: "full OTP is accepted", kind: ChallengeKindOTP, value: "123456"},
		{name: "OTP longer than 6 digits is rejected", kind: ChallengeKindOTP, value: "1234567", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChallenge(tt.kind, ChallengePolicy{}, time.Now())
			err := c.Input(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidationFailed)
				assert.Empty(t, c.Value)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.value, c.Value)
			}
		})
	}
}

func TestChallenge_CheckSubmittable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("incomplete value is a validation failure", func(t *testing.T) {
		c := NewChallenge(ChallengeKindOTP, ChallengePolicy{}, now)
		require.NoError(t, c.Input("123"))
		err := c.CheckSubmittable(now)
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "Please enter all 6 digits")
	})

	t.Run("complete value is submittable", func(t *testing.T) {
		c := NewChallenge(ChallengeKindPIN, ChallengePolicy{}, now)
		require.NoError(t, c.Input("9900"))
		assert.NoError(t, c.CheckSubmittable(now))
	})

	t.Run("elapsed TTL expires the challenge", func(t *testing.T) {
		c := NewChallenge(ChallengeKindOTP, ChallengePolicy{TTL: 5 * time.Minute}, now)
		require.NoError(t, c.Input("123456"))
		err := c.CheckSubmittable(now.Add(5*time.Minute + time.Second))
		assert.ErrorIs(t, err, ErrChallengeExpired)
		assert.Equal(t, ChallengeStateExpired, c.State)
	})

	t.Run("no TTL never expires", func(t *testing.T) {
		c := NewChallenge(ChallengeKindPIN, ChallengePolicy{}, now)
		require.NoError(t, c.Input("1234"))
		assert.NoError(t, c.CheckSubmittable(now.Add(24*time.Hour)))
		assert.True(t, c.ExpiresAt().IsZero())
	})

	t.Run("satisfied challenge cannot be resubmitted", func(t *testing.T) {
		c := NewChallenge(ChallengeKindPIN, ChallengePolicy{}, now)
		c.RecordResult(true)
		assert.ErrorIs(t, c.CheckSubmittable(now), ErrInvalidState)
	})
}

func TestChallenge_RecordResult(t *testing.T) {
	now := time.Now()

	t.Run("success satisfies", func(t *testing.T) {
		c := NewChallenge(ChallengeKindPIN, ChallengePolicy{}, now)
		require.NoError(t, c.Input("1234"))
		assert.Equal(t, ChallengeStateSatisfied, c.RecordResult(true))
		assert.Empty(t, c.Value)
	})

	t.Run("rejection allows resubmission without a cap", func(t *testing.T) {
		c := NewChallenge(ChallengeKindPIN, ChallengePolicy{}, now)
		for i := 0; i < 20; i++ {
			require.NoError(t, c.Input("0000"))
			require.NoError(t, c.CheckSubmittable(now))
			assert.Equal(t, ChallengeStateRejected, c.RecordResult(false))
		}
		assert.Equal(t, 20, c.FailedAttempts)
		assert.Equal(t, -1, c.AttemptsRemaining())
	})

	t.Run("reaching max attempts locks", func(t *testing.T) {
		c := NewChallenge(ChallengeKindPIN, ChallengePolicy{MaxAttempts: 3}, now)
		assert.Equal(t, ChallengeStateRejected, c.RecordResult(false))
		assert.Equal(t, ChallengeStateRejected, c.RecordResult(false))
		assert.Equal(t, 1, c.AttemptsRemaining())
		assert.Equal(t, ChallengeStateLocked, c.RecordResult(false))
		assert.Equal(t, 0, c.AttemptsRemaining())
		assert.ErrorIs(t, c.CheckSubmittable(now), ErrChallengeLocked)
	})
}

func TestChallenge_Reissue(t *testing.T) {
	now := time.Now()

	t.Run("expired challenge returns to pending and keeps failures", func(t *testing.T) {
		c := NewChallenge(ChallengeKindOTP, ChallengePolicy{TTL: time.Minute, MaxAttempts: 5}, now)
		c.RecordResult(false)
		_ = c.CheckSubmittable(now.Add(2 * time.Minute))
		require.Equal(t, ChallengeStateExpired, c.State)

		later := now.Add(3 * time.Minute)
		require.NoError(t, c.Reissue(later))
		assert.Equal(t, ChallengeStatePending, c.State)
		assert.Equal(t, later, c.IssuedAt)
		assert.Equal(t, 1, c.FailedAttempts)
	})

	t.Run("locked challenge cannot be reissued", func(t *testing.T) {
		c := NewChallenge(ChallengeKindOTP, ChallengePolicy{MaxAttempts: 1}, now)
		c.RecordResult(false)
		assert.ErrorIs(t, c.Reissue(now), ErrChallengeLocked)
	})
}
