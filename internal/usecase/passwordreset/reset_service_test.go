package passwordreset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/usecase/account"
	"github.com/simaogato/transferauth-backend/internal/usecase/verification"
)

func TestResetService_HappyPath(t *testing.T) {
	ctx := context.Background()
	actions := new(MockActions)
	actions.On("ForgotPassword", mock.Anything, email).Return(ok("OTP sent to your email"), nil)
	actions.On("VerifyOtp", mock.Anything, email, "482913").Return(ok("OTP verified successfully"), nil)
	actions.On("ResetPassword", mock.Anything, email, "a-new-password").Return(ok("Password reset successfully"), nil)
	s := NewResetService(actions, domain.ChallengePolicy{MaxAttempts: 3}, verification.Options{})

	res, err := s.ForgotPassword(ctx, "AllDavi011@Gmail.com ")
	require.NoError(t, err)
	assert.Equal(t, ok("OTP sent to your email"), res)
	assert.Equal(t, 1, s.Pending())

	res, err = s.VerifyOtp(ctx, email, "482913")
	require.NoError(t, err)
	assert.Equal(t, ok("OTP verified successfully"), res)

	res, err = s.VerifyOtp(ctx, email, "482913")
	require.NoError(t, err)
	assert.True(t, res.Success, "verifying twice is harmless")
	actions.AssertNumberOfCalls(t, "VerifyOtp", 1)

	res, err = s.ResetPassword(ctx, email, "a-new-password")
	require.NoError(t, err)
	assert.Equal(t, ok("Password reset successfully"), res)
	assert.Equal(t, 0, s.Pending())
	actions.AssertExpectations(t)
}

func TestResetService_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	actions := new(MockActions)
	actions.On("ForgotPassword", mock.Anything, "ghost@example.com").Return(fail("No account found with that email"), nil)
	s := NewResetService(actions, domain.ChallengePolicy{}, verification.Options{})

	res, err := s.ForgotPassword(ctx, "ghost@example.com")

	require.NoError(t, err)
	assert.Equal(t, fail("No account found with that email"), res)
	assert.Equal(t, 0, s.Pending())
}

func TestResetService_LockoutDropsFlow(t *testing.T) {
	ctx := context.Background()
	actions := new(MockActions)
	actions.On("ForgotPassword", mock.Anything, email).Return(ok("OTP sent to your email"), nil)
	actions.On("VerifyOtp", mock.Anything, email, "111111").Return(fail("Invalid OTP"), nil)
	s := NewResetService(actions, domain.ChallengePolicy{MaxAttempts: 2}, verification.Options{})

	_, err := s.ForgotPassword(ctx, email)
	require.NoError(t, err)

	res, err := s.VerifyOtp(ctx, email, "12ab")
	require.NoError(t, err)
	assert.Equal(t, fail(msgEnterAllDigits), res)

	res, err = s.VerifyOtp(ctx, email, "111111")
	require.NoError(t, err)
	assert.Equal(t, fail("Invalid OTP"), res)

	res, err = s.VerifyOtp(ctx, email, "111111")
	require.NoError(t, err)
	assert.Equal(t, fail(msgLocked), res)
	assert.Equal(t, 0, s.Pending())

	res, err = s.VerifyOtp(ctx, email, "222222")
	require.NoError(t, err)
	assert.Equal(t, fail(msgRequestNew), res)
	actions.AssertNumberOfCalls(t, "VerifyOtp", 2)
}

func TestResetService_ResetRequiresVerifiedCode(t *testing.T) {
	ctx := context.Background()
	actions := new(MockActions)
	actions.On("ForgotPassword", mock.Anything, email).Return(ok("OTP sent to your email"), nil)
	actions.On("VerifyOtp", mock.Anything, email, "333333").Return(ok("OTP verified successfully"), nil)
	actions.On("ResetPassword", mock.Anything, email, "short").Return(fail("Password must be at least 8 characters"), nil)
	actions.On("ResetPassword", mock.Anything, email, "long-enough").Return(account.Result{}, errors.New("db down"))
	s := NewResetService(actions, domain.ChallengePolicy{}, verification.Options{})

	res, err := s.ResetPassword(ctx, email, "long-enough")
	require.NoError(t, err)
	assert.Equal(t, fail(msgVerifyFirst), res)

	_, err = s.ForgotPassword(ctx, email)
	require.NoError(t, err)

	res, err = s.ResetPassword(ctx, email, "long-enough")
	require.NoError(t, err)
	assert.Equal(t, fail(msgVerifyFirst), res, "code not verified yet")

	_, err = s.VerifyOtp(ctx, email, "333333")
	require.NoError(t, err)

	res, err = s.ResetPassword(ctx, email, "short")
	require.NoError(t, err)
	assert.Equal(t, fail("Password must be at least 8 characters"), res)

	_, err = s.ResetPassword(ctx, email, "long-enough")
	assert.Error(t, err)
	assert.Equal(t, 1, s.Pending(), "a failed reset keeps the flow")
}
