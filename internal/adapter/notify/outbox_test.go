package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

func TestOutbox_Last(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox(nil)

	require.NoError(t, o.Deliver(ctx, "User@Example.com", domain.OtpPurposePasswordReset, "111111"))
	require.NoError(t, o.Deliver(ctx, "user@example.com", domain.OtpPurposeTransfer, "222222"))
	require.NoError(t, o.Deliver(ctx, "user@example.com", domain.OtpPurposePasswordReset, "333333"))

	code, ok := o.Last("user@example.com", domain.OtpPurposePasswordReset)
	assert.True(t, ok)
	assert.Equal(t, "333333", code)

	code, ok = o.Last("user@example.com", domain.OtpPurposeTransfer)
	assert.True(t, ok)
	assert.Equal(t, "222222", code)

	_, ok = o.Last("other@example.com", domain.OtpPurposeTransfer)
	assert.False(t, ok)
	assert.Equal(t, 3, o.Count())
}

func TestOutbox_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOutbox(nil)
	assert.ErrorIs(t, o.Deliver(ctx, "user@example.com", domain.OtpPurposeTransfer, "1"), context.Canceled)
	assert.Equal(t, 0, o.Count())
}
