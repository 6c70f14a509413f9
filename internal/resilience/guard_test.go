package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

func newTestGuard(timeout time.Duration, failures uint32) *Guard {
	return NewGuard("test", timeout, BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		OpenTimeout:         time.Minute,
		ConsecutiveFailures: failures,
	}, nil)
}

func TestGuard_Call(t *testing.T) {
	ctx := context.Background()

	t.Run("returns value on success", func(t *testing.T) {
		g := newTestGuard(time.Second, 3)
		v, err := Call(ctx, g, func(ctx context.Context) (int, error) { return 42, nil })
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("business errors pass through unchanged", func(t *testing.T) {
		g := newTestGuard(time.Second, 1)
		_, err := Call(ctx, g, func(ctx context.Context) (int, error) { return 0, domain.ErrUserNotFound })
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.NotErrorIs(t, err, domain.ErrServiceUnavailable)
		assert.Equal(t, "closed", g.State(), "business errors must not trip the breaker")
	})

	t.Run("infrastructure errors become service unavailable", func(t *testing.T) {
		g := newTestGuard(time.Second, 3)
		boom := errors.New("connection refused")
		err := g.Do(ctx, func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("slow collaborator times out", func(t *testing.T) {
		g := newTestGuard(20*time.Millisecond, 3)
		release := make(chan struct{})
		defer close(release)

		start := time.Now()
		err := g.Do(ctx, func(ctx context.Context) error {
			<-release
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("open breaker rejects immediately", func(t *testing.T) {
		g := newTestGuard(time.Second, 2)
		boom := errors.New("down")
		calls := 0
		fail := func(ctx context.Context) error { calls++; return boom }

		_ = g.Do(ctx, fail)
		_ = g.Do(ctx, fail)
		require.Equal(t, "open", g.State())

		err := g.Do(ctx, fail)
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
		assert.Equal(t, 2, calls)
	})

	t.Run("nil pointer results are returned as nil", func(t *testing.T) {
		g := newTestGuard(time.Second, 3)
		v, err := Call(ctx, g, func(ctx context.Context) (*domain.User, error) { return nil, nil })
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}
