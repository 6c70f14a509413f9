package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/usecase/verification"
)

func TestManager_SessionsAreIsolated(t *testing.T) {
	var seen []domain.TransferOutcome
	m := NewManager(mustPolicy(t, PolicyPinOnly), Dependencies{Pin: verification.AlwaysAccept()}, Expiry{},
		func(o domain.TransferOutcome) { seen = append(seen, o) })

	a, err := m.Start("a@example.com", "dev-a")
	require.NoError(t, err)
	b, err := m.Start("B@Example.com", "dev-b")
	require.NoError(t, err)
	assert.NotEqual(t, a.Session().ID, b.Session().ID)
	assert.Equal(t, "b@example.com", b.Session().UserEmail)
	assert.Equal(t, 2, m.Len())

	require.NoError(t, a.EditDraft(domain.FieldAmount, "15"))
	assert.False(t, b.Draft().Amount.Valid, "drafts are per session")

	got, err := m.Get(a.Session().ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = a.Submit()
	require.NoError(t, err)
	require.Len(t, seen, 1, "manager listeners are attached to every engine")
	assert.Equal(t, a.Session().ID, seen[0].SessionID)

	m.End(a.Session().ID)
	_, err = m.Get(a.Session().ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = m.Get(uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_StartFailsWithoutCollaborators(t *testing.T) {
	m := NewManager(mustPolicy(t, PolicyPinOtp), Dependencies{Pin: verification.AlwaysAccept()}, Expiry{})
	_, err := m.Start("a@example.com", "")
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

// authorize drives a pin_only session with an accepting verifier to Succeeded
func authorize(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.ApplyRecipient(sarahMartinez()))
	require.NoError(t, e.EditDraft(domain.FieldAmount, "250.00"))
	_, err := e.Submit()
	require.NoError(t, err)
	step, err := e.SubmitPin(context.Background(), correctPin)
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, step.State)
}

func TestManager_TerminalSessionsAreEvicted(t *testing.T) {
	m := NewManager(mustPolicy(t, PolicyPinOnly), Dependencies{Pin: verification.AlwaysAccept()}, Expiry{})

	for i := 0; i < 3; i++ {
		e, err := m.Start("a@example.com", "dev-a")
		require.NoError(t, err)
		authorize(t, e)
	}
	open, err := m.Start("a@example.com", "dev-a")
	require.NoError(t, err)

	assert.Equal(t, 1, m.Len())
	_, err = m.Get(open.Session().ID)
	assert.NoError(t, err)
}

func TestManager_TerminalSessionsKeptForRetention(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m := NewManager(mustPolicy(t, PolicyPinOnly), Dependencies{Pin: verification.AlwaysAccept()},
		Expiry{TerminalTTL: time.Minute, Clock: func() time.Time { return now }})

	e, err := m.Start("a@example.com", "dev-a")
	require.NoError(t, err)
	authorize(t, e)

	got, err := m.Get(e.Session().ID)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, got.State(), "result stays readable")

	now = now.Add(30 * time.Second)
	assert.Equal(t, 0, m.Sweep())

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Len())
}

func TestManager_IdleSessionsAreSwept(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m := NewManager(mustPolicy(t, PolicyPinOnly), Dependencies{Pin: verification.AlwaysAccept()},
		Expiry{IdleTTL: 10 * time.Minute, TerminalTTL: time.Minute, Clock: func() time.Time { return now }})

	abandoned, err := m.Start("a@example.com", "dev-a")
	require.NoError(t, err)
	active, err := m.Start("b@example.com", "dev-b")
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	_, err = m.Get(active.Session().ID)
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, err = m.Get(abandoned.Session().ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = m.Get(active.Session().ID)
	assert.NoError(t, err, "a recent Get keeps the session alive")
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m := NewManager(mustPolicy(t, PolicyPinOnly), Dependencies{Pin: verification.AlwaysAccept()}, Expiry{IdleTTL: time.Nanosecond})
	_, err := m.Start("a@example.com", "dev-a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
