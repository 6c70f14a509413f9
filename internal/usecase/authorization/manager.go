package authorization

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
)

// Expiry bounds how long the Manager keeps sessions.
//
// A session that emitted a terminal outcome is kept for TerminalTTL so clients can
// read the result, then evicted; zero evicts it as soon as the outcome is published.
// A session nobody has touched for IdleTTL is evicted; zero keeps idle sessions.
type Expiry struct {
	IdleTTL     time.Duration
	TerminalTTL time.Duration
	Clock       func() time.Time
}

type entry struct {
	engine   *Engine
	lastSeen time.Time
	endedAt  time.Time
}

// Manager owns the engines of the live transfer sessions.
// Each session has exactly one engine; engines never share drafts or challenges.
type Manager struct {
	policy    Policy
	deps      Dependencies
	expiry    Expiry
	now       func() time.Time
	logger    *zap.Logger
	listeners []Listener

	mu      sync.RWMutex
	engines map[uuid.UUID]*entry
}

// NewManager creates a Manager that builds engines with the given policy and collaborators
func NewManager(policy Policy, deps Dependencies, expiry Expiry, listeners ...Listener) *Manager {
	now := expiry.Clock
	if now == nil {
		now = time.Now
	}
	return &Manager{
		policy:    policy,
		deps:      deps,
		expiry:    expiry,
		now:       now,
		logger:    logging.OrNop(deps.Logger),
		listeners: listeners,
		engines:   make(map[uuid.UUID]*entry),
	}
}

// Policy returns the policy new sessions are started with
func (m *Manager) Policy() Policy {
	return m.policy
}

// Start opens a new transfer session for the user and device
func (m *Manager) Start(userEmail, deviceFingerprint string) (*Engine, error) {
	session := domain.NewSessionContext(userEmail, deviceFingerprint)
	engine, err := NewEngine(session, m.policy, m.deps)
	if err != nil {
		return nil, err
	}
	for _, l := range m.listeners {
		engine.OnOutcome(l)
	}
	engine.OnOutcome(func(o domain.TransferOutcome) {
		if o.Terminal {
			m.ended(o.SessionID)
		}
	})

	m.mu.Lock()
	m.engines[session.ID] = &entry{engine: engine, lastSeen: m.now()}
	m.mu.Unlock()

	m.logger.Info("transfer session started",
		zap.String("session_id", session.ID.String()),
		zap.String("policy", m.policy.Name))
	return engine, nil
}

// Get returns the engine for a session, or ErrSessionNotFound
func (m *Manager) Get(id uuid.UUID) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.engines[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = m.now()
	return e.engine, nil
}

// End forgets a session
func (m *Manager) End(id uuid.UUID) {
	m.mu.Lock()
	delete(m.engines, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.engines)
}

// ended records a terminal outcome for the session
func (m *Manager) ended(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.engines[id]
	if !ok {
		return
	}
	if m.expiry.TerminalTTL <= 0 {
		delete(m.engines, id)
		return
	}
	e.endedAt = m.now()
}

// Sweep evicts expired sessions and returns how many were removed
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.engines {
		terminalExpired := !e.endedAt.IsZero() && now.Sub(e.endedAt) >= m.expiry.TerminalTTL
		idleExpired := m.expiry.IdleTTL > 0 && now.Sub(e.lastSeen) >= m.expiry.IdleTTL
		if terminalExpired || idleExpired {
			delete(m.engines, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("expired transfer sessions evicted",
					zap.Int("count", n),
					zap.Int("live", m.Len()))
			}
		}
	}
}
