package domain

import "github.com/google/uuid"

// SessionContext identifies who is acting and from which device.
// It is passed explicitly into every operation instead of living in ambient state.
type SessionContext struct {
	ID                uuid.UUID
	UserEmail         string
	DeviceFingerprint string
}

// NewSessionContext creates a session with a fresh ID
func NewSessionContext(userEmail, deviceFingerprint string) SessionContext {
	return SessionContext{
		ID:                uuid.New(),
		UserEmail:         NormalizeEmail(userEmail),
		DeviceFingerprint: deviceFingerprint,
	}
}
