package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecipientRepository defines the interface for recipient persistence operations
type RecipientRepository interface {
	// List returns all recipients in insertion order
	List(ctx context.Context) ([]*Recipient, error)
	// Create stores a new recipient
	Create(ctx context.Context, recipient *Recipient) error
	// GetByID returns ErrRecipientNotFound when no recipient has the ID
	GetByID(ctx context.Context, id uuid.UUID) (*Recipient, error)
}

// UserRepository defines the interface for user profile persistence operations
type UserRepository interface {
	// GetByEmail returns ErrUserNotFound when no user has the email
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Create stores a new user
	Create(ctx context.Context, user *User) error
	// Update applies a partial update and returns the stored profile
	Update(ctx context.Context, email string, update UserUpdate) (*User, error)
	// UpdatePasswordHash replaces the stored password hash
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
}

// DeviceRegistry records which device fingerprints a user has registered
type DeviceRegistry interface {
	IsRegistered(ctx context.Context, userEmail, fingerprint string) (bool, error)
	Register(ctx context.Context, userEmail, fingerprint string) error
}

// OtpPurpose separates codes issued for different flows
type OtpPurpose string

const (
	OtpPurposePasswordReset OtpPurpose = "password_reset"
	OtpPurposeTransfer      OtpPurpose = "transfer"
)

// OtpKey addresses a single outstanding code.
// Scope narrows the key below the user, e.g. to one transfer session.
type OtpKey struct {
	Email   string
	Purpose OtpPurpose
	Scope   string
}

// OtpRecord is a stored one-time code
type OtpRecord struct {
	CodeHash  string
	Verified  bool
	ExpiresAt time.Time
}

// OtpStore defines the interface for one-time code storage.
// Records expire after the TTL given to Save.
type OtpStore interface {
	Save(ctx context.Context, key OtpKey, record OtpRecord, ttl time.Duration) error
	// Get returns ErrOtpNotFound for missing or expired records
	Get(ctx context.Context, key OtpKey) (*OtpRecord, error)
	MarkVerified(ctx context.Context, key OtpKey) error
	Delete(ctx context.Context, key OtpKey) error
}

// OtpDelivery sends a code to the user over mail or SMS
type OtpDelivery interface {
	Deliver(ctx context.Context, email string, purpose OtpPurpose, code string) error
}
