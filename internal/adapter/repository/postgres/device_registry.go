package postgres

import (
	"context"
	"fmt"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// deviceRegistry implements domain.DeviceRegistry.
// Rows with an empty user_email are trusted for every user.
type deviceRegistry struct {
	db *DB
}

// NewDeviceRegistry creates a new device registry
func NewDeviceRegistry(db *DB) domain.DeviceRegistry {
	return &deviceRegistry{db: db}
}

// IsRegistered reports whether the fingerprint is registered for the user or globally
func (r *deviceRegistry) IsRegistered(ctx context.Context, userEmail, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM registered_devices
			WHERE fingerprint = $1 AND user_email IN ('', $2)
		)
	`

	var registered bool
	if err := r.db.QueryRowContext(ctx, query, fingerprint, domain.NormalizeEmail(userEmail)).Scan(&registered); err != nil {
		return false, fmt.Errorf("failed to check device registration: %w", err)
	}
	return registered, nil
}

// Register trusts the fingerprint for the user
func (r *deviceRegistry) Register(ctx context.Context, userEmail, fingerprint string) error {
	query := `
		INSERT INTO registered_devices (user_email, fingerprint)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, domain.NormalizeEmail(userEmail), fingerprint); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
