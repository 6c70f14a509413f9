package memory

import (
	"context"
	"sync"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// deviceRegistry implements domain.DeviceRegistry.
// Fingerprints registered under the empty email are trusted for every user.
type deviceRegistry struct {
	mu      sync.RWMutex
	devices map[string]map[string]struct{}
}

// NewDeviceRegistry creates a registry pre-loaded with globally trusted fingerprints
func NewDeviceRegistry(trusted ...string) domain.DeviceRegistry {
	r := &deviceRegistry{devices: make(map[string]map[string]struct{})}
	for _, fp := range trusted {
		r.add("", fp)
	}
	return r
}

// IsRegistered reports whether the fingerprint is registered for the user or globally
func (r *deviceRegistry) IsRegistered(ctx context.Context, userEmail, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.devices[""][fingerprint]; ok {
		return true, nil
	}
	_, ok := r.devices[domain.NormalizeEmail(userEmail)][fingerprint]
	return ok, nil
}

// Register trusts the fingerprint for the user
func (r *deviceRegistry) Register(ctx context.Context, userEmail, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(domain.NormalizeEmail(userEmail), fingerprint)
	return nil
}

func (r *deviceRegistry) add(email, fingerprint string) {
	if r.devices[email] == nil {
		r.devices[email] = make(map[string]struct{})
	}
	r.devices[email][fingerprint] = struct{}{}
}
