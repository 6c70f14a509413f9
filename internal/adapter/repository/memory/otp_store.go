package memory

import (
	"context"
	"sync"
	"time"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// otpStore implements domain.OtpStore with lazy expiry
type otpStore struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[domain.OtpKey]domain.OtpRecord
}

// NewOtpStore creates an in-memory OTP store using the wall clock
func NewOtpStore() domain.OtpStore {
	return NewOtpStoreWithClock(time.Now)
}

// NewOtpStoreWithClock creates an in-memory OTP store using the given clock
func NewOtpStoreWithClock(now func() time.Time) domain.OtpStore {
	return &otpStore{
		now:     now,
		records: make(map[domain.OtpKey]domain.OtpRecord),
	}
}

func normalizeKey(key domain.OtpKey) domain.OtpKey {
	key.Email = domain.NormalizeEmail(key.Email)
	return key
}

// Save replaces any outstanding record for the key
func (s *otpStore) Save(ctx context.Context, key domain.OtpKey, record domain.OtpRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ExpiresAt = s.now().Add(ttl)
	s.records[normalizeKey(key)] = record
	return nil
}

// Get returns the record, or ErrOtpNotFound when missing or expired
func (s *otpStore) Get(ctx context.Context, key domain.OtpKey) (*domain.OtpRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = normalizeKey(key)
	record, ok := s.records[key]
	if !ok {
		return nil, domain.ErrOtpNotFound
	}
	if !s.now().Before(record.ExpiresAt) {
		delete(s.records, key)
		return nil, domain.ErrOtpNotFound
	}
	return &record, nil
}

// MarkVerified flags the record as verified without extending its TTL
func (s *otpStore) MarkVerified(ctx context.Context, key domain.OtpKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = normalizeKey(key)
	record, ok := s.records[key]
	if !ok || !s.now().Before(record.ExpiresAt) {
		return domain.ErrOtpNotFound
	}
	record.Verified = true
	s.records[key] = record
	return nil
}

// Delete removes the record if present
func (s *otpStore) Delete(ctx context.Context, key domain.OtpKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, normalizeKey(key))
	return nil
}
