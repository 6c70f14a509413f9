// Package redisstore stores one-time codes in Redis so they survive restarts and
// expire without a sweeper.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

const keyPrefix = "otp:"

const (
	fieldCodeHash  = "code_hash"
	fieldVerified  = "verified"
	fieldExpiresAt = "expires_at"
)

// markVerified sets the verified flag only while the key is still alive,
// so an expired record is never resurrected without a TTL.
var markVerified = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HSET', KEYS[1], 'verified', '1')
	return 1
end
return 0
`)

// otpStore implements domain.OtpStore on a Redis hash per key
type otpStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewOtpStore creates a Redis-backed OTP store
func NewOtpStore(client redis.UniversalClient) domain.OtpStore {
	return &otpStore{client: client, now: time.Now}
}

// NewClient opens a client for addr and checks it with PING
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func redisKey(key domain.OtpKey) string {
	k := keyPrefix + string(key.Purpose) + ":" + domain.NormalizeEmail(key.Email)
	if key.Scope != "" {
		k += ":" + key.Scope
	}
	return k
}

// Save replaces any outstanding record for the key
func (s *otpStore) Save(ctx context.Context, key domain.OtpKey, record domain.OtpRecord, ttl time.Duration) error {
	k := redisKey(key)
	expiresAt := s.now().Add(ttl)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			fieldCodeHash, record.CodeHash,
			fieldVerified, boolField(record.Verified),
			fieldExpiresAt, strconv.FormatInt(expiresAt.UnixMilli(), 10),
		)
		pipe.PExpire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save otp: %w", err)
	}
	return nil
}

// Get returns the record, or ErrOtpNotFound when missing or expired
func (s *otpStore) Get(ctx context.Context, key domain.OtpKey) (*domain.OtpRecord, error) {
	fields, err := s.client.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get otp: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrOtpNotFound
	}

	millis, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse otp expiry: %w", err)
	}
	record := &domain.OtpRecord{
		CodeHash:  fields[fieldCodeHash],
		Verified:  fields[fieldVerified] == "1",
		ExpiresAt: time.UnixMilli(millis),
	}
	if !s.now().Before(record.ExpiresAt) {
		return nil, domain.ErrOtpNotFound
	}
	return record, nil
}

// MarkVerified flags the record as verified without extending its TTL
func (s *otpStore) MarkVerified(ctx context.Context, key domain.OtpKey) error {
	updated, err := markVerified.Run(ctx, s.client, []string{redisKey(key)}).Int()
	if err != nil {
		return fmt.Errorf("redis mark otp verified: %w", err)
	}
	if updated == 0 {
		return domain.ErrOtpNotFound
	}
	return nil
}

// Delete removes the record if present
func (s *otpStore) Delete(ctx context.Context, key domain.OtpKey) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete otp: %w", err)
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
