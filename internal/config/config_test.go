package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPinHash = "$2a$04$abcdefghijklmnopqrstuuVtY2iJ1i8nM5b1m0cKZyK6QnXQm6s2e"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRANSFER_PIN_HASH", testPinHash)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GRPC.Addr)
	assert.Equal(t, "development", cfg.Logging.Environment)
	assert.Empty(t, cfg.Database.ConnStr)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "pin_device", cfg.Transfer.Policy)
	assert.True(t, cfg.Transfer.MinAmount.Equal(decimal.RequireFromString("1.00")))
	assert.True(t, cfg.Transfer.MaxAmount.Equal(decimal.RequireFromString("10000.00")))
	assert.True(t, cfg.Transfer.EnforceLimits)
	assert.Equal(t, 5, cfg.Transfer.PinMaxAttempts)
	assert.Equal(t, 5, cfg.Transfer.OtpMaxAttempts)
	assert.Equal(t, 300*time.Second, cfg.Transfer.OtpTTL)
	assert.Equal(t, 10*time.Second, cfg.Transfer.CollaboratorTimeout)
	assert.Empty(t, cfg.Transfer.TrustedDevices)
	assert.Equal(t, 10, cfg.Security.BcryptCost)
	assert.Equal(t, 30*time.Minute, cfg.Transfer.SessionIdleTTL)
	assert.Equal(t, time.Minute, cfg.Transfer.SessionTerminalTTL)
	assert.Equal(t, 30*time.Second, cfg.Transfer.SessionSweep)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TRANSFER_PIN_HASH", testPinHash)
	t.Setenv("GRPC_ADDR", ":9090")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "bank")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("TRANSFER_POLICY", "PIN_OTP")
	t.Setenv("TRANSFER_MAX_AMOUNT", "500")
	t.Setenv("TRANSFER_ENFORCE_LIMITS", "false")
	t.Setenv("PIN_MAX_ATTEMPTS", "0")
	t.Setenv("OTP_TTL", "90s")
	t.Setenv("TRUSTED_DEVICES", "dev-1, dev-2 ,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.GRPC.Addr)
	assert.Equal(t, "host=db port=5432 user=postgres password=postgres dbname=bank sslmode=disable", cfg.Database.ConnStr)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "pin_otp", cfg.Transfer.Policy)
	assert.True(t, cfg.Transfer.MaxAmount.Equal(decimal.NewFromInt(500)))
	assert.False(t, cfg.Transfer.EnforceLimits)
	assert.Equal(t, 0, cfg.Transfer.PinMaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Transfer.OtpTTL)
	assert.Equal(t, []string{"dev-1", "dev-2"}, cfg.Transfer.TrustedDevices)
}

func TestLoad_ExplicitConnStrWins(t *testing.T) {
	t.Setenv("TRANSFER_PIN_HASH", testPinHash)
	t.Setenv("DB_HOST", "ignored")
	t.Setenv("DB_CONN_STR", "postgres://u:p@h/db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/db", cfg.Database.ConnStr)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "transfer_pin_hash: \"" + testPinHash + "\"\ntransfer_policy: pin_only\notp_max_attempts: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OTP_MAX_ATTEMPTS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pin_only", cfg.Transfer.Policy)
	assert.Equal(t, 7, cfg.Transfer.OtpMaxAttempts, "environment overrides file")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		errMsg string
	}{
		{
			name:   "missing pin hash",
			env:    map[string]string{},
			errMsg: "TRANSFER_PIN_HASH is required",
		},
		{
			name:   "invalid minimum amount",
			env:    map[string]string{"TRANSFER_PIN_HASH": testPinHash, "TRANSFER_MIN_AMOUNT": "one"},
			errMsg: "invalid TRANSFER_MIN_AMOUNT",
		},
		{
			name:   "minimum above maximum",
			env:    map[string]string{"TRANSFER_PIN_HASH": testPinHash, "TRANSFER_MIN_AMOUNT": "100", "TRANSFER_MAX_AMOUNT": "10"},
			errMsg: "exceeds TRANSFER_MAX_AMOUNT",
		},
		{
			name:   "negative attempts",
			env:    map[string]string{"TRANSFER_PIN_HASH": testPinHash, "OTP_MAX_ATTEMPTS": "-1"},
			errMsg: "max attempts cannot be negative",
		},
		{
			name:   "negative session ttl",
			env:    map[string]string{"TRANSFER_PIN_HASH": testPinHash, "SESSION_IDLE_TTL": "-1m"},
			errMsg: "session TTLs cannot be negative",
		},
		{
			name:   "missing config file",
			env:    map[string]string{"TRANSFER_PIN_HASH": testPinHash, "CONFIG_FILE": "/nonexistent/config.yaml"},
			errMsg: "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRANSFER_PIN_HASH", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
