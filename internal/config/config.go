package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config aggregates application configuration values.
type Config struct {
	GRPC     GRPCConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Transfer TransferConfig
	Security SecurityConfig
}

// GRPCConfig governs the gRPC listener.
type GRPCConfig struct {
	Addr            string
	APIToken        string
	ShutdownTimeout time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Environment string
	Level       string
	ServiceName string
}

// DatabaseConfig describes the Postgres connection. An empty ConnStr selects in-memory stores.
type DatabaseConfig struct {
	ConnStr string
}

// RedisConfig describes the OTP store. An empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TransferConfig holds the authorization engine policy knobs.
type TransferConfig struct {
	PinHash             string
	Policy              string
	MinAmount           decimal.Decimal
	MaxAmount           decimal.Decimal
	EnforceLimits       bool
	PinMaxAttempts      int
	OtpMaxAttempts      int
	OtpTTL              time.Duration
	CollaboratorTimeout time.Duration
	TrustedDevices      []string
	SessionIdleTTL      time.Duration
	SessionTerminalTTL  time.Duration
	SessionSweep        time.Duration
}

// SecurityConfig controls credential hashing.
type SecurityConfig struct {
	BcryptCost int
}

const (
	defaultGRPCAddr            = ":8080"
	defaultAPIToken            = "dev-token"
	defaultShutdownTimeout     = 10 * time.Second
	defaultEnvironment         = "development"
	defaultServiceName         = "transferauth"
	defaultPolicy              = "pin_device"
	defaultMinAmount           = "1.00"
	defaultMaxAmount           = "10000.00"
	defaultMaxAttempts         = 5
	defaultOtpTTL              = 300 * time.Second
	defaultCollaboratorTimeout = 10 * time.Second
	defaultBcryptCost          = 10
	defaultSessionIdleTTL      = 30 * time.Minute
	defaultSessionTerminalTTL  = time.Minute
	defaultSessionSweep        = 30 * time.Second
)

// ErrMissingPinHash indicates TRANSFER_PIN_HASH is not provided.
var ErrMissingPinHash = errors.New("TRANSFER_PIN_HASH is required")

// Load reads configuration from environment variables and, when CONFIG_FILE is set,
// from a YAML file whose keys are the lower-cased variable names. Environment wins.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GRPC_ADDR", defaultGRPCAddr)
	v.SetDefault("API_TOKEN", defaultAPIToken)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	v.SetDefault("APP_ENV", defaultEnvironment)
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("SERVICE_NAME", defaultServiceName)
	v.SetDefault("DB_CONN_STR", "")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "transferauth")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TRANSFER_PIN_HASH", "")
	v.SetDefault("TRANSFER_POLICY", defaultPolicy)
	v.SetDefault("TRANSFER_MIN_AMOUNT", defaultMinAmount)
	v.SetDefault("TRANSFER_MAX_AMOUNT", defaultMaxAmount)
	v.SetDefault("TRANSFER_ENFORCE_LIMITS", true)
	v.SetDefault("PIN_MAX_ATTEMPTS", defaultMaxAttempts)
	v.SetDefault("OTP_MAX_ATTEMPTS", defaultMaxAttempts)
	v.SetDefault("OTP_TTL", defaultOtpTTL)
	v.SetDefault("COLLABORATOR_TIMEOUT", defaultCollaboratorTimeout)
	v.SetDefault("TRUSTED_DEVICES", "")
	v.SetDefault("BCRYPT_COST", defaultBcryptCost)
	v.SetDefault("SESSION_IDLE_TTL", defaultSessionIdleTTL)
	v.SetDefault("SESSION_TERMINAL_TTL", defaultSessionTerminalTTL)
	v.SetDefault("SESSION_SWEEP_INTERVAL", defaultSessionSweep)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		GRPC: GRPCConfig{
			Addr:            v.GetString("GRPC_ADDR"),
			APIToken:        v.GetString("API_TOKEN"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Logging: LoggingConfig{
			Environment: v.GetString("APP_ENV"),
			Level:       v.GetString("LOG_LEVEL"),
			ServiceName: v.GetString("SERVICE_NAME"),
		},
		Database: DatabaseConfig{
			ConnStr: databaseConnStr(v),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Transfer: TransferConfig{
			PinHash:             v.GetString("TRANSFER_PIN_HASH"),
			Policy:              strings.ToLower(v.GetString("TRANSFER_POLICY")),
			EnforceLimits:       v.GetBool("TRANSFER_ENFORCE_LIMITS"),
			PinMaxAttempts:      v.GetInt("PIN_MAX_ATTEMPTS"),
			OtpMaxAttempts:      v.GetInt("OTP_MAX_ATTEMPTS"),
			OtpTTL:              v.GetDuration("OTP_TTL"),
			CollaboratorTimeout: v.GetDuration("COLLABORATOR_TIMEOUT"),
			TrustedDevices:      splitCSV(v.GetString("TRUSTED_DEVICES")),
			SessionIdleTTL:      v.GetDuration("SESSION_IDLE_TTL"),
			SessionTerminalTTL:  v.GetDuration("SESSION_TERMINAL_TTL"),
			SessionSweep:        v.GetDuration("SESSION_SWEEP_INTERVAL"),
		},
		Security: SecurityConfig{
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
	}

	if cfg.Transfer.PinHash == "" {
		return Config{}, ErrMissingPinHash
	}

	minAmount, err := decimal.NewFromString(v.GetString("TRANSFER_MIN_AMOUNT"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TRANSFER_MIN_AMOUNT: %w", err)
	}
	maxAmount, err := decimal.NewFromString(v.GetString("TRANSFER_MAX_AMOUNT"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TRANSFER_MAX_AMOUNT: %w", err)
	}
	if minAmount.GreaterThan(maxAmount) {
		return Config{}, fmt.Errorf("TRANSFER_MIN_AMOUNT %s exceeds TRANSFER_MAX_AMOUNT %s", minAmount, maxAmount)
	}
	cfg.Transfer.MinAmount = minAmount
	cfg.Transfer.MaxAmount = maxAmount

	if cfg.Transfer.PinMaxAttempts < 0 || cfg.Transfer.OtpMaxAttempts < 0 {
		return Config{}, errors.New("max attempts cannot be negative")
	}
	if cfg.Transfer.CollaboratorTimeout <= 0 {
		return Config{}, errors.New("COLLABORATOR_TIMEOUT must be positive")
	}
	if cfg.Transfer.SessionIdleTTL < 0 || cfg.Transfer.SessionTerminalTTL < 0 {
		return Config{}, errors.New("session TTLs cannot be negative")
	}
	if cfg.Transfer.SessionSweep <= 0 {
		return Config{}, errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}

	return cfg, nil
}

// databaseConnStr prefers DB_CONN_STR and otherwise builds one from DB_HOST and friends.
// No DB_HOST means no database.
func databaseConnStr(v *viper.Viper) string {
	if connStr := v.GetString("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	host := v.GetString("DB_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, v.GetString("DB_PORT"), v.GetString("DB_USER"), v.GetString("DB_PASSWORD"), v.GetString("DB_NAME"))
}

func splitCSV(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
