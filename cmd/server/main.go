package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"

	grpcadapter "github.com/simaogato/transferauth-backend/internal/adapter/grpc"
	"github.com/simaogato/transferauth-backend/internal/adapter/notify"
	"github.com/simaogato/transferauth-backend/internal/adapter/repository/memory"
	"github.com/simaogato/transferauth-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/transferauth-backend/internal/adapter/repository/redisstore"
	"github.com/simaogato/transferauth-backend/internal/config"
	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
	"github.com/simaogato/transferauth-backend/internal/resilience"
	"github.com/simaogato/transferauth-backend/internal/usecase/account"
	"github.com/simaogato/transferauth-backend/internal/usecase/authorization"
	"github.com/simaogato/transferauth-backend/internal/usecase/devicetrust"
	"github.com/simaogato/transferauth-backend/internal/usecase/directory"
	"github.com/simaogato/transferauth-backend/internal/usecase/passwordreset"
	"github.com/simaogato/transferauth-backend/internal/usecase/seeder"
	"github.com/simaogato/transferauth-backend/internal/usecase/verification"
)

// stores groups the repositories selected by configuration
type stores struct {
	recipients domain.RecipientRepository
	users      domain.UserRepository
	devices    domain.DeviceRegistry
	otps       domain.OtpStore
	closers    []func() error
}

func main() {
	// 1. Load configuration and build the logger
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// 2. Initialize Repositories (memory, Postgres or Redis)
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open stores", zap.Error(err))
	}
	defer st.close(logger)

	for _, fp := range cfg.Transfer.TrustedDevices {
		if err := st.devices.Register(ctx, "", fp); err != nil {
			logger.Fatal("Failed to register trusted device", zap.Error(err))
		}
	}

	// Initialize System Seeder and run it
	systemSeeder := seeder.NewSystemSeeder(st.recipients, st.users)
	if err := systemSeeder.Seed(ctx); err != nil {
		logger.Fatal("Failed to seed demo data", zap.Error(err))
	}
	logger.Info("Demo recipients and user seeded successfully")

	// 3. Initialize Services (Use Cases)
	breaker := resilience.DefaultBreakerConfig()
	timeout := cfg.Transfer.CollaboratorTimeout

	outbox := notify.NewOutbox(logger)
	accountService := account.NewAccountService(st.users, st.otps, outbox, account.Options{
		OtpTTL:     cfg.Transfer.OtpTTL,
		BcryptCost: cfg.Security.BcryptCost,
		Guard:      resilience.NewGuard("user-data", timeout, breaker, logger),
		Logger:     logger,
	})
	directoryService := directory.NewDirectoryService(st.recipients, logger)

	pinVerifier, err := verification.NewBcryptPinVerifier(cfg.Transfer.PinHash)
	if err != nil {
		logger.Fatal("Invalid TRANSFER_PIN_HASH", zap.Error(err))
	}

	policy, err := buildPolicy(cfg.Transfer)
	if err != nil {
		logger.Fatal("Invalid transfer policy", zap.Error(err))
	}

	transferOtp := accountService.TransferOtp()
	sessions := authorization.NewManager(policy, authorization.Dependencies{
		Pin:       pinVerifier,
		Otp:       transferOtp,
		OtpSender: transferOtp,
		Device: devicetrust.NewGate(
			devicetrust.RegistryPolicy{Registry: st.devices},
			resilience.NewGuard("device-trust", timeout, breaker, logger),
			logger,
		),
		Guard:  resilience.NewGuard("verification", timeout, breaker, logger),
		Logger: logger,
	}, authorization.Expiry{
		IdleTTL:     cfg.Transfer.SessionIdleTTL,
		TerminalTTL: cfg.Transfer.SessionTerminalTTL,
	}, auditOutcome(logger))

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx, cfg.Transfer.SessionSweep)

	// 4. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.GRPC.APIToken),
			grpcadapter.SessionInterceptor(),
		),
	)

	resetService := passwordreset.NewResetService(accountService,
		domain.ChallengePolicy{MaxAttempts: cfg.Transfer.OtpMaxAttempts, TTL: cfg.Transfer.OtpTTL},
		verification.Options{Logger: logger})

	grpcAdapter := grpcadapter.NewServer(directoryService, accountService, resetService, sessions, logger)
	grpcadapter.RegisterTransferAuthServer(grpcServer, grpcAdapter)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("addr", cfg.GRPC.Addr), zap.Error(err))
	}

	// Start server in a goroutine
	go func() {
		logger.Info("gRPC server listening",
			zap.String("addr", cfg.GRPC.Addr),
			zap.String("policy", policy.Name))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("Failed to serve gRPC server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, cfg.GRPC.ShutdownTimeout, logger)
}

// openStores picks Postgres when a connection string is configured and Redis when
// an address is, falling back to the in-memory stores otherwise
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{
		recipients: memory.NewRecipientRepository(),
		users:      memory.NewUserRepository(),
		devices:    memory.NewDeviceRegistry(),
		otps:       memory.NewOtpStore(),
	}

	if cfg.Database.ConnStr != "" {
		db, err := postgres.NewDB(cfg.Database.ConnStr)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			st.close(logger)
			return nil, err
		}
		st.recipients = postgres.NewRecipientRepository(db)
		st.users = postgres.NewUserRepository(db)
		st.devices = postgres.NewDeviceRegistry(db)
		logger.Info("Using Postgres repositories")
	} else {
		logger.Info("DB_HOST not set, using in-memory repositories")
	}

	if cfg.Redis.Addr != "" {
		client, err := redisstore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			st.close(logger)
			return nil, err
		}
		st.closers = append(st.closers, client.Close)
		st.otps = redisstore.NewOtpStore(client)
		logger.Info("Using Redis OTP store", zap.String("addr", cfg.Redis.Addr))
	}

	return st, nil
}

func (st *stores) close(logger *zap.Logger) {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}
	st.closers = nil
}

// buildPolicy applies the configured limits and attempt caps to the named policy
func buildPolicy(cfg config.TransferConfig) (authorization.Policy, error) {
	policy, err := authorization.ParsePolicy(cfg.Policy)
	if err != nil {
		return authorization.Policy{}, err
	}
	policy.Limits = domain.AmountLimits{
		Min:      cfg.MinAmount,
		Max:      cfg.MaxAmount,
		Enforced: cfg.EnforceLimits,
	}
	policy.Pin = domain.ChallengePolicy{MaxAttempts: cfg.PinMaxAttempts}
	policy.Otp = domain.ChallengePolicy{MaxAttempts: cfg.OtpMaxAttempts, TTL: cfg.OtpTTL}
	return policy, nil
}

// auditOutcome logs every outcome without credentials or account numbers
func auditOutcome(logger *zap.Logger) authorization.Listener {
	return func(o domain.TransferOutcome) {
		logger.Info("transfer outcome",
			zap.String("outcome_id", o.ID.String()),
			zap.String("session_id", o.SessionID.String()),
			zap.String("kind", string(o.Kind)),
			zap.String("challenge_kind", string(o.ChallengeKind)),
			zap.Bool("terminal", o.Terminal),
			zap.Strings("fields", o.ReasonFields()))
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server.
// In-flight calls get the shutdown timeout before the server is stopped hard.
func waitForShutdown(grpcServer *grpclib.Server, timeout time.Duration, logger *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("Graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}
	logger.Info("gRPC server stopped")
}
