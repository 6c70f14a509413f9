package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
	"github.com/simaogato/transferauth-backend/internal/resilience"
)

const (
	codeLength        = 6
	minPasswordLength = 8
)

// Result is the success flag and user-facing message returned by the account actions
type Result struct {
	Success bool
	Message string
}

// UserResult is the answer to a profile lookup
type UserResult struct {
	Success bool
	User    *domain.User
	Message string
}

// Options tunes an AccountService
type Options struct {
	OtpTTL     time.Duration
	BcryptCost int
	// Guard bounds repository, store and delivery calls; nil calls them directly
	Guard  *resilience.Guard
	Logger *zap.Logger
}

// AccountService implements the user-data and OTP collaborators:
// profile lookup and update, and the password-reset OTP flow.
type AccountService struct {
	UserRepo domain.UserRepository
	OtpStore domain.OtpStore
	Delivery domain.OtpDelivery

	// GenerateCode produces a fresh numeric one-time code
	GenerateCode func() (string, error)

	otpTTL     time.Duration
	bcryptCost int
	guard      *resilience.Guard
	logger     *zap.Logger
}

// NewAccountService creates a new AccountService instance
func NewAccountService(
	userRepo domain.UserRepository,
	otpStore domain.OtpStore,
	delivery domain.OtpDelivery,
	opts Options,
) *AccountService {
	if opts.OtpTTL <= 0 {
		opts.OtpTTL = 5 * time.Minute
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		UserRepo:     userRepo,
		OtpStore:     otpStore,
		Delivery:     delivery,
		GenerateCode: randomCode,
		otpTTL:       opts.OtpTTL,
		bcryptCost:   opts.BcryptCost,
		guard:        opts.Guard,
		logger:       logging.OrNop(opts.Logger),
	}
}

// GetUserByEmail fetches a profile by email.
// An unknown user is an unsuccessful result, not an error.
func (s *AccountService) GetUserByEmail(ctx context.Context, email string) (UserResult, error) {
	user, err := guarded(ctx, s.guard, func(ctx context.Context) (*domain.User, error) {
		return s.UserRepo.GetByEmail(ctx, email)
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		return UserResult{Success: false, Message: "User not found"}, nil
	}
	if err != nil {
		return UserResult{}, err
	}
	return UserResult{Success: true, User: user, Message: "User fetched successfully"}, nil
}

// UpdateUserByEmail applies a partial update of first name, last name, phone and email
func (s *AccountService) UpdateUserByEmail(ctx context.Context, email string, update domain.UserUpdate) (*domain.User, error) {
	if update.IsEmpty() {
		return nil, domain.NewValidationError("Nothing To Update", "fields", "at least one field must be provided")
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	user, err := guarded(ctx, s.guard, func(ctx context.Context) (*domain.User, error) {
		return s.UserRepo.Update(ctx, email, update)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user profile updated", zap.String("user_id", user.ID.String()))
	return user, nil
}

// ForgotPassword issues a password-reset code to the user's email
// Logic:
//  1. Look up the user; unknown emails get an unsuccessful result
//  2. Generate a 6-digit code and store its bcrypt hash with the OTP TTL
//  3. Deliver the plain code through the mail provider
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (Result, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return Result{Success: false, Message: "Please enter your email"}, nil
	}

	res, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return Result{}, err
	}
	if !res.Success {
		return Result{Success: false, Message: "No account found with that email"}, nil
	}

	if err := s.issue(ctx, s.guard, domain.OtpKey{Email: email, Purpose: domain.OtpPurposePasswordReset}); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "OTP sent to your email"}, nil
}

// VerifyOtp checks a 6-digit password-reset code and marks it verified
func (s *AccountService) VerifyOtp(ctx context.Context, email, otp string) (Result, error) {
	otp = strings.TrimSpace(otp)
	if len(otp) != codeLength || !domain.IsDigits(otp) {
		return Result{Success: false, Message: "Please enter all 6 digits"}, nil
	}

	key := domain.OtpKey{Email: email, Purpose: domain.OtpPurposePasswordReset}
	ok, err := s.check(ctx, s.guard, key, otp)
	if errors.Is(err, domain.ErrOtpNotFound) {
		return Result{Success: false, Message: "OTP has expired. Please request a new one"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Success: false, Message: "Invalid OTP"}, nil
	}

	if err := guardedDo(ctx, s.guard, func(ctx context.Context) error {
		return s.OtpStore.MarkVerified(ctx, key)
	}); err != nil {
		if errors.Is(err, domain.ErrOtpNotFound) {
			return Result{Success: false, Message: "OTP has expired. Please request a new one"}, nil
		}
		return Result{}, err
	}
	return Result{Success: true, Message: "OTP verified successfully"}, nil
}

// ResetPassword stores a new password hash once the reset code has been verified
func (s *AccountService) ResetPassword(ctx context.Context, email, newPassword string) (Result, error) {
	if newPassword == "" {
		return Result{Success: false, Message: "Please enter a new password"}, nil
	}
	if len(newPassword) < minPasswordLength {
		return Result{Success: false, Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength)}, nil
	}

	key := domain.OtpKey{Email: email, Purpose: domain.OtpPurposePasswordReset}
	record, err := guarded(ctx, s.guard, func(ctx context.Context) (*domain.OtpRecord, error) {
		return s.OtpStore.Get(ctx, key)
	})
	if errors.Is(err, domain.ErrOtpNotFound) {
		return Result{Success: false, Message: "Please verify your OTP first"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if !record.Verified {
		return Result{Success: false, Message: "Please verify your OTP first"}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return Result{}, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := guardedDo(ctx, s.guard, func(ctx context.Context) error {
		return s.UserRepo.UpdatePasswordHash(ctx, email, string(hash))
	}); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Result{Success: false, Message: "User not found"}, nil
		}
		return Result{}, err
	}

	if err := guardedDo(ctx, s.guard, func(ctx context.Context) error {
		return s.OtpStore.Delete(ctx, key)
	}); err != nil {
		s.logger.Warn("failed to delete used reset code", zap.Error(err))
	}

	s.logger.Info("password reset", zap.String("email_domain", emailDomain(email)))
	return Result{Success: true, Message: "Password reset successfully"}, nil
}

// issue generates, stores and delivers a code for key
func (s *AccountService) issue(ctx context.Context, g *resilience.Guard, key domain.OtpKey) error {
	code, err := s.GenerateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	if err := guardedDo(ctx, g, func(ctx context.Context) error {
		return s.OtpStore.Save(ctx, key, domain.OtpRecord{CodeHash: string(hash)}, s.otpTTL)
	}); err != nil {
		return err
	}

	if err := guardedDo(ctx, g, func(ctx context.Context) error {
		return s.Delivery.Deliver(ctx, key.Email, key.Purpose, code)
	}); err != nil {
		return err
	}

	s.logger.Info("one-time code issued",
		zap.String("purpose", string(key.Purpose)),
		zap.String("email_domain", emailDomain(key.Email)))
	return nil
}

// check compares code against the stored hash for key
func (s *AccountService) check(ctx context.Context, g *resilience.Guard, key domain.OtpKey, code string) (bool, error) {
	record, err := guarded(ctx, g, func(ctx context.Context) (*domain.OtpRecord, error) {
		return s.OtpStore.Get(ctx, key)
	})
	if err != nil {
		return false, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare code: %w", err)
	}
}

func guarded[T any](ctx context.Context, g *resilience.Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	return resilience.Call(ctx, g, fn)
}

func guardedDo(ctx context.Context, g *resilience.Guard, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	return g.Do(ctx, fn)
}

// randomCode returns a uniformly random 6-digit code, leading zeros allowed
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func emailDomain(email string) string {
	if _, domainPart, ok := strings.Cut(email, "@"); ok {
		return domainPart
	}
	return ""
}
