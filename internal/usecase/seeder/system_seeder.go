package seeder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// Fixed UUIDs for the seeded recipients and demo user
var (
	RecipientSarahMartinez  = uuid.MustParse("00000000-0000-0000-0000-000000000101")
	RecipientJamesChen      = uuid.MustParse("00000000-0000-0000-0000-000000000102")
	RecipientDavidRodriguez = uuid.MustParse("00000000-0000-0000-0000-000000000103")
	RecipientEmilyJohnson   = uuid.MustParse("00000000-0000-0000-0000-000000000104")
	DemoUserID              = uuid.MustParse("00000000-0000-0000-0000-000000000201")
)

// DemoUserEmail is the login of the seeded profile
const DemoUserEmail = "alldavi011@gmail.com"

// SeedRecipients returns the recipients every directory starts with, in display order
func SeedRecipients() []domain.Recipient {
	return []domain.Recipient{
		{
			ID:                RecipientSarahMartinez,
			DisplayName:       "Sarah Martinez",
			Initials:          "SM",
			MaskedAccountHint: domain.MaskedHint("4821"),
			BankAccountName:   "Sarah Martinez",
			BankName:          "Wells Fargo",
			RoutingNumber:     "121000248",
			AccountNumber:     "9876543210",
		},
		{
			ID:                RecipientJamesChen,
			DisplayName:       "James Chen",
			Initials:          "JC",
			MaskedAccountHint: domain.MaskedHint("3142"),
			BankAccountName:   "James Chen",
			BankName:          "Chase Bank",
			RoutingNumber:     "322271627",
			AccountNumber:     "8765432109",
		},
		{
			ID:                RecipientDavidRodriguez,
			DisplayName:       "David Rodriguez",
			Initials:          "DR",
			MaskedAccountHint: domain.MaskedHint("7654"),
			BankAccountName:   "David Rodriguez",
			BankName:          "Bank of America",
			RoutingNumber:     "026009593",
			AccountNumber:     "7654321098",
		},
		{
			ID:                RecipientEmilyJohnson,
			DisplayName:       "Emily Johnson",
			Initials:          "EJ",
			MaskedAccountHint: domain.MaskedHint("2198"),
			BankAccountName:   "Emily Johnson",
			BankName:          "Citibank",
			RoutingNumber:     "021000089",
			AccountNumber:     "6543210987",
		},
	}
}

// DemoUser returns the seeded customer profile. It has no password until one is reset.
func DemoUser() domain.User {
	return domain.User{
		ID:            DemoUserID,
		Email:         DemoUserEmail,
		Phone:         "+12345678901",
		FirstName:     "Carlson",
		MiddleName:    "Anthony",
		LastName:      "Alan",
		DateOfBirth:   time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		AccountNumber: "00123456789",
		AccountType:   "Checking",
		Balance:       decimal.RequireFromString("5000.00"),
		Currency:      "USD",
		IsVerified:    true,
	}
}

// SystemSeeder handles seeding of the demo recipients and user
type SystemSeeder struct {
	recipientRepo domain.RecipientRepository
	userRepo      domain.UserRepository
}

// NewSystemSeeder creates a new SystemSeeder instance
func NewSystemSeeder(recipientRepo domain.RecipientRepository, userRepo domain.UserRepository) *SystemSeeder {
	return &SystemSeeder{
		recipientRepo: recipientRepo,
		userRepo:      userRepo,
	}
}

// Seed ensures the demo recipients and user exist.
// Existing records are left untouched, so seeding is safe on every start.
func (s *SystemSeeder) Seed(ctx context.Context) error {
	for _, seed := range SeedRecipients() {
		_, err := s.recipientRepo.GetByID(ctx, seed.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRecipientNotFound) {
			return err
		}

		recipient := seed
		if err := recipient.Validate(); err != nil {
			return err
		}
		if err := s.recipientRepo.Create(ctx, &recipient); err != nil {
			return err
		}
	}

	user := DemoUser()
	_, err := s.userRepo.GetByEmail(ctx, user.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	if err := user.Validate(); err != nil {
		return err
	}
	return s.userRepo.Create(ctx, &user)
}
