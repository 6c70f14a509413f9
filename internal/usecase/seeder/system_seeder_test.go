package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// MockRecipientRepository is a mock implementation of RecipientRepository
type MockRecipientRepository struct {
	mock.Mock
}

func (m *MockRecipientRepository) List(ctx context.Context) ([]*domain.Recipient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Recipient), args.Error(1)
}

func (m *MockRecipientRepository) Create(ctx context.Context, recipient *domain.Recipient) error {
	args := m.Called(ctx, recipient)
	return args.Error(0)
}

func (m *MockRecipientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recipient), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, email string, update domain.UserUpdate) (*domain.User, error) {
	args := m.Called(ctx, email, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	args := m.Called(ctx, email, passwordHash)
	return args.Error(0)
}

func TestSystemSeeder_Seed_AllMissing(t *testing.T) {
	ctx := context.Background()
	recipients := new(MockRecipientRepository)
	users := new(MockUserRepository)
	seeder := NewSystemSeeder(recipients, users)

	recipients.On("GetByID", ctx, mock.Anything).Return(nil, domain.ErrRecipientNotFound)
	recipients.On("Create", ctx, mock.MatchedBy(func(r *domain.Recipient) bool {
		return r.ID == RecipientSarahMartinez &&
			r.DisplayName == "Sarah Martinez" &&
			r.MaskedAccountHint == "•••• 4821" &&
			r.RoutingNumber == "121000248" &&
			r.AccountNumber == "9876543210"
	})).Return(nil)
	recipients.On("Create", ctx, mock.MatchedBy(func(r *domain.Recipient) bool {
		return r.ID != RecipientSarahMartinez && r.IsTransferReady()
	})).Return(nil)

	users.On("GetByEmail", ctx, DemoUserEmail).Return(nil, domain.ErrUserNotFound)
	users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == DemoUserID &&
			u.FullName() == "Carlson Alan" &&
			u.AccountNumber == "00123456789" &&
			u.Balance.String() == "5000" &&
			u.PasswordHash == ""
	})).Return(nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	recipients.AssertNumberOfCalls(t, "Create", 4)
	users.AssertNumberOfCalls(t, "Create", 1)
}

func TestSystemSeeder_Seed_AllExist(t *testing.T) {
	ctx := context.Background()
	recipients := new(MockRecipientRepository)
	users := new(MockUserRepository)
	seeder := NewSystemSeeder(recipients, users)

	for _, r := range SeedRecipients() {
		r := r
		recipients.On("GetByID", ctx, r.ID).Return(&r, nil)
	}
	demo := DemoUser()
	users.On("GetByEmail", ctx, DemoUserEmail).Return(&demo, nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	recipients.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSystemSeeder_Seed_PartialRecipientsExist(t *testing.T) {
	ctx := context.Background()
	recipients := new(MockRecipientRepository)
	users := new(MockUserRepository)
	seeder := NewSystemSeeder(recipients, users)

	seeds := SeedRecipients()
	recipients.On("GetByID", ctx, RecipientSarahMartinez).Return(&seeds[0], nil)
	recipients.On("GetByID", ctx, RecipientJamesChen).Return(&seeds[1], nil)
	recipients.On("GetByID", ctx, RecipientDavidRodriguez).Return(nil, domain.ErrRecipientNotFound)
	recipients.On("GetByID", ctx, RecipientEmilyJohnson).Return(nil, domain.ErrRecipientNotFound)
	recipients.On("Create", ctx, mock.Anything).Return(nil)
	demo := DemoUser()
	users.On("GetByEmail", ctx, DemoUserEmail).Return(&demo, nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	recipients.AssertNumberOfCalls(t, "Create", 2)
}

func TestSystemSeeder_Seed_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	recipients := new(MockRecipientRepository)
	users := new(MockUserRepository)
	seeder := NewSystemSeeder(recipients, users)

	recipients.On("GetByID", ctx, RecipientSarahMartinez).Return(nil, errors.New("connection refused"))

	err := seeder.Seed(ctx)

	assert.Error(t, err)
	recipients.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestSeedRecipients_InitialsMatchNames(t *testing.T) {
	for _, r := range SeedRecipients() {
		assert.Equal(t, domain.InitialsFor(r.DisplayName), r.Initials)
		assert.NoError(t, r.Validate())
	}
}
