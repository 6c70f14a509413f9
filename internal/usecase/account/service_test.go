package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/simaogato/transferauth-backend/internal/adapter/repository/memory"
	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/resilience"
)

const demoEmail = "alldavi011@gmail.com"

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

// MockOtpDelivery is a mock implementation of OtpDelivery
type MockOtpDelivery struct {
	mock.Mock
}

func (m *MockOtpDelivery) Deliver(ctx context.Context, email string, purpose domain.OtpPurpose, code string) error {
	args := m.Called(ctx, email, purpose, code)
	return args.Error(0)
}

func demoUser() *domain.User {
	return &domain.User{
		ID:            uuid.MustParse("00000000-0000-4000-8000-0000000000a1"),
		Email:         demoEmail,
		FirstName:     "Carlson",
		LastName:      "Alan",
		AccountNumber: "00123456789",
		AccountType:   "Checking",
		Balance:       decimal.RequireFromString("5000.00"),
		Currency:      "USD",
	}
}

func newService(repo domain.UserRepository, delivery domain.OtpDelivery) *AccountService {
	s := NewAccountService(repo, memory.NewOtpStore(), delivery, Options{
		OtpTTL:     5 * time.Minute,
		BcryptCost: bcrypt.MinCost,
	})
	return s
}

func TestAccountService_GetUserByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetByEmail", mock.Anything, demoEmail).Return(demoUser(), nil)
		s := newService(repo, nil)

		res, err := s.GetUserByEmail(ctx, demoEmail)

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "Carlson Alan", res.User.FullName())
	})

	t.Run("not found is an unsuccessful result", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrUserNotFound)
		s := newService(repo, nil)

		res, err := s.GetUserByEmail(ctx, "ghost@example.com")

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Nil(t, res.User)
		assert.Equal(t, "User not found", res.Message)
	})

	t.Run("outage surfaces as service unavailable", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetByEmail", mock.Anything, demoEmail).Return(nil, errors.New("pq: connection refused"))
		s := NewAccountService(repo, memory.NewOtpStore(), nil, Options{
			Guard: resilience.NewGuard("user-data", time.Second, resilience.DefaultBreakerConfig(), nil),
		})

		_, err := s.GetUserByEmail(ctx, demoEmail)

		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	})
}

func TestAccountService_UpdateUserByEmail(t *testing.T) {
	ctx := context.Background()
	first := "Carl"
	badEmail := "not-an-email"

	tests := []struct {
		name        string
		update      domain.UserUpdate
		expectError bool
	}{
		{name: "empty update", update: domain.UserUpdate{}, expectError: true},
		{name: "invalid email", update: domain.UserUpdate{Email: &badEmail}, expectError: true},
		{name: "first name", update: domain.UserUpdate{FirstName: &first}, expectError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			updated := demoUser()
			updated.FirstName = first
			if !tt.expectError {
				repo.On("Update", mock.Anything, demoEmail, tt.update).Return(updated, nil)
			}
			s := newService(repo, nil)

			user, err := s.UpdateUserByEmail(ctx, demoEmail, tt.update)

			if tt.expectError {
				assert.ErrorIs(t, err, domain.ErrValidationFailed)
				repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Carl", user.FirstName)
			repo.AssertExpectations(t)
		})
	}
}

func TestAccountService_PasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	delivery := new(MockOtpDelivery)
	s := newService(repo, delivery)

	var delivered string
	repo.On("GetByEmail", mock.Anything, demoEmail).Return(demoUser(), nil)
	delivery.On("Deliver", mock.Anything, demoEmail, domain.OtpPurposePasswordReset, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { delivered = args.String(3) }).
		Return(nil)

	res, err := s.ForgotPassword(ctx, "  AllDavi011@gmail.com ")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, delivered, 6)

	res, err = s.ResetPassword(ctx, demoEmail, "new-secret-1")
	require.NoError(t, err)
	assert.False(t, res.Success, "reset before verification")
	assert.Equal(t, "Please verify your OTP first", res.Message)

	res, err = s.VerifyOtp(ctx, demoEmail, "12")
	require.NoError(t, err)
	assert.Equal(t, "Please enter all 6 digits", res.Message)

	wrong := "000000"
	if delivered == wrong {
		wrong = "111111"
	}
	res, err = s.VerifyOtp(ctx, demoEmail, wrong)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid OTP", res.Message)

	res, err = s.VerifyOtp(ctx, demoEmail, delivered)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = s.ResetPassword(ctx, demoEmail, "short")
	require.NoError(t, err)
	assert.False(t, res.Success)

	repo.On("UpdatePasswordHash", mock.Anything, demoEmail, mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-secret-1")) == nil
	})).Return(nil).Once()

	res, err = s.ResetPassword(ctx, demoEmail, "new-secret-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	repo.AssertExpectations(t)

	// The verified code is consumed
	res, err = s.ResetPassword(ctx, demoEmail, "another-secret")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestAccountService_ForgotPassword_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	delivery := new(MockOtpDelivery)
	repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrUserNotFound)
	s := newService(repo, delivery)

	res, err := s.ForgotPassword(ctx, "ghost@example.com")

	require.NoError(t, err)
	assert.False(t, res.Success)
	delivery.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	res, err = s.ForgotPassword(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Please enter your email", res.Message)
}

func TestAccountService_VerifyOtp_Expired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := new(MockUserRepository)
	delivery := new(MockOtpDelivery)
	repo.On("GetByEmail", mock.Anything, demoEmail).Return(demoUser(), nil)
	delivery.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	s := NewAccountService(repo, memory.NewOtpStoreWithClock(func() time.Time { return now }), delivery, Options{
		OtpTTL:     time.Minute,
		BcryptCost: bcrypt.MinCost,
	})
	s.GenerateCode = func() (string, error) { return "482913", nil }

	_, err := s.ForgotPassword(ctx, demoEmail)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	res, err := s.VerifyOtp(ctx, demoEmail, "482913")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "expired")
}

func TestTransferOtp_SendAndVerify(t *testing.T) {
	ctx := context.Background()
	delivery := new(MockOtpDelivery)
	delivery.On("Deliver", mock.Anything, demoEmail, domain.OtpPurposeTransfer, "135790").Return(nil)
	s := newService(new(MockUserRepository), delivery)
	s.GenerateCode = func() (string, error) { return "135790", nil }

	otp := s.TransferOtp()
	session := domain.NewSessionContext(demoEmail, "device-1")

	ok, err := otp.VerifyOtp(ctx, session, "135790")
	require.NoError(t, err)
	assert.False(t, ok, "no code issued yet")

	require.NoError(t, otp.SendOtp(ctx, session))

	ok, err = otp.VerifyOtp(ctx, session, "999999")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = otp.VerifyOtp(ctx, session, "135790")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = otp.VerifyOtp(ctx, session, "135790")
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")
}

func TestTransferOtp_SessionsDoNotShareCodes(t *testing.T) {
	ctx := context.Background()
	delivery := new(MockOtpDelivery)
	delivery.On("Deliver", mock.Anything, demoEmail, domain.OtpPurposeTransfer, mock.Anything).Return(nil)
	s := newService(new(MockUserRepository), delivery)
	codes := []string{"111111", "222222"}
	s.GenerateCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	otp := s.TransferOtp()
	first := domain.NewSessionContext(demoEmail, "device-1")
	second := domain.NewSessionContext(demoEmail, "device-2")

	require.NoError(t, otp.SendOtp(ctx, first))
	require.NoError(t, otp.SendOtp(ctx, second))

	ok, err := otp.VerifyOtp(ctx, first, "222222")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = otp.VerifyOtp(ctx, first, "111111")
	require.NoError(t, err)
	assert.True(t, ok, "a resend in another session keeps this session's code")

	ok, err = otp.VerifyOtp(ctx, second, "222222")
	require.NoError(t, err)
	assert.True(t, ok)
	delivery.AssertNumberOfCalls(t, "Deliver", 2)
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := randomCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.True(t, domain.IsDigits(code))
	}
}
