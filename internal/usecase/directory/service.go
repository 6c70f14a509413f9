package directory

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
)

// AddRecipientInput represents the input for adding a recipient.
// Only DisplayName is required; the bank fields must be filled before the
// recipient can be applied to a transfer draft.
type AddRecipientInput struct {
	DisplayName     string
	Email           string
	Phone           string
	BankAccountName string
	BankName        string
	RoutingNumber   string
	AccountNumber   string
}

// DirectoryService is the registry of transfer recipients
type DirectoryService struct {
	RecipientRepo domain.RecipientRepository

	// DisplaySuffix produces the 4-digit masked-hint suffix for new recipients
	DisplaySuffix func() (string, error)

	logger *zap.Logger
}

// NewDirectoryService creates a new DirectoryService instance
func NewDirectoryService(recipientRepo domain.RecipientRepository, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		RecipientRepo: recipientRepo,
		DisplaySuffix: randomDisplaySuffix,
		logger:        logging.OrNop(logger),
	}
}

// List returns every recipient in insertion order
func (s *DirectoryService) List(ctx context.Context) ([]*domain.Recipient, error) {
	recipients, err := s.RecipientRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	return recipients, nil
}

// Add registers a new recipient
// Logic:
//  1. Trim the input and reject an empty display name
//  2. Generate a fresh ID, initials and a random masked hint
//  3. Persist and return the stored recipient
func (s *DirectoryService) Add(ctx context.Context, input AddRecipientInput) (*domain.Recipient, error) {
	suffix, err := s.DisplaySuffix()
	if err != nil {
		return nil, fmt.Errorf("failed to generate display suffix: %w", err)
	}

	name := strings.TrimSpace(input.DisplayName)
	recipient := &domain.Recipient{
		ID:                uuid.New(),
		DisplayName:       name,
		Initials:          domain.InitialsFor(name),
		Email:             strings.TrimSpace(input.Email),
		Phone:             strings.TrimSpace(input.Phone),
		MaskedAccountHint: domain.MaskedHint(suffix),
		BankAccountName:   strings.TrimSpace(input.BankAccountName),
		BankName:          strings.TrimSpace(input.BankName),
		RoutingNumber:     strings.TrimSpace(input.RoutingNumber),
		AccountNumber:     strings.TrimSpace(input.AccountNumber),
	}

	if err := recipient.Validate(); err != nil {
		return nil, err
	}

	if err := s.RecipientRepo.Create(ctx, recipient); err != nil {
		return nil, fmt.Errorf("failed to create recipient: %w", err)
	}

	s.logger.Info("recipient added",
		zap.String("recipient_id", recipient.ID.String()),
		zap.String("hint", recipient.MaskedAccountHint),
		zap.Bool("transfer_ready", recipient.IsTransferReady()))

	return recipient, nil
}

// Find returns the recipient with the given ID, or ErrRecipientNotFound
func (s *DirectoryService) Find(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	return s.RecipientRepo.GetByID(ctx, id)
}

// randomDisplaySuffix returns a random 4-digit string in [1000, 9999].
// It is cosmetic and deliberately unrelated to the real account number.
func randomDisplaySuffix() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 1000+n.Int64()), nil
}
