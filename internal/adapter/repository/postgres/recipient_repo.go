package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// recipientRepository implements domain.RecipientRepository
type recipientRepository struct {
	db *DB
}

// NewRecipientRepository creates a new recipient repository
func NewRecipientRepository(db *DB) domain.RecipientRepository {
	return &recipientRepository{db: db}
}

const recipientColumns = `id, display_name, initials, email, phone, masked_account_hint,
	bank_account_name, bank_name, routing_number, account_number`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipient(row rowScanner) (*domain.Recipient, error) {
	var r domain.Recipient
	err := row.Scan(
		&r.ID,
		&r.DisplayName,
		&r.Initials,
		&r.Email,
		&r.Phone,
		&r.MaskedAccountHint,
		&r.BankAccountName,
		&r.BankName,
		&r.RoutingNumber,
		&r.AccountNumber,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List retrieves all recipients in insertion order
func (r *recipientRepository) List(ctx context.Context) ([]*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	recipients := make([]*domain.Recipient, 0)
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, recipient)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}

	return recipients, nil
}

// Create creates a new recipient
func (r *recipientRepository) Create(ctx context.Context, recipient *domain.Recipient) error {
	query := `
		INSERT INTO recipients (` + recipientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		recipient.ID,
		recipient.DisplayName,
		recipient.Initials,
		recipient.Email,
		recipient.Phone,
		recipient.MaskedAccountHint,
		recipient.BankAccountName,
		recipient.BankName,
		recipient.RoutingNumber,
		recipient.AccountNumber,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("recipient %s already exists", recipient.ID)
		}
		return fmt.Errorf("failed to create recipient: %w", err)
	}

	return nil
}

// GetByID retrieves a recipient by its ID
func (r *recipientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id = $1`

	recipient, err := scanRecipient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recipient %s: %w", id, domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("failed to get recipient by ID: %w", err)
	}

	return recipient, nil
}
