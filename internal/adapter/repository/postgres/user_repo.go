package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// userRepository implements domain.UserRepository
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) domain.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, phone, first_name, middle_name, last_name, date_of_birth,
	account_number, account_type, balance, currency, is_verified, password_hash`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var dob sql.NullTime
	var balanceStr string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Phone,
		&u.FirstName,
		&u.MiddleName,
		&u.LastName,
		&dob,
		&u.AccountNumber,
		&u.AccountType,
		&balanceStr,
		&u.Currency,
		&u.IsVerified,
		&u.PasswordHash,
	)
	if err != nil {
		return nil, err
	}

	if dob.Valid {
		u.DateOfBirth = dob.Time
	}

	// Parse balance (DECIMAL)
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	u.Balance = balance

	return &u, nil
}

// GetByEmail retrieves a user by normalized email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, r.db.DB, email)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *userRepository) get(ctx context.Context, q queryRower, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(q.QueryRowContext(ctx, query, domain.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var dob interface{}
	if !user.DateOfBirth.IsZero() {
		dob = user.DateOfBirth
	}
	currency := user.Currency
	if currency == "" {
		currency = "USD"
	}

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		domain.NormalizeEmail(user.Email),
		user.Phone,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		dob,
		user.AccountNumber,
		user.AccountType,
		user.Balance.String(),
		currency,
		user.IsVerified,
		user.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s already exists", domain.NormalizeEmail(user.Email))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Update applies a partial update inside a transaction and returns the stored profile
func (r *userRepository) Update(ctx context.Context, email string, update domain.UserUpdate) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	user, err := r.get(ctx, tx, email)
	if err != nil {
		return nil, err
	}
	update.Apply(user)

	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, phone = $3, email = $4
		WHERE id = $5
	`
	if _, err := tx.ExecContext(ctx, query, user.FirstName, user.LastName, user.Phone, user.Email, user.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.NewValidationError("Email Taken", "email", "email address is already in use")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user update: %w", err)
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *userRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE email = $2`

	result, err := r.db.ExecContext(ctx, query, passwordHash, domain.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", email, domain.ErrUserNotFound)
	}

	return nil
}
