package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// userRepository implements domain.UserRepository keyed by normalized email
type userRepository struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository() domain.UserRepository {
	return &userRepository{
		byEmail: make(map[string]domain.User),
	}
}

// GetByEmail returns a copy of the user
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrUserNotFound)
	}
	return &user, nil
}

// Create stores a copy of the user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NormalizeEmail(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return fmt.Errorf("user %s already exists", key)
	}
	stored := *user
	stored.Email = key
	r.byEmail[key] = stored
	return nil
}

// Update applies a partial update, re-keying the user when the email changes
func (r *userRepository) Update(ctx context.Context, email string, update domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NormalizeEmail(email)
	user, ok := r.byEmail[key]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrUserNotFound)
	}

	update.Apply(&user)
	if user.Email != key {
		if _, taken := r.byEmail[user.Email]; taken {
			return nil, domain.NewValidationError("Email Taken", "email", "email address is already in use")
		}
		delete(r.byEmail, key)
	}
	r.byEmail[user.Email] = user
	return &user, nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *userRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NormalizeEmail(email)
	user, ok := r.byEmail[key]
	if !ok {
		return fmt.Errorf("user %s: %w", email, domain.ErrUserNotFound)
	}
	user.PasswordHash = passwordHash
	r.byEmail[key] = user
	return nil
}
