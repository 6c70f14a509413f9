package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/transferauth-backend/internal/domain"
)

// recipientRepository implements domain.RecipientRepository
type recipientRepository struct {
	mu    sync.RWMutex
	order []uuid.UUID
	byID  map[uuid.UUID]domain.Recipient
}

// NewRecipientRepository creates an empty in-memory recipient repository
func NewRecipientRepository() domain.RecipientRepository {
	return &recipientRepository{
		byID: make(map[uuid.UUID]domain.Recipient),
	}
}

// List returns copies of all recipients in insertion order
func (r *recipientRepository) List(ctx context.Context) ([]*domain.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Recipient, 0, len(r.order))
	for _, id := range r.order {
		rec := r.byID[id]
		out = append(out, &rec)
	}
	return out, nil
}

// Create stores a copy of the recipient
func (r *recipientRepository) Create(ctx context.Context, recipient *domain.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[recipient.ID]; exists {
		return fmt.Errorf("recipient %s already exists", recipient.ID)
	}
	r.byID[recipient.ID] = *recipient
	r.order = append(r.order, recipient.ID)
	return nil
}

// GetByID returns a copy of the recipient
func (r *recipientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("recipient %s: %w", id, domain.ErrRecipientNotFound)
	}
	return &rec, nil
}
