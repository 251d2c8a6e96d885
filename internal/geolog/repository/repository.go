package repository

import (
	"context"

	"github.com/DragaoTI/auth-service/internal/geolog/domain"
)

// Repository defines persistence for login origin records.
type Repository interface {
	// Create persists the entry.
	Create(ctx context.Context, e *domain.Entry) error
	// List returns entries newest first.
	List(ctx context.Context, offset, limit int) ([]*domain.Entry, error)
}
