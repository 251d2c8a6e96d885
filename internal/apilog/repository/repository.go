package repository

import (
	"context"

	"github.com/DragaoTI/auth-service/internal/apilog/domain"
)

// Repository defines persistence for API request logs.
type Repository interface {
	// Create persists the entry.
	Create(ctx context.Context, e *domain.Entry) error
	// List returns entries matching the filter, newest first.
	List(ctx context.Context, f domain.Filter) ([]*domain.Entry, error)
}
