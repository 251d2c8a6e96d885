package repository

import (
	"context"
	"time"

	"github.com/DragaoTI/auth-service/internal/admin/domain"
)

// Repository defines persistence for administrator accounts.
type Repository interface {
	// GetByID returns the administrator for id, or nil when not found.
	GetByID(ctx context.Context, id string) (*domain.Administrator, error)
	// GetByUsername returns the administrator for username, or nil when not found.
	GetByUsername(ctx context.Context, username string) (*domain.Administrator, error)
	// Create persists the administrator. ID must be set.
	Create(ctx context.Context, a *domain.Administrator) error
	// Update persists username, password hash, fingerprint hash, and status.
	Update(ctx context.Context, a *domain.Administrator) error
	// UpdateFingerprint binds the account to a fingerprint hash.
	UpdateFingerprint(ctx context.Context, id, fingerprintHash string) error
	// UpdateLastLogin records the last successful panel login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// List returns administrators ordered by username.
	List(ctx context.Context, offset, limit int) ([]*domain.Administrator, error)
}
