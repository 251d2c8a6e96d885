package repository

import (
	"context"
	"time"

	"github.com/DragaoTI/auth-service/internal/ledger/domain"
)

// Repository defines persistence for the refresh token ledger. Implementations
// receive raw tokens and must hash them before touching storage; raw tokens
// never reach the database.
type Repository interface {
	// Store inserts a ledger record for rawToken owned by ownerID. parentRaw is
	// the raw token being replaced during rotation, or "" at login.
	Store(ctx context.Context, ownerID, rawToken string, expiresAt time.Time, parentRaw string) error
	// FindByRaw returns the record whose hash matches rawToken, or nil when no
	// such record exists. Error only on database failure.
	FindByRaw(ctx context.Context, rawToken string) (*domain.Record, error)
	// MarkUsed revokes the record by id only if it is not already revoked.
	// Returns false when the row was already revoked; the caller losing this
	// compare-and-set must treat the presentation as a replay.
	MarkUsed(ctx context.Context, id string) (bool, error)
	// RevokeByRaw revokes the record matching rawToken. Idempotent; revoking a
	// missing or already-revoked token is not an error.
	RevokeByRaw(ctx context.Context, rawToken string) error
	// RevokeAllForOwner revokes every active record owned by ownerID.
	// Idempotent; error only on database failure.
	RevokeAllForOwner(ctx context.Context, ownerID string) error
}
