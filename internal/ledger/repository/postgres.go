package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DragaoTI/auth-service/internal/ledger/domain"
	"github.com/DragaoTI/auth-service/internal/security"
)

const (
	qStore = `
INSERT INTO refresh_tokens (id, owner_id, token_hash, issued_at, expires_at, revoked, parent_token_hash)
VALUES ($1, $2, $3, $4, $5, FALSE, NULLIF($6, ''));
`
	qFindByHash = `
SELECT id, owner_id, token_hash, issued_at, expires_at, revoked, COALESCE(parent_token_hash, '')
FROM refresh_tokens
WHERE token_hash = $1;
`
	qMarkUsed = `
UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1 AND revoked = FALSE;
`
	qRevokeByHash = `
UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1;
`
	qRevokeAllForOwner = `
UPDATE refresh_tokens SET revoked = TRUE WHERE owner_id = $1 AND revoked = FALSE;
`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a ledger repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Store inserts a record for rawToken owned by ownerID. Only the SHA-256 hash
// of the token (and of parentRaw, when set) is persisted.
func (r *PostgresRepository) Store(ctx context.Context, ownerID, rawToken string, expiresAt time.Time, parentRaw string) error {
	parentHash := ""
	if parentRaw != "" {
		parentHash = security.HashRefreshToken(parentRaw)
	}
	_, err := r.db.ExecContext(ctx, qStore,
		uuid.NewString(),
		ownerID,
		security.HashRefreshToken(rawToken),
		time.Now().UTC(),
		expiresAt.UTC(),
		parentHash,
	)
	return err
}

// FindByRaw returns the record whose hash matches rawToken, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindByRaw(ctx context.Context, rawToken string) (*domain.Record, error) {
	var rec domain.Record
	err := r.db.QueryRowContext(ctx, qFindByHash, security.HashRefreshToken(rawToken)).Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.TokenHash,
		&rec.IssuedAt,
		&rec.ExpiresAt,
		&rec.Revoked,
		&rec.ParentTokenHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// MarkUsed revokes the record by id unless already revoked. The WHERE clause
// makes this a compare-and-set: of two concurrent callers exactly one sees true.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, qMarkUsed, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeByRaw revokes the record matching rawToken. Revoking a missing or
// already-revoked token is a no-op.
func (r *PostgresRepository) RevokeByRaw(ctx context.Context, rawToken string) error {
	_, err := r.db.ExecContext(ctx, qRevokeByHash, security.HashRefreshToken(rawToken))
	return err
}

// RevokeAllForOwner revokes every active record owned by ownerID.
func (r *PostgresRepository) RevokeAllForOwner(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, qRevokeAllForOwner, ownerID)
	return err
}
