package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DragaoTI/auth-service/internal/admin/domain"
)

const (
	qAdminGetByID = `
SELECT id, username, password_hash, COALESCE(client_fingerprint_hash, ''), status, last_login_at, created_at, updated_at
FROM administrators
WHERE id = $1;
`
	qAdminGetByUsername = `
SELECT id, username, password_hash, COALESCE(client_fingerprint_hash, ''), status, last_login_at, created_at, updated_at
FROM administrators
WHERE username = $1;
`
	qAdminCreate = `
INSERT INTO administrators (id, username, password_hash, client_fingerprint_hash, status, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $6);
`
	qAdminUpdate = `
UPDATE administrators
SET username = $2, password_hash = $3, client_fingerprint_hash = NULLIF($4, ''), status = $5, updated_at = $6
WHERE id = $1;
`
	qAdminUpdateFingerprint = `
UPDATE administrators SET client_fingerprint_hash = NULLIF($2, ''), updated_at = NOW() WHERE id = $1;
`
	qAdminUpdateLastLogin = `
UPDATE administrators SET last_login_at = $2, updated_at = $2 WHERE id = $1;
`
	qAdminList = `
SELECT id, username, password_hash, COALESCE(client_fingerprint_hash, ''), status, last_login_at, created_at, updated_at
FROM administrators
ORDER BY username
OFFSET $1 LIMIT $2;
`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an administrator repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Administrator, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, qAdminGetByID, id))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Administrator, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, qAdminGetByUsername, username))
}

func (r *PostgresRepository) Create(ctx context.Context, a *domain.Administrator) error {
	_, err := r.db.ExecContext(ctx, qAdminCreate,
		a.ID, a.Username, a.PasswordHash, a.FingerprintHash, string(a.Status), a.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) Update(ctx context.Context, a *domain.Administrator) error {
	_, err := r.db.ExecContext(ctx, qAdminUpdate,
		a.ID, a.Username, a.PasswordHash, a.FingerprintHash, string(a.Status), time.Now().UTC())
	return err
}

func (r *PostgresRepository) UpdateFingerprint(ctx context.Context, id, fingerprintHash string) error {
	res, err := r.db.ExecContext(ctx, qAdminUpdateFingerprint, id, fingerprintHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("administrator not found")
	}
	return nil
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, qAdminUpdateLastLogin, id, at.UTC())
	return err
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]*domain.Administrator, error) {
	rows, err := r.db.QueryContext(ctx, qAdminList, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Administrator
	for rows.Next() {
		a, err := scanAdmin(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*domain.Administrator, error) {
	a, err := scanAdmin(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanAdmin(scan func(dest ...any) error) (*domain.Administrator, error) {
	var a domain.Administrator
	var status string
	var lastLogin sql.NullTime
	if err := scan(&a.ID, &a.Username, &a.PasswordHash, &a.FingerprintHash,
		&status, &lastLogin, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = domain.Status(status)
	if lastLogin.Valid {
		a.LastLoginAt = &lastLogin.Time
	}
	return &a, nil
}
