package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/DragaoTI/auth-service/internal/apilog/domain"
)

const qAPILogCreate = `
INSERT INTO api_logs (id, method, path, status_code, client_host, user_agent, user_id, admin_id, processing_time_ms, tags, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11);
`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an API log repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, qAPILogCreate,
		id, e.Method, e.Path, e.StatusCode, e.ClientHost, e.UserAgent,
		e.UserID, e.AdminID, e.ProcessingTimeMS, string(tags), e.Timestamp.UTC())
	return err
}

// List builds the WHERE clause from the set filter fields and returns entries
// newest first.
func (r *PostgresRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Entry, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Method != "" {
		conds = append(conds, "method = "+arg(strings.ToUpper(f.Method)))
	}
	if f.StatusCode != 0 {
		conds = append(conds, "status_code = "+arg(f.StatusCode))
	}
	if f.PathContains != "" {
		conds = append(conds, "path LIKE "+arg("%"+f.PathContains+"%"))
	}
	if f.UserID != "" {
		conds = append(conds, "user_id = "+arg(f.UserID))
	}
	if f.AdminID != "" {
		conds = append(conds, "admin_id = "+arg(f.AdminID))
	}
	q := `SELECT id, method, path, status_code, COALESCE(client_host, ''), COALESCE(user_agent, ''),
       COALESCE(user_id::text, ''), COALESCE(admin_id::text, ''), processing_time_ms, tags, timestamp
FROM api_logs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}
	q += " ORDER BY timestamp DESC OFFSET " + arg(skip) + " LIMIT " + arg(limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		var tags []byte
		if err := rows.Scan(&e.ID, &e.Method, &e.Path, &e.StatusCode, &e.ClientHost, &e.UserAgent,
			&e.UserID, &e.AdminID, &e.ProcessingTimeMS, &tags, &e.Timestamp); err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			_ = json.Unmarshal(tags, &e.Tags)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
