package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/DragaoTI/auth-service/internal/geolog/domain"
)

const (
	qGeoCreate = `
INSERT INTO geo_login_logs (id, user_id, ip_address, user_agent, country, city, region, latitude, longitude, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	qGeoList = `
SELECT id, user_id, ip_address, COALESCE(user_agent, ''), COALESCE(country, ''), COALESCE(city, ''),
       COALESCE(region, ''), COALESCE(latitude, 0), COALESCE(longitude, 0), timestamp
FROM geo_login_logs
ORDER BY timestamp DESC
OFFSET $1 LIMIT $2;
`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a geo log repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, qGeoCreate,
		id, e.UserID, e.IPAddress, e.UserAgent,
		e.Country, e.City, e.Region, e.Latitude, e.Longitude, e.Timestamp.UTC())
	return err
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, qGeoList, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.IPAddress, &e.UserAgent,
			&e.Country, &e.City, &e.Region, &e.Latitude, &e.Longitude, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
