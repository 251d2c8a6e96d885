package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DragaoTI/auth-service/internal/geoip"
	"github.com/DragaoTI/auth-service/internal/geolog/domain"
	"github.com/DragaoTI/auth-service/internal/geolog/repository"
)

// recordTimeout bounds a single async geo write, lookup included.
const recordTimeout = 5 * time.Second

// Resolver resolves an IP to a location; nil means no geo data.
type Resolver interface {
	Lookup(ctx context.Context, ip string) *geoip.Location
}

// Recorder writes login origin entries out of band. LoginSucceeded returns
// immediately; the lookup and insert run on a background context so request
// cancellation or storage failures never reach the login path.
type Recorder struct {
	geo  Resolver
	logs repository.Repository
	log  *zap.Logger
}

// NewRecorder returns a Recorder. geo may be nil to skip lookups.
func NewRecorder(geo Resolver, logs repository.Repository, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{geo: geo, logs: logs, log: log}
}

// LoginSucceeded records the login origin in a goroutine with its own timeout.
func (r *Recorder) LoginSucceeded(userID, ip, userAgent string) {
	if r.logs == nil || ip == "" || ip == "unknown" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		r.record(ctx, userID, ip, userAgent)
	}()
}

func (r *Recorder) record(ctx context.Context, userID, ip, userAgent string) {
	e := &domain.Entry{
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Timestamp: time.Now().UTC(),
	}
	if r.geo != nil {
		if loc := r.geo.Lookup(ctx, ip); loc != nil {
			e.Country = loc.Country
			e.City = loc.City
			e.Region = loc.Region
			e.Latitude = loc.Latitude
			e.Longitude = loc.Longitude
		}
	}
	if err := r.logs.Create(ctx, e); err != nil {
		r.log.Error("geo log write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// List returns entries newest first, for the admin panel.
func (r *Recorder) List(ctx context.Context, skip, limit int) ([]*domain.Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return r.logs.List(ctx, skip, limit)
}
