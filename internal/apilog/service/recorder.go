package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DragaoTI/auth-service/internal/apilog/domain"
	"github.com/DragaoTI/auth-service/internal/apilog/repository"
)

// recordTimeout bounds a single async log write.
const recordTimeout = 5 * time.Second

// Recorder writes API request logs after the response has been sent. Record
// returns immediately; the insert runs on a background context so a slow or
// failing log store never delays or breaks a response.
type Recorder struct {
	logs repository.Repository
	log  *zap.Logger
}

// NewRecorder returns a Recorder.
func NewRecorder(logs repository.Repository, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{logs: logs, log: log}
}

// Record tags the entry by route and status and writes it asynchronously.
func (r *Recorder) Record(e *domain.Entry) {
	if r.logs == nil || e == nil {
		return
	}
	e.Tags = buildTags(e)
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.logs.Create(ctx, e); err != nil {
			r.log.Error("api log write failed", zap.String("path", e.Path), zap.Error(err))
		}
	}()
}

// List returns entries matching the filter, newest first.
func (r *Recorder) List(ctx context.Context, f domain.Filter) ([]*domain.Entry, error) {
	return r.logs.List(ctx, f)
}

func buildTags(e *domain.Entry) []string {
	tags := []string{"api_request"}
	switch {
	case strings.HasPrefix(e.Path, "/admin-panel"):
		tags = append(tags, "admin_panel")
	case strings.HasPrefix(e.Path, "/auth"):
		tags = append(tags, "user_auth")
	}
	switch {
	case e.StatusCode >= 500:
		tags = append(tags, "error", "critical")
	case e.StatusCode >= 400:
		tags = append(tags, "error", "warning")
	}
	return tags
}
