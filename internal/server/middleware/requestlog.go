package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apilogdomain "github.com/DragaoTI/auth-service/internal/apilog/domain"
	"github.com/DragaoTI/auth-service/internal/obs"
	"github.com/DragaoTI/auth-service/internal/security"
)

// APIRecorder receives one entry per served request, after the response.
type APIRecorder interface {
	Record(e *apilogdomain.Entry)
}

// statusWriter captures the status code written downstream.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RequestLog observes every request: a zap line, prometheus instruments, and
// an API log entry recorded out of band. The bearer token is decoded on a
// best-effort basis only to attribute the entry; it grants nothing here.
func RequestLog(codec *security.Codec, recorder APIRecorder, metrics *obs.Metrics, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)

			if metrics != nil {
				metrics.Observe(r.Method, r.URL.Path, sw.status, elapsed)
			}
			log.Debug("request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("elapsed", elapsed),
			)
			if recorder == nil {
				return
			}
			userID, adminID := tokenSubjects(codec, BearerToken(r))
			recorder.Record(&apilogdomain.Entry{
				Method:           r.Method,
				Path:             r.URL.Path,
				StatusCode:       sw.status,
				ClientHost:       ClientIP(r),
				UserAgent:        r.UserAgent(),
				UserID:           userID,
				AdminID:          adminID,
				ProcessingTimeMS: float64(elapsed.Microseconds()) / 1000.0,
				Timestamp:        start.UTC(),
			})
		})
	}
}

// tokenSubjects attributes the request to an administrator or a user from the
// bearer token, if one verifies.
func tokenSubjects(codec *security.Codec, token string) (userID, adminID string) {
	if codec == nil || token == "" {
		return "", ""
	}
	if claims, err := codec.Verify(token, security.KindAdminAccess); err == nil {
		return "", claims.Subject
	}
	if claims, err := codec.Verify(token, security.KindAccess); err == nil {
		return claims.Subject, ""
	}
	return "", ""
}

// ClientIP returns the request origin address, preferring X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
