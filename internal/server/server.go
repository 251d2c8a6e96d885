// Package server assembles the HTTP surface: routes, middleware chain, and
// lifecycle.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	adminhandler "github.com/DragaoTI/auth-service/internal/admin/handler"
	adminsvc "github.com/DragaoTI/auth-service/internal/admin/service"
	apilogsvc "github.com/DragaoTI/auth-service/internal/apilog/service"
	authhandler "github.com/DragaoTI/auth-service/internal/auth/handler"
	authsvc "github.com/DragaoTI/auth-service/internal/auth/service"
	geologsvc "github.com/DragaoTI/auth-service/internal/geolog/service"
	"github.com/DragaoTI/auth-service/internal/obs"
	"github.com/DragaoTI/auth-service/internal/security"
	"github.com/DragaoTI/auth-service/internal/server/middleware"
	"github.com/DragaoTI/auth-service/internal/server/respond"
)

const shutdownTimeout = 10 * time.Second

// Options carries everything the HTTP server needs. DB, APILogs, GeoLogs, and
// Metrics may be nil; the matching surface is then disabled.
type Options struct {
	Addr          string
	Codec         *security.Codec
	Auth          *authsvc.AuthService
	Admins        *adminsvc.AdminService
	AdminLookup   middleware.AdminLookup
	UserLookup    middleware.UserLookup
	AdminTokenTTL time.Duration
	APILogs       *apilogsvc.Recorder
	GeoLogs       *geologsvc.Recorder
	DB            *sql.DB
	Metrics       *obs.Metrics
	Log           *zap.Logger
}

// Server is the assembled HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	log        *zap.Logger
}

// New builds the route table and middleware chain.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	mux := http.NewServeMux()
	authn := middleware.NewAuthenticator(opts.Codec, opts.AdminLookup, opts.UserLookup)

	authhandler.NewHandler(opts.Auth, opts.Codec, log).Register(mux, authn)
	adminhandler.NewHandler(opts.Admins, opts.APILogs, opts.GeoLogs, opts.Codec, log, opts.AdminTokenTTL).
		Register(mux, authn)

	mux.HandleFunc("GET /healthz", healthz(opts.DB))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	var recorder middleware.APIRecorder
	if opts.APILogs != nil {
		recorder = opts.APILogs
	}
	var handler http.Handler = middleware.RequestLog(opts.Codec, recorder, opts.Metrics, log)(mux)
	handler = otelhttp.NewHandler(handler, "http.server")

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		handler: handler,
		log:     log,
	}
}

// Handler exposes the full middleware chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				respond.WriteDetail(w, http.StatusServiceUnavailable, "database unreachable")
				return
			}
		}
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
