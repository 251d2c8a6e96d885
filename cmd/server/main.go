package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	adminrepo "github.com/DragaoTI/auth-service/internal/admin/repository"
	adminsvc "github.com/DragaoTI/auth-service/internal/admin/service"
	apilogrepo "github.com/DragaoTI/auth-service/internal/apilog/repository"
	apilogsvc "github.com/DragaoTI/auth-service/internal/apilog/service"
	authsvc "github.com/DragaoTI/auth-service/internal/auth/service"
	"github.com/DragaoTI/auth-service/internal/config"
	"github.com/DragaoTI/auth-service/internal/db"
	"github.com/DragaoTI/auth-service/internal/geoip"
	geologrepo "github.com/DragaoTI/auth-service/internal/geolog/repository"
	geologsvc "github.com/DragaoTI/auth-service/internal/geolog/service"
	identityrepo "github.com/DragaoTI/auth-service/internal/identity/repository"
	ledgerrepo "github.com/DragaoTI/auth-service/internal/ledger/repository"
	"github.com/DragaoTI/auth-service/internal/obs"
	"github.com/DragaoTI/auth-service/internal/security"
	"github.com/DragaoTI/auth-service/internal/server"
)

const obsShutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := obs.NewLogger(obs.LogConfig{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
		App:    "auth-service",
		Env:    cfg.Env,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel, err := obs.SetupOTel(ctx, obs.OTELConfig{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "auth-service",
		SampleRatio: 1,
	})
	if err != nil {
		logger.Fatal("otel setup failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), obsShutdownTimeout)
		defer cancel()
		_ = otel.Shutdown(shutdownCtx)
	}()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("JWT_PRIVATE_KEY parse failed", zap.Error(err))
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("JWT_PUBLIC_KEY parse failed", zap.Error(err))
	}
	codec := security.NewCodec(privateKey, publicKey, cfg.JWTIssuer)

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL must be set")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer database.Close()

	users := identityrepo.NewGoTrueStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	ledger := ledgerrepo.NewPostgresRepository(database)
	admins := adminrepo.NewPostgresRepository(database)

	var geoResolver geologsvc.Resolver
	if cfg.GeoIPBaseURL != "" {
		geoResolver = geoip.NewClient(cfg.GeoIPBaseURL)
	}
	geoLogs := geologsvc.NewRecorder(geoResolver, geologrepo.NewPostgresRepository(database), logger)
	apiLogs := apilogsvc.NewRecorder(apilogrepo.NewPostgresRepository(database), logger)

	auth := authsvc.NewAuthService(users, ledger, codec, geoLogs, logger, cfg.AccessTTL(), cfg.RefreshTTL())
	adminService := adminsvc.NewAdminService(admins, security.NewHasher(cfg.BcryptCost), logger)

	srv := server.New(server.Options{
		Addr:          cfg.HTTPAddr,
		Codec:         codec,
		Auth:          auth,
		Admins:        adminService,
		AdminLookup:   admins,
		UserLookup:    users,
		AdminTokenTTL: cfg.AdminTTL(),
		APILogs:       apiLogs,
		GeoLogs:       geoLogs,
		DB:            database,
		Metrics:       obs.NewMetrics(),
		Log:           logger,
	})
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped")
}
