// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the direct Postgres DSN of the Supabase project; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SupabaseURL is the base URL of the Supabase project (e.g. https://xyz.supabase.co).
	SupabaseURL string `mapstructure:"SUPABASE_URL"`
	// SupabaseServiceKey is the service-role key used for GoTrue admin calls.
	SupabaseServiceKey string `mapstructure:"SUPABASE_SERVICE_KEY"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim set on every token.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the user access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// AdminAccessTTL is the administrator access token lifetime (e.g. "8h").
	AdminAccessTTL string `mapstructure:"ADMIN_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12. Used for administrator passwords.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// GeoIPBaseURL is the GeoIP lookup service base URL; empty disables geo login logging.
	GeoIPBaseURL string `mapstructure:"GEOIP_BASE_URL"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint for traces; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// LogLevel is the zap log level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_SERVICE_KEY", "")
	v.SetDefault("JWT_ISSUER", "auth-service")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("ADMIN_ACCESS_TTL", "8h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("GEOIP_BASE_URL", "https://ipapi.co")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// AdminTTL parses AdminAccessTTL as a time.Duration. Returns 8h if unset or invalid.
func (c *Config) AdminTTL() time.Duration {
	d, err := time.ParseDuration(c.AdminAccessTTL)
	if err != nil || d <= 0 {
		return 8 * time.Hour
	}
	return d
}
