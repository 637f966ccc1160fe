package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest shared signing secret accepted at startup.
const MinSecretLength = 32

// DefaultTokenTTL is the relay token lifetime used when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// ErrSecretTooShort is returned when AUTH_SECRET is missing or shorter than MinSecretLength.
var ErrSecretTooShort = fmt.Errorf("AUTH_SECRET must be at least %d characters", MinSecretLength)

// Config aggregates runtime configuration for the portal and satellite binaries.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Portal    PortalConfig
	Satellite SatelliteConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig holds the relay parameters shared by the Issuer and every Acceptor.
type AuthConfig struct {
	SharedSecret       string
	TokenTTLSeconds    int
	ClockSkewSeconds   int
	BcryptCost         int
	AllowedReturnHosts []string
}

// PortalConfig configures the identity-owning application.
type PortalConfig struct {
	LoginPath         string
	TokenPath         string
	SessionCookieName string
	SessionStore      string
}

// SatelliteConfig configures an application that trusts relay tokens.
type SatelliteConfig struct {
	IssuerURL         string
	SessionCookieName string
	ForbiddenPath     string
	PublicPaths       []string
}

// Load reads configuration from environment variables, applying defaults where possible.
// A missing or short AUTH_SECRET is fatal.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sso-relay"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SharedSecret:       os.Getenv("AUTH_SECRET"),
			TokenTTLSeconds:    getEnvAsInt("AUTH_TOKEN_TTL_SECONDS", int(DefaultTokenTTL/time.Second)),
			ClockSkewSeconds:   getEnvAsInt("AUTH_CLOCK_SKEW_SECONDS", 0),
			BcryptCost:         getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AllowedReturnHosts: getEnvAsList("AUTH_ALLOWED_RETURN_HOSTS", nil),
		},
		Portal: PortalConfig{
			LoginPath:         getEnv("PORTAL_LOGIN_PATH", "/login"),
			TokenPath:         getEnv("PORTAL_TOKEN_PATH", "/api/auth/token"),
			SessionCookieName: getEnv("PORTAL_SESSION_COOKIE", "portal-session"),
			SessionStore:      getEnv("PORTAL_SESSION_STORE", "redis"),
		},
		Satellite: SatelliteConfig{
			IssuerURL:         os.Getenv("SSO_URL"),
			SessionCookieName: getEnv("SATELLITE_SESSION_COOKIE", "app-session"),
			ForbiddenPath:     getEnv("SATELLITE_FORBIDDEN_PATH", "/forbidden"),
			PublicPaths: getEnvAsList("SATELLITE_PUBLIC_PATHS", []string{
				"/health/*", "/static/*", "/favicon.ico", "/robots.txt", "/logout", "/forbidden",
			}),
		},
	}

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the startup invariants of the shared relay settings.
func (a AuthConfig) Validate() error {
	if len(a.SharedSecret) < MinSecretLength {
		return ErrSecretTooShort
	}
	if a.TokenTTLSeconds <= 0 {
		return errors.New("AUTH_TOKEN_TTL_SECONDS must be positive")
	}
	if a.ClockSkewSeconds < 0 {
		return errors.New("AUTH_CLOCK_SKEW_SECONDS must not be negative")
	}
	return nil
}

// TokenTTL returns the fixed relay token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLSeconds <= 0 {
		return DefaultTokenTTL
	}
	return time.Duration(a.TokenTTLSeconds) * time.Second
}

// ClockSkew returns the leeway applied to expiry comparisons.
func (a AuthConfig) ClockSkew() time.Duration {
	if a.ClockSkewSeconds <= 0 {
		return 0
	}
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
