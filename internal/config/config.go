// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 5050).
	Port int

	// BaseURL is the public-facing URL, used as the allowed CORS origin.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// StaticDir is the directory holding the admin and kiosk front-ends.
	StaticDir string

	// Timezone is the household's local zone. "Today" for the kiosk and the
	// archival cutoff are computed in this zone.
	Timezone *time.Location

	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are honored.
	TrustedProxies []string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds authentication-related settings.
	Auth AuthConfig

	// RateLimit holds transport-level limiter settings.
	RateLimit RateLimitConfig

	// Archive holds archival scheduler settings.
	Archive ArchiveConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "mealboard").
	User string

	// Password is the MariaDB password (default: "mealboard").
	Password string

	// Name is the database name (default: "mealboard").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
//
// Timestamps are stored and read as UTC. MultiStatements is enabled so the
// migration files can hold more than one statement. ClientFoundRows makes
// UPDATE report matched rows, so an unchanged row is not mistaken for a
// missing one. group_concat_max_len is raised so the archived side dish
// snapshot is never cut at the server default of 1024 bytes.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"group_concat_max_len": groupConcatMaxLen}
	return cfg.FormatDSN()
}

// groupConcatMaxLen covers a full day of side dishes in utf8mb4.
const groupConcatMaxLen = "65535"

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	// Empty disables Redis; rate limit counters are then kept in memory.
	URL string
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SecretKey is the HMAC key used to sign session tokens (32+ bytes in production).
	SecretKey string

	// SessionTTL is how long an issued session token stays valid.
	SessionTTL time.Duration

	// HeaderName is the request header carrying "Bearer <token>".
	HeaderName string

	// MaxFailures is the failed-attempt count that locks a username or IP.
	MaxFailures int

	// FailureWindow is the trailing window failed attempts are counted over.
	FailureWindow time.Duration

	// AdminUsername, AdminDisplayName and AdminPassword seed the single
	// administrator account when the users table is empty.
	AdminUsername    string
	AdminDisplayName string
	AdminPassword    string
}

// RateLimitConfig holds the transport-level per-IP limits.
type RateLimitConfig struct {
	// Login is the number of login requests allowed per IP per Window.
	Login int

	// API is the number of requests to any route allowed per IP per Window.
	API int

	// Window is the fixed counting window for both limiters.
	Window time.Duration
}

// ArchiveConfig holds the archival scheduler timing.
type ArchiveConfig struct {
	// StartDelay is the grace period before the first pass after startup.
	StartDelay time.Duration

	// Interval is the time between recurring passes.
	Interval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnvInt("PORT", 5050),
		BaseURL:   getEnv("BASE_URL", "http://localhost:5050"),
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		StaticDir: getEnv("STATIC_DIR", "./public"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{
			"127.0.0.0/8",
			"10.0.0.0/8",
			"172.16.0.0/12",
			"192.168.0.0/16",
			"fd00::/8",
		}),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "mealboard"),
			Password:        getEnv("DB_PASSWORD", "mealboard"),
			Name:            getEnv("DB_NAME", "mealboard"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},

		Auth: AuthConfig{
			SecretKey:        getEnv("SECRET_KEY", ""),
			SessionTTL:       getEnvDuration("SESSION_TTL", 8*time.Hour),
			HeaderName:       getEnv("AUTH_HEADER", "Authorization"),
			MaxFailures:      getEnvInt("LOGIN_MAX_FAILURES", 5),
			FailureWindow:    getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
			AdminUsername:    getEnv("ADMIN_USERNAME", "kat"),
			AdminDisplayName: getEnv("ADMIN_DISPLAY_NAME", "Kat"),
			AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		},

		RateLimit: RateLimitConfig{
			Login:  getEnvInt("RATE_LIMIT_LOGIN", 5),
			API:    getEnvInt("RATE_LIMIT_API", 100),
			Window: getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		},

		Archive: ArchiveConfig{
			StartDelay: getEnvDuration("ARCHIVE_START_DELAY", 5*time.Second),
			Interval:   getEnvDuration("ARCHIVE_INTERVAL", 24*time.Hour),
		},
	}

	loc, err := loadLocation(getEnv("TIMEZONE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Timezone = loc

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	if cfg.IsProduction() {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
		if cfg.Auth.AdminPassword == "" {
			return nil, fmt.Errorf("ADMIN_PASSWORD is required in production")
		}
	}

	// Provide dev-only defaults so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}
	if cfg.Auth.AdminPassword == "" {
		cfg.Auth.AdminPassword = "changeMe123!"
	}

	if cfg.Auth.MaxFailures < 1 {
		return nil, fmt.Errorf("LOGIN_MAX_FAILURES must be at least 1")
	}
	if cfg.Archive.Interval <= 0 {
		return nil, fmt.Errorf("ARCHIVE_INTERVAL must be positive")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// loadLocation resolves a TIMEZONE value. Empty means the host's local zone.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "15m") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default.
// Blank items are dropped.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
