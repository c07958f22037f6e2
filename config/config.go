package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system,
// such as server settings, Postgres connection details, credential signing and throttling.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=admin
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=tickerql
//	POSTGRES_SSLMODE=disable
//	AUTH_JWT_SECRET=change-me
//	AUTH_TOKEN_TTL=30m
//	RATE_LIMIT_REQUESTS=10
//	RATE_LIMIT_WINDOW=1m
type Config struct {
	Server    ServerConfig    // HTTP server configuration
	Postgres  PostgresConfig  // PostgreSQL connection settings
	Auth      AuthConfig      // Credential signing settings
	RateLimit RateLimitConfig // Request throttle settings
	Log       LogConfig       // Logger settings
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - ConnectRetries: how many times the initial ping is retried with backoff.
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ConnectRetries int
	URL            string
}

// DSN renders the connection string understood by lib/pq.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

// AuthConfig holds the symmetric signing secret and credential lifetime.
//
// DemoUser is the single subject allowed to log in.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	DemoUser  string
}

// RateLimitConfig describes the per-client admission quota.
//
// Backend is "memory" (single instance) or "redis" (shared across instances, needs RedisURL).
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Backend  string
	RedisURL string
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string
	Pretty bool
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() at startup. Components never read it directly:
// cmd/main.go hands the loaded value to app.InitializeApp, which passes the relevant
// sub-structs down to each constructor.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() will terminate the app
//     with a descriptive log message.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "tickerql")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_CONNECT_RETRIES", 5)

	viper.SetDefault("AUTH_JWT_SECRET", "super_secret_enterprise_key")
	viper.SetDefault("AUTH_TOKEN_TTL", "30m")
	viper.SetDefault("AUTH_DEMO_USER", "admin")

	viper.SetDefault("RATE_LIMIT_REQUESTS", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("RATE_LIMIT_BACKEND", "memory")
	viper.SetDefault("REDIS_URL", "")

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", false)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:           viper.GetString("POSTGRES_HOST"),
			Port:           viper.GetInt("POSTGRES_PORT"),
			User:           viper.GetString("POSTGRES_USER"),
			Password:       viper.GetString("POSTGRES_PASSWORD"),
			DBName:         viper.GetString("POSTGRES_DB"),
			SSLMode:        viper.GetString("POSTGRES_SSLMODE"),
			ConnectRetries: viper.GetInt("POSTGRES_CONNECT_RETRIES"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("AUTH_JWT_SECRET"),
			TokenTTL:  viper.GetDuration("AUTH_TOKEN_TTL"),
			DemoUser:  viper.GetString("AUTH_DEMO_USER"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
			Backend:  viper.GetString("RATE_LIMIT_BACKEND"),
			RedisURL: viper.GetString("REDIS_URL"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Pretty: viper.GetBool("LOG_PRETTY"),
		},
	}

	AppConfig.Postgres.URL = AppConfig.Postgres.DSN()

	// Validate critical fields
	validateConfig()
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing or inconsistent.
func validateConfig() {
	if missing := missingFields(AppConfig); len(missing) > 0 {
		log.Fatalf("❌ Missing or invalid environment variables: %v\n", missing)
	}
}

// missingFields lists the environment keys whose values are absent or unusable.
func missingFields(cfg Config) []string {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if cfg.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if cfg.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if cfg.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if cfg.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if cfg.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}
	if cfg.Auth.TokenTTL <= 0 {
		missing = append(missing, "AUTH_TOKEN_TTL")
	}
	if cfg.Auth.DemoUser == "" {
		missing = append(missing, "AUTH_DEMO_USER")
	}
	if cfg.RateLimit.Requests <= 0 {
		missing = append(missing, "RATE_LIMIT_REQUESTS")
	}
	if cfg.RateLimit.Window <= 0 {
		missing = append(missing, "RATE_LIMIT_WINDOW")
	}
	switch cfg.RateLimit.Backend {
	case "memory":
	case "redis":
		if cfg.RateLimit.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	default:
		missing = append(missing, "RATE_LIMIT_BACKEND")
	}

	return missing
}
