/*
Package configs is responsible for loading and parsing the application's configuration settings.

All settings come from operating system environment variables: the running environment,
port, CORS allowed origins, token and admin secrets, queue governance, the state backend,
the media library path and the Proof-of-Work (PoW) difficulty.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment   string
	Port          int
	PowDifficulty int

	// Security Settings
	AllowedOrigins    []string
	TokenSecret       string
	AdminPasswordHash []byte

	// Zone Settings
	TicketExpiry      time.Duration
	QueueLimit        int
	VoteSkipThreshold float64
	LibraryPath       string

	// State Storage Settings
	StateBackend     string
	SQLitePath       string
	DatabaseDSN      string
	AutosaveInterval time.Duration

	// S3 Storage Settings
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Prefix          string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
// It returns a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	// --- General Server Settings ---
	cfg.Environment = getenv("ENVIRONMENT", "development")

	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	if cfg.PowDifficulty, err = intEnv("POW_DIFFICULTY", 0); err != nil {
		return nil, err
	}
	if cfg.PowDifficulty < 0 || cfg.PowDifficulty > 8 {
		return nil, fmt.Errorf("POW_DIFFICULTY must be between 0 and 8, got %d", cfg.PowDifficulty)
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("TOKEN_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
		cfg.TokenSecret = "your_default_insecure_secret_key_change_me"
	}

	// An empty admin password disables every password gate.
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		cfg.AdminPasswordHash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash ADMIN_PASSWORD: %w", err)
		}
	}

	// --- Zone Settings ---
	if cfg.TicketExpiry, err = durationEnv("TICKET_EXPIRY", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.QueueLimit, err = intEnv("QUEUE_LIMIT", 3); err != nil {
		return nil, err
	}
	if cfg.QueueLimit < 1 {
		return nil, fmt.Errorf("QUEUE_LIMIT must be at least 1, got %d", cfg.QueueLimit)
	}

	thresholdStr := getenv("VOTE_SKIP_THRESHOLD", "0.6")
	cfg.VoteSkipThreshold, err = strconv.ParseFloat(thresholdStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VOTE_SKIP_THRESHOLD environment variable: %w", err)
	}
	if cfg.VoteSkipThreshold <= 0 || cfg.VoteSkipThreshold > 1 {
		return nil, fmt.Errorf("VOTE_SKIP_THRESHOLD must be in (0, 1], got %v", cfg.VoteSkipThreshold)
	}

	cfg.LibraryPath = os.Getenv("LIBRARY_PATH")

	// --- State Storage Settings ---
	cfg.StateBackend = getenv("STATE_BACKEND", "sqlite")
	cfg.SQLitePath = getenv("SQLITE_PATH", "./data/zone.db")
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")
	if cfg.AutosaveInterval, err = durationEnv("AUTOSAVE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	// --- S3 Storage Settings ---
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.S3Prefix = getenv("S3_PREFIX", "zone")

	switch cfg.StateBackend {
	case "sqlite", "none":
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres state backend")
		}
	case "s3":
		if cfg.S3BucketName == "" || cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 state backend")
		}
	default:
		return nil, fmt.Errorf("unknown STATE_BACKEND %q", cfg.StateBackend)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
