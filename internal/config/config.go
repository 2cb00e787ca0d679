package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names and their defaults.
const (
	EnvCredentialsPath = "GMAIL_CREDENTIALS_PATH"
	EnvTokenPath       = "GMAIL_TOKEN_PATH"
	EnvApprovalExpiry  = "HITL_EXPIRY_HOURS"
	EnvSendPerMinute   = "MAILGATE_SEND_PER_MINUTE"
	EnvReadPerMinute   = "MAILGATE_READ_PER_MINUTE"
	EnvMetricsAddr     = "MAILGATE_METRICS_ADDR"
	EnvDryRun          = "DRY_RUN"

	DefaultCredentialsPath = "credentials.json"
	DefaultTokenPath       = "token.json"
	DefaultApprovalExpiry  = 24 * time.Hour
	DefaultSendPerMinute   = 10
	DefaultReadPerMinute   = 30
	DefaultMetricsAddr     = ":9090"
)

// Config holds everything the process reads from the environment.
type Config struct {
	// CredentialsPath locates the OAuth client credentials file.
	CredentialsPath string
	// TokenPath locates the persisted OAuth token file.
	TokenPath string
	// ApprovalExpiry is how long approval artifacts produced by the
	// surrounding workflow stay valid. Consumed by callers of this
	// config surface, not by the mail core itself.
	ApprovalExpiry time.Duration
	// SendPerMinute caps send/reply/draft operations per rolling minute.
	SendPerMinute int
	// ReadPerMinute caps search/read operations per rolling minute.
	ReadPerMinute int
	// MetricsAddr is the listen address of the Prometheus side server.
	MetricsAddr string
	// DryRun makes write operations simulate instead of calling Gmail.
	DryRun bool
}

// Load reads a .env file if one exists, then resolves the configuration
// from the environment, applying defaults for anything unset.
func Load() (*Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv resolves the configuration from the current environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		CredentialsPath: envOr(EnvCredentialsPath, DefaultCredentialsPath),
		TokenPath:       envOr(EnvTokenPath, DefaultTokenPath),
		ApprovalExpiry:  DefaultApprovalExpiry,
		SendPerMinute:   DefaultSendPerMinute,
		ReadPerMinute:   DefaultReadPerMinute,
		MetricsAddr:     envOr(EnvMetricsAddr, DefaultMetricsAddr),
	}

	if v := os.Getenv(EnvApprovalExpiry); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("%s: expected a positive hour count, got %q", EnvApprovalExpiry, v)
		}
		cfg.ApprovalExpiry = time.Duration(hours) * time.Hour
	}

	var err error
	if cfg.SendPerMinute, err = envPositiveInt(EnvSendPerMinute, DefaultSendPerMinute); err != nil {
		return nil, err
	}
	if cfg.ReadPerMinute, err = envPositiveInt(EnvReadPerMinute, DefaultReadPerMinute); err != nil {
		return nil, err
	}

	cfg.DryRun = os.Getenv(EnvDryRun) == "true"

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envPositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: expected a positive integer, got %q", key, v)
	}
	return n, nil
}
