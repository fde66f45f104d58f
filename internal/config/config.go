package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults mirror the demo deployment. Security thresholds are immutable
// after process start.
const (
	DefaultMaxInputLength = 3000
	DefaultRateWindow     = 60 * time.Second
	DefaultMaxRequests    = 5
)

// Config holds everything supplied at process start.
type Config struct {
	ListenAddr     string
	GRPCListenAddr string

	// Mail collaborator.
	SMTPHost     string
	SMTPPort     int
	SenderEmail  string
	SenderSecret string

	// Security thresholds.
	MaxInputLength int
	RateWindow     time.Duration
	MaxRequests    int

	// Admin credentials. The password is stored as a bcrypt hash.
	AdminUser         string
	AdminPasswordHash string

	// Optional durable user directory.
	PostgresDSN string
}

// Load reads configuration from the environment. Missing values fall back
// to demo defaults; malformed numeric values are an error.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:        envOr("QALA_LISTEN_ADDR", ":8080"),
		GRPCListenAddr:    envOr("QALA_GRPC_LISTEN_ADDR", ":9090"),
		SMTPHost:          envOr("QALA_SMTP_HOST", "smtp.gmail.com"),
		SenderEmail:       os.Getenv("QALA_SENDER_EMAIL"),
		SenderSecret:      os.Getenv("QALA_SENDER_PASSWORD"),
		AdminUser:         envOr("QALA_ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("QALA_ADMIN_PASSWORD_HASH"),
		PostgresDSN:       os.Getenv("QALA_PG_DSN"),
		MaxInputLength:    DefaultMaxInputLength,
		RateWindow:        DefaultRateWindow,
		MaxRequests:       DefaultMaxRequests,
	}

	var err error
	if cfg.SMTPPort, err = envInt("QALA_SMTP_PORT", 465); err != nil {
		return Config{}, err
	}
	if cfg.MaxInputLength, err = envInt("QALA_MAX_INPUT_LENGTH", DefaultMaxInputLength); err != nil {
		return Config{}, err
	}
	if cfg.MaxRequests, err = envInt("QALA_MAX_REQUESTS", DefaultMaxRequests); err != nil {
		return Config{}, err
	}
	windowSec, err := envInt("QALA_RATE_WINDOW_SECONDS", int(DefaultRateWindow/time.Second))
	if err != nil {
		return Config{}, err
	}
	cfg.RateWindow = time.Duration(windowSec) * time.Second

	if cfg.MaxInputLength <= 0 {
		return Config{}, fmt.Errorf("config: QALA_MAX_INPUT_LENGTH must be positive")
	}
	if cfg.MaxRequests <= 0 {
		return Config{}, fmt.Errorf("config: QALA_MAX_REQUESTS must be positive")
	}
	if cfg.RateWindow <= 0 {
		return Config{}, fmt.Errorf("config: QALA_RATE_WINDOW_SECONDS must be positive")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}
