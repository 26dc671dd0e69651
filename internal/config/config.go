package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the services need so they never reach into the
// environment themselves. Loaded once in main after godotenv.
type Config struct {
	ServerPort string
	CertFile   string
	KeyFile    string

	AppEnv   string
	LogLevel string

	JWTSecret string

	DB       DBConfig
	Upstream UpstreamConfig
	Sync     SyncConfig
	Mail     MailConfig
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// UpstreamConfig holds the open-banking aggregator credentials and tuning.
type UpstreamConfig struct {
	BaseURL        string
	SecretID       string
	SecretKey      string
	RequestTimeout time.Duration
	HistoricalDays int
	ValidityDays   int
}

type SyncConfig struct {
	Cooldown          time.Duration
	InterAccountDelay time.Duration
	DateWindowDays    int
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

const defaultUpstreamBaseURL = "https://bankaccountdata.gocardless.com/api/v2"

// Load reads the environment into a Config. Only the upstream credentials are
// hard requirements; everything else has a workable default.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", ":3000"),
		CertFile:   os.Getenv("CERT_FILE"),
		KeyFile:    os.Getenv("KEY_FILE"),
		AppEnv:     getEnv("APP_ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		DB: DBConfig{
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			Name:     os.Getenv("DB_NAME"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        getEnv("BANK_API_BASE_URL", defaultUpstreamBaseURL),
			SecretID:       os.Getenv("BANK_API_SECRET_ID"),
			SecretKey:      os.Getenv("BANK_API_SECRET_KEY"),
			RequestTimeout: getDurationEnv("BANK_API_TIMEOUT_SECONDS", 15*time.Second),
			HistoricalDays: getIntEnv("BANK_API_HISTORICAL_DAYS", 90),
			ValidityDays:   getIntEnv("BANK_API_VALIDITY_DAYS", 90),
		},
		Sync: SyncConfig{
			Cooldown:          getDurationEnv("SYNC_COOLDOWN_SECONDS", 6*time.Hour),
			InterAccountDelay: getDurationEnv("SYNC_ACCOUNT_DELAY_SECONDS", 2*time.Second),
			DateWindowDays:    getIntEnv("SYNC_DATE_WINDOW_DAYS", 90),
		},
		Mail: MailConfig{
			Host:     os.Getenv("MAIL_HOST"),
			Port:     getIntEnv("MAIL_PORT", 587),
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
		},
	}

	if cfg.Upstream.SecretID == "" || cfg.Upstream.SecretKey == "" {
		return nil, fmt.Errorf("BANK_API_SECRET_ID and BANK_API_SECRET_KEY must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}
