package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	JWTSecret      string
	AdminEmail     string
	InitialCredits int

	AuthBaseURL    string
	AuthAPIKey     string
	StylistBaseURL string
	StylistAPIKey  string
	StylistModel   string

	GeoIPDBPath string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	DBMaxConns int32
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AdminEmail:       strings.ToLower(getEnv("ADMIN_EMAIL", "admin@match.com")),
		InitialCredits:   getEnvInt("INITIAL_CREDITS", 5),
		AuthBaseURL:      os.Getenv("AUTH_BASE_URL"),
		AuthAPIKey:       os.Getenv("AUTH_API_KEY"),
		StylistBaseURL:   os.Getenv("STYLIST_BASE_URL"),
		StylistAPIKey:    os.Getenv("STYLIST_API_KEY"),
		StylistModel:     getEnv("STYLIST_MODEL", "atelier-tryon-1"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 10)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.AuthBaseURL == "" {
		return nil, fmt.Errorf("AUTH_BASE_URL is required")
	}

	if cfg.InitialCredits < 0 {
		return nil, fmt.Errorf("INITIAL_CREDITS must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
