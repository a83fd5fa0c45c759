package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Session store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env                string
	Addr               string
	APIBaseURL         string
	APITimeout         time.Duration
	SessionBackend     string
	DBPath             string
	DatabaseURL        string
	RedisAddr          string
	SessionTTL         time.Duration
	Secret             []byte
	RateLimitPerSecond int
	SecureCookies      bool
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() (App, error) {
	cfg := App{
		Env:                getEnv("CAMPUS_ENV", "development"),
		Addr:               getEnv("CAMPUS_ADDR", ":8080"),
		APIBaseURL:         strings.TrimRight(getEnv("CAMPUS_API_URL", "http://127.0.0.1:8000"), "/"),
		APITimeout:         durationEnv("CAMPUS_API_TIMEOUT", 15*time.Second),
		SessionBackend:     getEnv("CAMPUS_SESSION_BACKEND", BackendSQLite),
		DBPath:             getEnv("CAMPUS_DB_PATH", "campusevents.db"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		SessionTTL:         durationEnv("CAMPUS_SESSION_TTL", 24*time.Hour),
		RateLimitPerSecond: intEnv("CAMPUS_RATE_LIMIT_PER_SEC", 10),
	}
	cfg.SecureCookies = boolEnv("CAMPUS_SECURE_COOKIES", cfg.IsProduction())

	switch cfg.SessionBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return App{}, fmt.Errorf("DATABASE_URL is required for the %s session backend", BackendPostgres)
		}
	default:
		return App{}, fmt.Errorf("unknown CAMPUS_SESSION_BACKEND %q", cfg.SessionBackend)
	}

	secret, err := loadSecret(cfg.IsProduction())
	if err != nil {
		return App{}, err
	}
	cfg.Secret = secret
	return cfg, nil
}

// IsProduction reports whether the app runs in production.
func (a App) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// DeriveKey derives a 32-byte key for purpose from the master secret.
// Distinct purposes yield independent keys.
func (a App) DeriveKey(purpose string) []byte {
	r := hkdf.New(sha256.New, a.Secret, nil, []byte("campusevents "+purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails after 255*32 bytes of output
		panic(err)
	}
	return key
}

// loadSecret reads CAMPUS_SECRET (hex, at least 32 bytes).
// In production the secret MUST be set. In development a random secret is generated per startup.
func loadSecret(production bool) ([]byte, error) {
	if keyHex := os.Getenv("CAMPUS_SECRET"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) < 32 {
			return nil, fmt.Errorf("CAMPUS_SECRET must be at least 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if production {
		return nil, fmt.Errorf("CAMPUS_SECRET is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	slog.Warn("config_random_secret", "detail", "sessions won't survive restart; set CAMPUS_SECRET")
	return key, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("config_invalid_duration", "key", key, "error", err, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			slog.Warn("config_invalid_bool", "key", key, "fallback", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			slog.Warn("config_invalid_int", "key", key, "fallback", fallback)
			return fallback
		}
		return n
	}
	return fallback
}
