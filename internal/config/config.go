package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	GinMode          string
	Environment      string
	Database         DatabaseConfig
	JWT              JWTConfig
	Storage          StorageConfig
	Redis            RedisConfig
	Log              LogConfig
	Evidence         EvidenceConfig
	ReservationTTL   time.Duration
	ExportSigningKey string
	AllowedOrigins   []string
	TestMode         bool
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type StorageConfig struct {
	Root          string
	BaseURL       string
	SigningSecret string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	Channel  string
}

type LogConfig struct {
	Level     string
	Format    string
	File      string
	SentryDSN string
}

// EvidenceConfig bounds the photos accepted when a task is completed.
type EvidenceConfig struct {
	MinPhotos    int
	MaxPhotos    int
	MaxPhotoSize int64
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			TokenTTL: getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		},
		Storage: StorageConfig{
			Root:          getEnv("STORAGE_ROOT", "./data/objects"),
			BaseURL:       strings.TrimRight(getEnv("STORAGE_BASE_URL", "http://localhost:8080"), "/"),
			SigningSecret: getEnv("STORAGE_SIGNING_SECRET", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "quest-and-check:changes"),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "text"),
			File:      getEnv("LOG_FILE", ""),
			SentryDSN: getEnv("SENTRY_DSN", ""),
		},
		Evidence: EvidenceConfig{
			MinPhotos:    getEnvInt("EVIDENCE_MIN_PHOTOS", 3),
			MaxPhotos:    getEnvInt("EVIDENCE_MAX_PHOTOS", 10),
			MaxPhotoSize: int64(getEnvInt("EVIDENCE_MAX_PHOTO_SIZE", 10<<20)),
		},
		ReservationTTL:   getEnvDuration("RESERVATION_TTL", 0),
		ExportSigningKey: getEnv("EXPORT_SIGNING_KEY", ""),
		AllowedOrigins:   getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		TestMode:         getEnv("TEST_MODE", "false") == "true",
	}

	if cfg.Storage.SigningSecret == "" {
		cfg.Storage.SigningSecret = cfg.JWT.Secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" && !c.TestMode {
		return errors.New("JWT_SECRET is required")
	}
	if c.Evidence.MinPhotos < 1 {
		return errors.New("EVIDENCE_MIN_PHOTOS must be at least 1")
	}
	if c.Evidence.MaxPhotos < c.Evidence.MinPhotos {
		return errors.New("EVIDENCE_MAX_PHOTOS must not be lower than EVIDENCE_MIN_PHOTOS")
	}
	if c.Evidence.MaxPhotoSize < 1 {
		return errors.New("EVIDENCE_MAX_PHOTO_SIZE must be positive")
	}
	if c.ReservationTTL < 0 {
		return errors.New("RESERVATION_TTL must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	items := strings.Split(value, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}
