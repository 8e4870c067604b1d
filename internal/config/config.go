package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const developmentSecret = "dev-secret"

// Config holds all configuration values from environment.
type Config struct {
	AppPort   string
	AppEnv    string
	SecretKey string

	DatabaseURL string
	SQLitePath  string

	UploadDir string
	MaskDir   string

	NotifyURL     string
	NotifyTimeout time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool
}

// LoadConfig loads configuration from a .env file (if present) and the
// environment. In production mode both SECRET_KEY and DATABASE_URL are
// required; development mode falls back to an insecure local setup.
func LoadConfig() (*Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	minioSSL := false
	if sslEnv := os.Getenv("MINIO_SSL"); sslEnv != "" {
		val, err := strconv.ParseBool(sslEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid MINIO_SSL value: %v", err)
		}
		minioSSL = val
	}

	notifyTimeout := 5 * time.Second
	if timeoutEnv := os.Getenv("NOTIFY_TIMEOUT_SECONDS"); timeoutEnv != "" {
		val, err := strconv.Atoi(timeoutEnv)
		if err == nil && val > 0 {
			notifyTimeout = time.Duration(val) * time.Second
		}
	}

	cfg := &Config{
		AppPort:        os.Getenv("APP_PORT"),
		AppEnv:         os.Getenv("APP_ENV"),
		SecretKey:      os.Getenv("SECRET_KEY"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SQLitePath:     os.Getenv("SQLITE_PATH"),
		UploadDir:      os.Getenv("UPLOAD_DIR"),
		MaskDir:        os.Getenv("MASK_DIR"),
		NotifyURL:      os.Getenv("FRONTEND_NOTIFY_URL"),
		NotifyTimeout:  notifyTimeout,
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    os.Getenv("MINIO_BUCKET"),
		MinioSSL:       minioSSL,
	}

	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.MaskDir == "" {
		cfg.MaskDir = "masks"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "icebergs.db"
	}

	if cfg.IsProduction() {
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY must be set in production")
		}
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set in production")
		}
	} else if cfg.SecretKey == "" {
		cfg.SecretKey = developmentSecret
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MinioEnabled reports whether optional GeoTIFF archival is configured.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != "" && c.MinioBucket != ""
}

// ConnectDatabase initializes a GORM connection: PostgreSQL when DATABASE_URL
// is set, a local SQLite file otherwise (development only).
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
}
