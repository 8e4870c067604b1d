package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "APP_ENV", "SECRET_KEY", "DATABASE_URL", "SQLITE_PATH",
		"UPLOAD_DIR", "MASK_DIR", "FRONTEND_NOTIFY_URL", "NOTIFY_TIMEOUT_SECONDS",
		"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_SSL",
	} {
		t.Setenv(key, "")
	}
}

func TestDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "dev-secret", cfg.SecretKey)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "masks", cfg.MaskDir)
	assert.Equal(t, "icebergs.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
	assert.False(t, cfg.MinioEnabled())
}

func TestProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "host=db user=iceberg dbname=icebergs")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestProductionRequiresDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SECRET_KEY", "super-secret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestProductionLoads(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SECRET_KEY", "super-secret")
	t.Setenv("DATABASE_URL", "host=db user=iceberg dbname=icebergs")
	t.Setenv("NOTIFY_TIMEOUT_SECONDS", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "super-secret", cfg.SecretKey)
	assert.Equal(t, 2*time.Second, cfg.NotifyTimeout)
}

func TestInvalidMinioSSL(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINIO_SSL", "maybe")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestMinioEnabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "key")
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("MINIO_BUCKET", "rasters")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.MinioEnabled())
}
