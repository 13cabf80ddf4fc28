package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvBasedSetting(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SERVER_HOST", "")
	t.Setenv("SERVER_HOST_PROD", "")
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("SERVER_PORT_PROD", "8080")

	assert.Equal(t, "dev", Environment())
	assert.Equal(t, "3000", GetEnvBasedSetting("SERVER_PORT"))

	t.Setenv("ENVIRONMENT", "Prod")
	assert.Equal(t, "prod", Environment())
	assert.Equal(t, "8080", GetEnvBasedSetting("SERVER_PORT"))
	assert.Equal(t, "127.0.0.1:8080", ServerAddress())
}

func TestStorageConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("PRODUCTS_DIRECTORY", "")

	cfg := StorageConfig()
	assert.Equal(t, "local", cfg.Backend)
	assert.Equal(t, filepath.Join("public", "products"), cfg.Directory)

	t.Setenv("STORAGE_BACKEND", "blob")
	t.Setenv("BLOB_BUCKET_URL", "gs://pixelverk-assets")
	cfg = StorageConfig()
	assert.Equal(t, "blob", cfg.Backend)
	assert.Equal(t, "gs://pixelverk-assets", cfg.BucketURL)
}

func TestCartConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("CART_STORE", "sqlite")
	t.Setenv("CART_TTL_HOURS", "48")

	cfg := CartConfig()
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, 48*time.Hour, cfg.TTL)

	t.Setenv("CART_TTL_HOURS", "two days")
	assert.Zero(t, CartConfig().TTL)
}

func TestAdminPasswordTrimmed(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "  hemligt \n")
	assert.Equal(t, "hemligt", AdminPassword())

	t.Setenv("ADMIN_PASSWORD", "")
	assert.Empty(t, AdminPassword())
}

func TestLoggerConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("TIME_ZONE", "")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FILE_FORMAT", "")

	cfg := LoggerConfig()
	assert.Equal(t, "Europe/Stockholm", cfg.TimeZone)
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "server_%s.log", cfg.LogFileFormat)
}
