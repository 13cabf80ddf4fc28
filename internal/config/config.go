// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pixelverk/internal/cart"
	"pixelverk/internal/email"
	"pixelverk/internal/logger"
	"pixelverk/internal/storage"
	"pixelverk/internal/tracing"
)

//
// --- Utility Helpers ---
//

// Environment returns ENVIRONMENT, defaulting to dev
func Environment() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "" {
		env = "dev"
	}
	return env
}

// GetEnvBasedSetting reads BASE_<ENV>, falling back to plain BASE
func GetEnvBasedSetting(base string) string {
	if v := os.Getenv(fmt.Sprintf("%s_%s", base, strings.ToUpper(Environment()))); v != "" {
		return v
	}
	return os.Getenv(base)
}

func settingOrDefault(base, def string) string {
	if v := GetEnvBasedSetting(base); v != "" {
		return v
	}
	return def
}

// LogCurrentEnvironment logs which environment is running
func LogCurrentEnvironment() {
	if Environment() == "dev" {
		logger.LogInfo("Running in development environment")
	} else {
		logger.LogInfo("Running in %s environment", Environment())
	}
}

//
// --- Loaders ---
//

// LoadEnv reads the .env file if there is one
func LoadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Could not determine working directory: %v", err)
	}

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found in %s. Using system environment variables.", wd)
	} else {
		log.Printf("Loaded environment variables from .env file in %s", wd)
	}
}

// LoggerConfig returns a logger.Config struct populated from environment
func LoggerConfig() logger.Config {
	return logger.Config{
		LogsDirectory: settingOrDefault("LOGS_DIRECTORY", "./logs"),
		LogFileFormat: settingOrDefault("LOG_FILE_FORMAT", "server_%s.log"),
		TimeZone:      settingOrDefault("TIME_ZONE", "Europe/Stockholm"),
		Level:         settingOrDefault("LOG_LEVEL", "INFO"),
	}
}

// StorageConfig selects where products live. STORAGE_BACKEND=blob switches
// to the bucket at BLOB_BUCKET_URL.
func StorageConfig() storage.Config {
	return storage.Config{
		Backend:       settingOrDefault("STORAGE_BACKEND", storage.BackendLocal),
		Directory:     settingOrDefault("PRODUCTS_DIRECTORY", filepath.Join("public", "products")),
		BucketURL:     GetEnvBasedSetting("BLOB_BUCKET_URL"),
		PublicBaseURL: GetEnvBasedSetting("BLOB_PUBLIC_BASE_URL"),
	}
}

// CartConfig selects the cart store
func CartConfig() cart.Config {
	ttl := time.Duration(0)
	if raw := GetEnvBasedSetting("CART_TTL_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 0 {
			logger.LogWarn("Invalid CART_TTL_HOURS: %s, carts will not expire", raw)
		} else {
			ttl = time.Duration(hours) * time.Hour
		}
	}

	return cart.Config{
		Backend:   settingOrDefault("CART_STORE", cart.BackendFile),
		Directory: settingOrDefault("CART_DIRECTORY", filepath.Join("data", "carts")),
		DBPath:    settingOrDefault("CART_DB_PATH", filepath.Join("data", "carts.db")),
		RedisURL:  settingOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		TTL:       ttl,
	}
}

// TracingConfig reads TRACE_EXPORTER
func TracingConfig() tracing.Config {
	return tracing.Config{
		Exporter:    GetEnvBasedSetting("TRACE_EXPORTER"),
		ServiceName: settingOrDefault("SERVICE_NAME", "pixelverk"),
	}
}

// EmailConfig controls order notifications. They are off unless
// ORDER_EMAILS=true.
func EmailConfig() email.Config {
	zone := settingOrDefault("TIME_ZONE", "Europe/Stockholm")
	loc, err := time.LoadLocation(zone)
	if err != nil {
		logger.LogWarn("Invalid TIME_ZONE %s for emails, using local time", zone)
		loc = time.Local
	}

	return email.Config{
		AlertRecipient: GetEnvBasedSetting("EMAIL_ALERT_RECIPIENT"),
		AlertSender:    GetEnvBasedSetting("EMAIL_ALERT_SENDER"),
		SendmailPath:   GetEnvBasedSetting("SENDMAIL_PATH"),
		Enabled:        strings.EqualFold(GetEnvBasedSetting("ORDER_EMAILS"), "true"),
		MockMode:       strings.EqualFold(GetEnvBasedSetting("EMAIL_MOCK_MODE"), "true"),
		LogEmails:      !strings.EqualFold(GetEnvBasedSetting("EMAIL_LOG_MODE"), "false"),
		TimeZone:       loc,
	}
}

// AdminPassword returns the shared admin secret. Empty disables the admin surface.
func AdminPassword() string {
	password := strings.TrimSpace(os.Getenv("ADMIN_PASSWORD"))
	if password == "" {
		logger.LogWarn("ADMIN_PASSWORD is not set, admin surface disabled")
	}
	return password
}

// ServerAddress builds the listen address from SERVER_HOST and SERVER_PORT
func ServerAddress() string {
	host := settingOrDefault("SERVER_HOST", "127.0.0.1")
	port := settingOrDefault("SERVER_PORT", "3000")
	return host + ":" + port
}
