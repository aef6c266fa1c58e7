package config

import (
	"os"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string // empty disables snapshot archiving
	TablePrefix string
	CORSOrigins string
	JWKSURL     string // empty disables bearer-token auth
	LogDir      string // empty logs to stdout only

	// Device selection: a profile name from DevicesFile, with direct
	// env overrides taking precedence over the file.
	DevicesFile    string
	Device         string
	DeviceAddress  string
	DeviceClientID string
	DeviceKeyPath  string
	DeviceInsecure bool

	SyncOnStart bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		JWKSURL:     getEnv("JWKS_URL", ""),
		LogDir:      getEnv("LOG_DIR", ""),

		DevicesFile:    getEnv("DEVICES_FILE", "devices.yaml"),
		Device:         getEnv("DEVICE", "default"),
		DeviceAddress:  getEnv("DEVICE_ADDRESS", ""),
		DeviceClientID: getEnv("DEVICE_CLIENT_ID", ""),
		DeviceKeyPath:  getEnv("DEVICE_KEY_PATH", ""),
		DeviceInsecure: getEnv("DEVICE_INSECURE", "true") == "true",

		SyncOnStart: getEnv("SYNC_ON_START", "true") == "true",
	}
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
