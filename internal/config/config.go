package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port            int
	DBPath          string
	EnginePath      string
	EngineTimeout   time.Duration // 0 means no timeout
	RetentionDays   int
	CleanupSchedule string
	SettingsPath    string
	LogLevel        string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:            getEnvInt("HASHMAKER_PORT", 8080),
		DBPath:          ExpandPath(getEnv("HASHMAKER_DB_PATH", "./data/hashmaker.db")),
		EnginePath:      getEnv("HASHMAKER_ENGINE_PATH", "hashmaker-engine"),
		EngineTimeout:   time.Duration(getEnvInt("HASHMAKER_ENGINE_TIMEOUT", 0)) * time.Minute,
		RetentionDays:   getEnvInt("HASHMAKER_RETENTION_DAYS", 30),
		CleanupSchedule: getEnv("HASHMAKER_CLEANUP_SCHEDULE", "@daily"),
		SettingsPath:    ExpandPath(getEnv("HASHMAKER_SETTINGS_PATH", "./hashmaker.yaml")),
		LogLevel:        getEnv("HASHMAKER_LOG_LEVEL", "info"),
	}

	if getEnvBool("HASHMAKER_DEBUG", false) {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// ExpandPath expands a leading ~ and cleans the result.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
