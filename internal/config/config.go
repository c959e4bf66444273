// Package config loads process configuration from ACCUREAD_* environment
// variables.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "ACCUREAD_"

type Config struct {
	HTTPAddr       string
	DBPath         string
	PluginDir      string
	DeviceID       int
	FPS            int
	CameraEnabled  bool
	TrayEnabled    bool
	BufferCapacity int
	Shortlist      int
	HashDistance   int
	MaxDimension   int
	OCREndpoint    string
	OCRPlugin      string
	OCRPluginConf  string
	OCRTimeout     time.Duration
	OCRRetries     int
	LogLevel       string
}

func Load() *Config {
	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8420"),
		DBPath:         getEnv("DB_PATH", filepath.Join(dataDir(), "accuread.db")),
		PluginDir:      getEnv("PLUGIN_DIR", filepath.Join(dataDir(), "plugins")),
		DeviceID:       getEnvInt("DEVICE_ID", 0),
		FPS:            getEnvInt("FPS", 5),
		CameraEnabled:  getEnvBool("CAMERA", false),
		TrayEnabled:    getEnvBool("TRAY", false),
		BufferCapacity: getEnvInt("BUFFER_CAPACITY", 8),
		Shortlist:      getEnvInt("SHORTLIST", 3),
		HashDistance:   getEnvInt("HASH_DISTANCE", 3),
		MaxDimension:   getEnvInt("MAX_DIMENSION", 1280),
		OCREndpoint:    getEnv("OCR_ENDPOINT", ""),
		OCRPlugin:      getEnv("OCR_PLUGIN", ""),
		OCRPluginConf:  getEnv("OCR_PLUGIN_CONFIG", ""),
		OCRTimeout:     getEnvDuration("OCR_TIMEOUT", 20*time.Second),
		OCRRetries:     getEnvInt("OCR_RETRIES", 2),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// dataDir is ~/.accuread, or the working directory when home is unknown.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".accuread")
}

func getEnv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
