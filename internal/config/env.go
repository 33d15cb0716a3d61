// Package config provides environment helpers for go-morph commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults used when the environment does not say otherwise.
const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"
	DefaultWebDir   = "web"
)

// Port returns the HTTP port from MORPH_PORT or the default.
func Port() string {
	return String("MORPH_PORT", DefaultPort)
}

// ConfigPath returns the YAML config path from MORPH_CONFIG.
// Empty means "use built-in defaults".
func ConfigPath() string {
	return os.Getenv("MORPH_CONFIG")
}

// LogLevel returns the log level from LOG_LEVEL or the default.
func LogLevel() string {
	return String("LOG_LEVEL", DefaultLogLevel)
}

// WebDir returns the static asset directory from MORPH_WEB_DIR.
func WebDir() string {
	return String("MORPH_WEB_DIR", DefaultWebDir)
}

// String returns the env var or def if unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the env var parsed as an int, or def when unset or invalid.
func Int(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// Float returns the env var parsed as a float64, or def when unset or invalid.
func Float(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

// Bool returns the env var parsed by strconv.ParseBool, or def.
func Bool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// Duration returns the env var parsed by time.ParseDuration, or def.
func Duration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
