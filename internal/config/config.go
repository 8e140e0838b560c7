// Package config loads runtime configuration from the environment.
// The entrypoint loads a .env file first, so local development can keep
// settings in a file while deployments use real environment variables.
package config

import (
	"os"
	"strconv"
)

// Environment variable names.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvPort         = "AIBAPM_PORT"
	EnvWorkDir      = "AIBAPM_WORK_DIR"
	EnvFFmpeg       = "AIBAPM_FFMPEG"
	EnvLogLevel     = "LOG_LEVEL"
	EnvMaxParallel  = "AIBAPM_MAX_PARALLEL"
)

// Config holds all runtime settings.
type Config struct {
	Port         int
	DatabaseURL  string
	OpenAIAPIKey string
	WorkDir      string
	FFmpegPath   string
	LogLevel     string
	// MaxParallel bounds how many meetings process concurrently. Chunks
	// within one meeting are always sequential.
	MaxParallel int
}

// Load reads configuration from the environment with defaults.
func Load() Config {
	return Config{
		Port:         envInt(EnvPort, 8600),
		DatabaseURL:  envStr(EnvDatabaseURL, ""),
		OpenAIAPIKey: envStr(EnvOpenAIAPIKey, ""),
		WorkDir:      envStr(EnvWorkDir, os.TempDir()),
		FFmpegPath:   envStr(EnvFFmpeg, ""),
		LogLevel:     envStr(EnvLogLevel, "info"),
		MaxParallel:  envInt(EnvMaxParallel, 2),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
