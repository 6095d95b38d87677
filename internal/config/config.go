// Package config holds process settings and turns a rules document into live
// rules, data sources, embedders and output mappers.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sbenjam1n/validb/internal/detection"
	"github.com/sbenjam1n/validb/internal/publish"
)

// Settings holds the process configuration read from the environment.
type Settings struct {
	LogLevel     string
	RulesPath    string
	MaxDetection detection.Limit
	Publish      string
	Stream       string
}

// Load reads settings from environment variables with sensible defaults.
// Variables from the env file (VALIDB_ENV_FILE, default .env) are loaded
// first when it exists; they never override the process environment.
func Load() (*Settings, error) {
	envFile := getEnv("VALIDB_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	limit := detection.Unlimited()
	if raw := os.Getenv("VALIDB_MAX_DETECTION"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("VALIDB_MAX_DETECTION: %w", err)
		}
		limit = detection.MaxDetections(n)
	}

	s := &Settings{
		LogLevel:     getEnv("VALIDB_LOG_LEVEL", "INFO"),
		RulesPath:    getEnv("VALIDB_RULES", "validb.yml"),
		MaxDetection: limit,
		Publish:      getEnv("VALIDB_PUBLISH", ""),
		Stream:       getEnv("VALIDB_STREAM", publish.DefaultStream),
	}
	return s, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
