// Package config loads plate reader settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Classifier backends.
const (
	ClassifierDNN       = "dnn"
	ClassifierTesseract = "tesseract"
)

// Config holds process settings.
type Config struct {
	// Character classifier
	Classifier      string
	ModelPath       string
	ModelConfig     string
	ConfidenceFloor float64

	// Optional JSON file overriding pipeline parameters
	ParamsFile string

	// Batch processing
	Workers     int
	AnnotateDir string

	// Logging
	LogLevel   string
	LogConsole bool

	// HTTP API
	HTTPAddr string

	// PostgreSQL; empty disables the read log
	DatabaseURL string
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (*Config, error) {
	floor, err := getEnvAsFloat("PLATE_CONFIDENCE_FLOOR", 0.3)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvAsInt("PLATE_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	console, err := getEnvAsBool("LOG_CONSOLE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Classifier:      strings.ToLower(getEnv("PLATE_CLASSIFIER", ClassifierDNN)),
		ModelPath:       getEnv("PLATE_MODEL_PATH", "models/chars.onnx"),
		ModelConfig:     getEnv("PLATE_MODEL_CONFIG", ""),
		ConfidenceFloor: floor,
		ParamsFile:      getEnv("PLATE_PARAMS_FILE", ""),
		Workers:         workers,
		AnnotateDir:     getEnv("PLATE_ANNOTATE_DIR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogConsole:      console,
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Classifier {
	case ClassifierDNN:
		if c.ModelPath == "" {
			return fmt.Errorf("PLATE_MODEL_PATH is required for the dnn classifier")
		}
	case ClassifierTesseract:
	default:
		return fmt.Errorf("PLATE_CLASSIFIER must be %q or %q, got %q", ClassifierDNN, ClassifierTesseract, c.Classifier)
	}

	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("PLATE_CONFIDENCE_FLOOR must be between 0 and 1, got %v", c.ConfidenceFloor)
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("PLATE_WORKERS must be between 1 and 64, got %d", c.Workers)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	s, exists := os.LookupEnv(key)
	if !exists || s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	s, exists := os.LookupEnv(key)
	if !exists || s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	s, exists := os.LookupEnv(key)
	if !exists || s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}
