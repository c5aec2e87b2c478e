package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	OCR       OCRConfig
	Parse     ParseConfig
	Validator ValidatorConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN string
}

// OCRConfig holds acquisition-related configuration
type OCRConfig struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string

	Languages   string // tesseract language set, e.g. "rus+eng"
	DPI         int
	MaxPages    int
	TessdataDir string
}

// ParseConfig holds extraction-engine configuration
type ParseConfig struct {
	DefaultCurrency string
}

// ValidatorConfig holds optional LLM field-validator configuration
type ValidatorConfig struct {
	Enabled bool
	Model   string
	APIKey  string
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN: getEnv("DB_URL", "invoices.db"),
		},
		OCR: OCRConfig{
			Pdftotext:   getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Languages:   getEnv("OCR_LANGUAGES", "rus+eng"),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
		},
		Parse: ParseConfig{
			DefaultCurrency: getEnv("DEFAULT_CURRENCY", "RUB"),
		},
		Validator: ValidatorConfig{
			Enabled: getEnvAsBool("FIELD_VALIDATOR_ENABLED", false),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCR.Languages == "" {
		return NewAppError("CONFIG_ERROR", "OCR_LANGUAGES is required", ErrInvalidInput)
	}
	if c.Validator.Enabled && c.Validator.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required when FIELD_VALIDATOR_ENABLED=true", ErrInvalidInput)
	}
	return nil
}
