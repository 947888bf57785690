package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"hostel-analytics/models"
	"hostel-analytics/period"
)

// Config holds all application-level configuration
type Config struct {
	// Database (optional: empty means in-memory only)
	DatabaseURL string `env:"DATABASE_URL"`

	// Reservation API
	APIBaseURL       string `env:"CLOUDBEDS_API_URL" envDefault:"https://hotels.cloudbeds.com/api/v1.2" validate:"required,url"`
	APIToken         string `env:"CLOUDBEDS_API_TOKEN"`
	RequestTimeoutMs int    `env:"REQUEST_TIMEOUT_MS" envDefault:"15000" validate:"min=1"`
	MaxRetries       int    `env:"MAX_RETRIES" envDefault:"3" validate:"min=1,max=10"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"100" validate:"min=1,max=100"`
	RetryBackoffMs   int    `env:"RETRY_BACKOFF_MS" envDefault:"1000" validate:"min=0"`
	MinRequestGapMs  int    `env:"MIN_REQUEST_GAP_MS" envDefault:"250" validate:"min=0"` // floor between any two API calls

	// Pacing
	RateLimitDelay  int `env:"RATE_LIMIT_DELAY_MS" envDefault:"1000" validate:"min=0"` // between batch properties
	EnrichDelay     int `env:"ENRICH_DELAY_MS" envDefault:"1500" validate:"min=0"`     // between enrichment calls
	ProgressClearMs int `env:"PROGRESS_CLEAR_MS" envDefault:"3000" validate:"min=0"`

	// Properties: "Name=ID|ident|ident;Name=ID"
	PropertiesRaw string `env:"PROPERTIES"`
	Properties    []models.Property

	// Periods
	WeekStartDay int `env:"WEEK_START_DAY" envDefault:"1" validate:"min=0,max=6"`

	// Output
	CSVFilePath string `env:"CSV_FILE_PATH" envDefault:"output/bookings.csv"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error"`
	LogFile  string `env:"LOG_FILE"`

	// Narrative summary (optional)
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-lite"`

	// Browser capture of the reservations table
	CaptureCookie string `env:"CAPTURE_COOKIE"`
}

var validate = validator.New()

// Load reads an optional .env file (path from ENV_FILE, default ".env"),
// then environment variables, and validates the result
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	props, err := ParseProperties(c.PropertiesRaw)
	if err != nil {
		return err
	}
	c.Properties = props
	return nil
}

// PeriodConfig returns the weekly period settings
func (c *Config) PeriodConfig() period.Config {
	return period.Config{
		Type:         period.Week,
		WeekStartDay: period.StartOn(time.Weekday(c.WeekStartDay)),
		WeekLength:   7,
	}
}

// RequestTimeout is the per-request HTTP timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Property returns the configured property with the given display name
func (c *Config) Property(name string) (models.Property, bool) {
	return FindProperty(c.Properties, name)
}

// FindProperty looks a property up by display name (case-insensitive) or id
func FindProperty(props []models.Property, nameOrID string) (models.Property, bool) {
	key := strings.TrimSpace(nameOrID)
	for _, p := range props {
		if strings.EqualFold(p.Name, key) || p.ID == key {
			return p, true
		}
	}
	return models.Property{}, false
}

// ParseProperties parses "Name=ID|ident|ident;Name=ID" into properties
func ParseProperties(raw string) ([]models.Property, error) {
	var props []models.Property
	seen := make(map[string]bool)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid property entry %q: expected Name=ID", entry)
		}
		parts := strings.Split(rest, "|")
		id := strings.TrimSpace(parts[0])
		if id == "" {
			return nil, fmt.Errorf("property %q has no id", name)
		}
		if seen[strings.ToLower(name)] {
			return nil, fmt.Errorf("duplicate property %q", name)
		}
		seen[strings.ToLower(name)] = true

		p := models.Property{Name: name, ID: id}
		for _, ident := range parts[1:] {
			if ident = strings.TrimSpace(ident); ident != "" {
				p.Identifiers = append(p.Identifiers, ident)
			}
		}
		props = append(props, p)
	}
	return props, nil
}
