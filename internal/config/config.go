package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// LINE Messaging API
	LineChannelSecret      string `validate:"required_unless=Env development"`
	LineChannelAccessToken string `validate:"required_unless=Env development"`
	LineAPIEndpoint        string `validate:"omitempty,url"`

	// Conversation sessions
	SessionBackend       string        `validate:"oneof=memory redis"`
	SessionTTL           time.Duration `validate:"gt=0"`
	SessionSweepInterval time.Duration `validate:"gt=0"`

	// Webhook dispatch
	DispatchConcurrency   int           `validate:"gte=1"`
	DispatchTimeout       time.Duration `validate:"gt=0"`
	WebhookRateLimitRPS   float64       `validate:"gte=0"`
	WebhookRateLimitBurst int           `validate:"gte=0"`

	// Booking flow
	BusinessTimezone    string   `validate:"required"`
	BookingNumberPrefix string   `validate:"required,alphanum,max=8"`
	BookingWindowDays   int      `validate:"gte=1,lte=365"`
	TimeSlots           []string `validate:"min=1,dive,datetime=15:04"`
	ContactText         string

	AdminJWTSecret   string
	AdminCORSOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LineChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineAPIEndpoint:        getEnv("LINE_API_ENDPOINT", ""),

		SessionBackend:       strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "memory"))),
		SessionTTL:           getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SessionSweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		DispatchConcurrency:   getEnvAsInt("DISPATCH_CONCURRENCY", 8),
		DispatchTimeout:       getEnvAsDuration("DISPATCH_TIMEOUT", 25*time.Second),
		WebhookRateLimitRPS:   getEnvAsFloat("WEBHOOK_RATE_LIMIT_RPS", 50),
		WebhookRateLimitBurst: getEnvAsInt("WEBHOOK_RATE_LIMIT_BURST", 100),

		BusinessTimezone:    getEnv("BUSINESS_TIMEZONE", "Asia/Bangkok"),
		BookingNumberPrefix: getEnv("BOOKING_NUMBER_PREFIX", "BK"),
		BookingWindowDays:   getEnvAsInt("BOOKING_WINDOW_DAYS", 30),
		TimeSlots:           getEnvAsList("TIME_SLOTS", []string{"09:00", "10:30", "13:00", "14:30", "16:00"}),
		ContactText:         getEnv("CONTACT_TEXT", ""),

		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
		AdminCORSOrigins: getEnvAsList("ADMIN_CORS_ORIGINS", nil),
	}
}

// Validate checks the loaded values. LINE credentials are only optional in development.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.SessionBackend == "redis" && strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("config: SESSION_BACKEND=redis requires REDIS_ADDR")
	}
	return nil
}

// Location resolves BusinessTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid BUSINESS_TIMEZONE %q: %w", c.BusinessTimezone, err)
	}
	return loc, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
