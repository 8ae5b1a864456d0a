package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ridebot/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Telegram TelegramConfig
	Location LocationConfig
	Fare     FareConfig
	Booking  BookingConfig
	Drivers  []domain.Driver
	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// TelegramConfig holds Bot API configuration.
type TelegramConfig struct {
	BotToken      string
	WebhookSecret string
	APITimeout    time.Duration
}

// LocationConfig holds Amazon Location Service configuration.
type LocationConfig struct {
	Region          string
	PlaceIndexName  string
	RouteCalculator string
	CountryHint     string // appended to an address on a failed first lookup
}

// FareConfig holds the fare formula coefficients.
type FareConfig struct {
	Base        float64
	PerMile     float64
	PerMinute   float64
	FixedFee    float64
	MinimumFare float64
}

// BookingConfig holds dialog and idempotency policy knobs.
type BookingConfig struct {
	Timezone         string
	PickerDaysAhead  int
	SessionIdleLimit time.Duration
	DedupRetention   time.Duration
}

// Load loads configuration from environment variables. A .env file in
// the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ridebot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ridebot"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Telegram: TelegramConfig{
			BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
			WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
			APITimeout:    getDurationEnv("TELEGRAM_API_TIMEOUT", 15*time.Second),
		},
		Location: LocationConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			PlaceIndexName:  getEnv("PLACE_INDEX_NAME", ""),
			RouteCalculator: getEnv("ROUTE_CALCULATOR_NAME", ""),
			CountryHint:     getEnv("GEOCODE_COUNTRY_HINT", "FL, USA"),
		},
		Fare: FareConfig{
			Base:        getFloatEnv("FARE_BASE", 3.00),
			PerMile:     getFloatEnv("FARE_PER_MILE", 2.50),
			PerMinute:   getFloatEnv("FARE_PER_MINUTE", 0.40),
			FixedFee:    getFloatEnv("FARE_FEE", 1.00),
			MinimumFare: getFloatEnv("FARE_MINIMUM", 10.00),
		},
		Booking: BookingConfig{
			Timezone:         getEnv("TIMEZONE", "America/Chicago"),
			PickerDaysAhead:  getIntEnv("PICKER_DAYS_AHEAD", 5),
			SessionIdleLimit: getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			DedupRetention:   getDurationEnv("DEDUP_RETENTION", 24*time.Hour),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	drivers, err := ParseDrivers(os.Getenv("DRIVERS"))
	if err != nil {
		return nil, err
	}
	cfg.Drivers = drivers

	return cfg, nil
}

// ParseDrivers parses the driver directory from its environment form:
// semicolon-separated entries of "chatID:Name:Car".
func ParseDrivers(raw string) ([]domain.Driver, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var drivers []domain.Driver
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid DRIVERS entry %q: want chatID:Name:Car", entry)
		}
		chatID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DRIVERS chat id %q: %w", parts[0], err)
		}
		drivers = append(drivers, domain.Driver{
			ChatID: chatID,
			Name:   strings.TrimSpace(parts[1]),
			Car:    strings.TrimSpace(parts[2]),
		})
	}
	return drivers, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
