package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Database DatabaseConfig
	Feeds    FeedsConfig
	Staging  StagingConfig
	Loader   LoaderConfig
	Logging  LoggingConfig
}

type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

// FeedsConfig for the BART GTFS-realtime endpoints and the optional
// static schedule source
type FeedsConfig struct {
	TripUpdatesURL string        `validate:"required,url"`
	AlertsURL      string        `validate:"required,url"`
	StaticGTFSURL  string        `validate:"omitempty,url"`
	HTTPTimeout    time.Duration `validate:"min=1"`
}

// StagingConfig for the snapshot file directory
type StagingConfig struct {
	Dir string `validate:"required"`
}

// LoaderConfig for the warehouse load phase
type LoaderConfig struct {
	ChunkSize int `validate:"min=1"`
}

type LoggingConfig struct {
	Level    string
	FilePath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "bart"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "bart_dw"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Feeds: FeedsConfig{
			TripUpdatesURL: getEnv("BART_TRIP_UPDATES_URL", "http://api.bart.gov/gtfsrt/tripupdate.aspx"),
			AlertsURL:      getEnv("BART_ALERTS_URL", "http://api.bart.gov/gtfsrt/alerts.aspx"),
			StaticGTFSURL:  getEnv("BART_STATIC_GTFS_URL", "https://www.bart.gov/dev/schedules/google_transit.zip"),
			HTTPTimeout:    getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		},
		Staging: StagingConfig{
			Dir: getEnv("RAW_DIR", "./data/raw"),
		},
		Loader: LoaderConfig{
			ChunkSize: getIntEnv("LOAD_CHUNK_SIZE", 500),
		},
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE", "bartdw.log"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded configuration against the struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	for name, section := range map[string]interface{}{
		"database": c.Database,
		"feeds":    c.Feeds,
		"staging":  c.Staging,
		"loader":   c.Loader,
	} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("invalid %s configuration: %w", name, err)
		}
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
