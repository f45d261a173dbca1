package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrMissingServiceKey = errors.New("MOLIT_SERVICE_KEY environment variable is not set")

type Config struct {
	DatabaseURL string
	DBDriver    string

	ServiceKey        string
	Endpoint          string
	RequestsPerSecond float64
	RequestBudget     int
	HTTPTimeout       time.Duration

	BackfillPageCap int
	MonthlyPageCap  int
	RepairPageCap   int
	SuspectPageCaps []int

	ArchiveDriver      string
	ArchiveFSRoot      string
	ArchiveS3Bucket    string
	ArchiveS3Region    string
	ArchiveS3Endpoint  string
	ArchiveS3PathStyle bool

	PushgatewayURL string
	LogLevel       slog.Level
	APIPort        string
}

func New() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	cfg := &Config{
		DatabaseURL:       databaseURL,
		DBDriver:          getEnv("DB_DRIVER", DriverPostgres),
		ServiceKey:        os.Getenv("MOLIT_SERVICE_KEY"),
		Endpoint:          os.Getenv("MOLIT_ENDPOINT"),
		RequestsPerSecond: 2,
		HTTPTimeout:       30 * time.Second,
		BackfillPageCap:   1000,
		MonthlyPageCap:    10000,
		RepairPageCap:     20000,
		ArchiveDriver:     os.Getenv("ARCHIVE_DRIVER"),
		ArchiveFSRoot:     getEnv("ARCHIVE_FS_ROOT", "./archive"),
		ArchiveS3Bucket:   os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchiveS3Region:   os.Getenv("ARCHIVE_S3_REGION"),
		ArchiveS3Endpoint: os.Getenv("ARCHIVE_S3_ENDPOINT"),
		PushgatewayURL:    os.Getenv("PUSHGATEWAY_URL"),
		APIPort:           getEnv("API_PORT", "8080"),
	}

	if cfg.DBDriver != DriverPostgres && cfg.DBDriver != DriverSQLite {
		return nil, fmt.Errorf("invalid value for DB_DRIVER: expected %q or %q, got '%s'", DriverPostgres, DriverSQLite, cfg.DBDriver)
	}

	var err error
	if cfg.RequestsPerSecond, err = getEnvAsFloat("REQUESTS_PER_SECOND", cfg.RequestsPerSecond); err != nil {
		return nil, err
	}
	if cfg.RequestBudget, err = getEnvAsInt("REQUEST_BUDGET", 0); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getEnvAsDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.BackfillPageCap, err = getEnvAsInt("BACKFILL_PAGE_CAP", cfg.BackfillPageCap); err != nil {
		return nil, err
	}
	if cfg.MonthlyPageCap, err = getEnvAsInt("MONTHLY_PAGE_CAP", cfg.MonthlyPageCap); err != nil {
		return nil, err
	}
	if cfg.RepairPageCap, err = getEnvAsInt("REPAIR_PAGE_CAP", cfg.RepairPageCap); err != nil {
		return nil, err
	}
	if cfg.SuspectPageCaps, err = getEnvAsIntList("SUSPECT_PAGE_CAPS", []int{cfg.BackfillPageCap, cfg.MonthlyPageCap}); err != nil {
		return nil, err
	}
	if cfg.ArchiveS3PathStyle, err = getEnvAsBool("ARCHIVE_S3_PATH_STYLE", false); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = getEnvAsLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}

	for name, v := range map[string]int{
		"BACKFILL_PAGE_CAP": cfg.BackfillPageCap,
		"MONTHLY_PAGE_CAP":  cfg.MonthlyPageCap,
		"REPAIR_PAGE_CAP":   cfg.RepairPageCap,
	} {
		if v <= 0 {
			return nil, fmt.Errorf("invalid value for %s: must be positive, got %d", name, v)
		}
	}

	// a unit that filled a load cap only proves complete under a larger one
	largest := max(cfg.BackfillPageCap, cfg.MonthlyPageCap)
	for _, c := range cfg.SuspectPageCaps {
		largest = max(largest, c)
	}
	if cfg.RepairPageCap <= largest {
		return nil, fmt.Errorf("invalid value for REPAIR_PAGE_CAP: must be larger than every load and suspect cap (%d), got %d", largest, cfg.RepairPageCap)
	}

	return cfg, nil
}

// RequireServiceKey fails for commands that talk to the upstream API.
func (c *Config) RequireServiceKey() error {
	if c.ServiceKey == "" {
		return ErrMissingServiceKey
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected a number, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected a duration, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: expected a boolean, got '%s'", key, valueStr)
	}

	return value, nil
}

// getEnvAsIntList reads a comma-separated list of integers.
func getEnvAsIntList(key string, defaultValue []int) ([]int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	var values []int
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integers, got '%s'", key, valueStr)
		}
		values = append(values, value)
	}

	return values, nil
}

func getEnvAsLevel(key string, defaultValue slog.Level) (slog.Level, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(valueStr)); err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected debug, info, warn or error, got '%s'", key, valueStr)
	}

	return level, nil
}
