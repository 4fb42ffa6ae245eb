package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultTickers is the instrument list loaded when TICKERS is not set:
// the BRL/USD pair, the two major crypto pairs and a basket of B3 equities.
var DefaultTickers = []string{
	"USDBRL=X", "BTC-USD", "ETH-USD",
	"PETR4.SA", "VALE3.SA", "ITUB4.SA",
	"B3SA3.SA", "BBAS3.SA", "BBSE3.SA",
	"ABEV3.SA",
}

// requiredEnvVars must all be present and non-empty before any network or
// database activity starts.
var requiredEnvVars = []string{
	"DB_HOST", "DB_PORT", "DB_NAME",
	"DB_USER", "DB_PASSWORD", "DB_SCHEMA",
}

// MissingEnvError reports every required environment variable that is absent
// or empty, not just the first one found.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Vars, ", "))
}

type Config struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSchema   string
	DBSSLMode  string

	TableName string
	Tickers   []string

	FetchPeriod      string
	FetchInterval    string
	MaxFetchAttempts int

	ChunkSize  int
	WriteMode  string
	RunTimeout time.Duration
	ScheduleAt string

	Environment string
}

// LoadConfig loads environment variables and validates the connection
// parameters. All missing required variables are collected before failing.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var missing []string
	for _, name := range requiredEnvVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingEnvError{Vars: missing}
	}

	config := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBSchema:   os.Getenv("DB_SCHEMA"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		TableName: getEnv("TABLE_NAME", "tickers"),
		Tickers:   splitTickers(getEnv("TICKERS", strings.Join(DefaultTickers, ","))),

		FetchPeriod:      getEnv("FETCH_PERIOD", "5d"),
		FetchInterval:    getEnv("FETCH_INTERVAL", "1d"),
		MaxFetchAttempts: getEnvInt("FETCH_MAX_ATTEMPTS", 3),

		ChunkSize:  getEnvInt("CHUNK_SIZE", 1000),
		WriteMode:  getEnv("ETL_WRITE_MODE", "replace"),
		RunTimeout: getEnvDuration("ETL_RUN_TIMEOUT", 10*time.Minute),
		ScheduleAt: os.Getenv("ETL_SCHEDULE_AT"),

		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if len(c.Tickers) == 0 {
		return fmt.Errorf("TICKERS must contain at least one symbol")
	}
	if c.MaxFetchAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be at least 1, got %d", c.MaxFetchAttempts)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("CHUNK_SIZE must be at least 1, got %d", c.ChunkSize)
	}
	switch c.WriteMode {
	case "replace", "append", "fail":
	default:
		return fmt.Errorf("ETL_WRITE_MODE must be one of replace, append, fail; got %q", c.WriteMode)
	}
	return nil
}

// DSN builds the PostgreSQL connection string from the resolved parameters.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// InitDB opens the database connection used for the lifetime of one run.
func InitDB(cfg *Config) (*gorm.DB, error) {
	// Log connection info (masked for security)
	log.Printf("Connecting to database: host=%s port=%s user=%s dbname=%s schema=%s",
		maskHost(cfg.DBHost),
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBName,
		cfg.DBSchema,
	)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Printf("Database connection error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Printf("Database ping failed: %v", err)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Printf("Database connection verified successfully")
	return db, nil
}

// CloseDB releases the connection pool on a clean shutdown path.
func CloseDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Could not get database for close: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

func splitTickers(raw string) []string {
	parts := strings.Split(raw, ",")
	tickers := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
