package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverBadger   = "badger"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL    PostgreSQLConfig
	Server        ServerConfig
	Search        SearchConfig
	Ranking       RankingConfig
	Store         StoreConfig
	Matcher       MatcherConfig
	Providers     ProvidersConfig
	Scheduler     SchedulerConfig
	Notifications NotificationsConfig
	Logging       LoggingConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // Full connection string, takes precedence over the fields below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SearchConfig holds search-related configuration
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// RankingConfig holds ranking weights configuration
type RankingConfig struct {
	WeightPrice   float64
	WeightRecency float64
}

// StoreConfig selects where saved searches live
type StoreConfig struct {
	Driver     string // postgres or badger
	BadgerPath string
}

// MatcherConfig holds listing matcher configuration
type MatcherConfig struct {
	Concurrency int
}

// ProvidersConfig holds geocoding, places and routing configuration
type ProvidersConfig struct {
	Timeout   time.Duration
	APIKey    string
	BaseURL   string
	RateLimit int // Requests per second, per provider
	CacheTTL  time.Duration
}

// Enabled reports whether external providers can be called
func (p ProvidersConfig) Enabled() bool {
	return p.APIKey != ""
}

// SchedulerConfig holds saved search re-evaluation configuration
type SchedulerConfig struct {
	Enabled     bool
	Schedule    string // cron expression or descriptor such as @hourly
	Concurrency int
}

// NotificationsConfig holds notification dispatch configuration
type NotificationsConfig struct {
	WebhookURL string // Empty means notifications are only logged
	Timeout    time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Output []string // console, file
	File   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "rental_search"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnvAsList("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS"),
			AllowedHeaders: getEnvAsList("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,X-Owner-ID"),
		},
		Search: SearchConfig{
			DefaultLimit: getEnvAsInt("SEARCH_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvAsInt("SEARCH_MAX_LIMIT", 100),
		},
		Ranking: RankingConfig{
			WeightPrice:   getEnvAsFloat("RANK_WEIGHT_PRICE", 0.6),
			WeightRecency: getEnvAsFloat("RANK_WEIGHT_RECENCY", 0.4),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
			BadgerPath: getEnv("BADGER_PATH", "./data/saved_searches"),
		},
		Matcher: MatcherConfig{
			Concurrency: getEnvAsInt("MATCH_CONCURRENCY", 8),
		},
		Providers: ProvidersConfig{
			Timeout:   getEnvAsDuration("PROVIDER_TIMEOUT", 4*time.Second),
			APIKey:    getEnv("MAPS_API_KEY", ""),
			BaseURL:   getEnv("MAPS_API_BASE", "https://maps.googleapis.com/maps/api"),
			RateLimit: getEnvAsInt("MAPS_RATE_LIMIT", 10),
			CacheTTL:  getEnvAsDuration("MAPS_CACHE_TTL", 30*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:     getEnvAsBool("SCHEDULER_ENABLED", true),
			Schedule:    getEnv("SCHEDULER_CRON", "@hourly"),
			Concurrency: getEnvAsInt("SCHEDULER_CONCURRENCY", 4),
		},
		Notifications: NotificationsConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnvAsList("LOG_OUTPUT", "console"),
			File:   getEnv("LOG_FILE", "./logs/rental-search.log"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverBadger:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: must be %s or %s", c.Store.Driver, StoreDriverPostgres, StoreDriverBadger)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("invalid search limits: default %d, max %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("invalid PROVIDER_TIMEOUT %s", c.Providers.Timeout)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
