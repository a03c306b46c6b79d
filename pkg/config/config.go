package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Daily update scheduler
	Scheduler SchedulerConfig

	// Market data providers
	MarketData MarketDataConfig

	// Email delivery
	Email EmailConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SchedulerConfig holds the daily update orchestrator settings.
// Cron and Timezone are validated when the scheduler is armed, not here.
type SchedulerConfig struct {
	Enabled       bool   // arm the timer on serve
	Cron          string // 5 or 6 field cron expression
	Timezone      string // IANA zone name
	RetryAttempts int
	RetryDelay    time.Duration
	BatchSize     int
	BatchDelay    time.Duration
}

// MarketDataConfig holds quote provider configuration
type MarketDataConfig struct {
	AlphaVantageAPIKey     string
	AlphaVantageBaseURL    string
	AlphaVantageRatePerMin int
	YahooBaseURL           string

	RequestTimeout time.Duration
	RetryDelay     time.Duration
	BatchSize      int
	BatchDelay     time.Duration
	CacheTTL       time.Duration
}

// EmailConfig holds SMTP delivery configuration
type EmailConfig struct {
	SMTPHost    string
	SMTPPort    string
	Username    string
	Password    string
	From        string
	MaxRetries  int
	RetryDelay  time.Duration
	SendTimeout time.Duration // one SMTP attempt, dial to QUIT
}

// Defaults used when the environment omits or mangles a value
const (
	DefaultCron          = "0 8 * * *"
	DefaultTimezone      = "America/New_York"
	DefaultRetryAttempts = 3
	DefaultBatchSize     = 10
)

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Scheduler: SchedulerConfig{
			Enabled:       getEnvAsBool("DAILY_UPDATE_ENABLED", true),
			Cron:          getEnv("DAILY_UPDATE_CRON", DefaultCron),
			Timezone:      getEnv("DAILY_UPDATE_TIMEZONE", DefaultTimezone),
			RetryAttempts: getEnvAsInt("DAILY_UPDATE_RETRY_ATTEMPTS", DefaultRetryAttempts),
			RetryDelay:    getEnvAsDuration("DAILY_UPDATE_RETRY_DELAY", "2s"),
			BatchSize:     getEnvAsInt("DAILY_UPDATE_BATCH_SIZE", DefaultBatchSize),
			BatchDelay:    getEnvAsDuration("DAILY_UPDATE_BATCH_DELAY", "1s"),
		},

		MarketData: MarketDataConfig{
			AlphaVantageAPIKey:     getEnv("ALPHA_VANTAGE_API_KEY", ""),
			AlphaVantageBaseURL:    getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),
			AlphaVantageRatePerMin: getEnvAsInt("ALPHA_VANTAGE_RATE_PER_MIN", 75),
			YahooBaseURL:           getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestTimeout:         getEnvAsDuration("MARKET_REQUEST_TIMEOUT", "10s"),
			RetryDelay:             getEnvAsDuration("MARKET_RETRY_DELAY", "500ms"),
			BatchSize:              getEnvAsInt("MARKET_BATCH_SIZE", 5),
			BatchDelay:             getEnvAsDuration("MARKET_BATCH_DELAY", "250ms"),
			CacheTTL:               getEnvAsDuration("MARKET_CACHE_TTL", "1m"),
		},

		Email: EmailConfig{
			SMTPHost:    getEnv("SMTP_HOST", "localhost"),
			SMTPPort:    getEnv("SMTP_PORT", "587"),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			From:        getEnv("EMAIL_FROM", "Folio <noreply@folio.local>"),
			MaxRetries:  getEnvAsInt("EMAIL_MAX_RETRIES", 3),
			RetryDelay:  getEnvAsDuration("EMAIL_RETRY_DELAY", "1s"),
			SendTimeout: getEnvAsDuration("EMAIL_SEND_TIMEOUT", "10s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	cfg.Scheduler.normalize()

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	return nil
}

// normalize replaces non-positive numeric settings with defaults.
// Schedule and timezone are left untouched so that arm time reports them.
func (s *SchedulerConfig) normalize() {
	if s.RetryAttempts <= 0 {
		s.RetryAttempts = DefaultRetryAttempts
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.RetryDelay < 0 {
		s.RetryDelay = 0
	}
	if s.BatchDelay < 0 {
		s.BatchDelay = 0
	}
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
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
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
