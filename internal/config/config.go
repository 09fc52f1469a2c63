package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MaxResultsLimit is the largest accepted CRAWLER_MAX_RESULTS.
const MaxResultsLimit = 5

// Supported browsing engines.
const (
	EngineRod  = "rod"
	EngineHTTP = "http"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Crawler   CrawlerConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	PoolMin     int
	PoolMax     int
	AutoMigrate bool
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// CrawlerConfig holds registry crawler configuration.
type CrawlerConfig struct {
	Engine          string
	BaseURL         string
	BrowserBin      string
	UserAgent       string
	WaitTimeout     time.Duration
	SearchTimeout   time.Duration
	MaxResults      int
	Headless        bool
	IncludeInactive bool
}

// TelemetryConfig holds OpenTelemetry trace export configuration.
// Tracing stays disabled when Endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string
	ServiceName string
}

// Load reads configuration from environment variables and validates it.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Read reads configuration from environment variables without validating it.
// Callers that need only some sections validate those themselves.
func Read() *Config {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "florida_business")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("CRAWLER_ENGINE", EngineRod)
	v.SetDefault("CRAWLER_BASE_URL", "https://search.sunbiz.org")
	v.SetDefault("CRAWLER_HEADLESS", true)
	v.SetDefault("CRAWLER_BROWSER_BIN", "")
	v.SetDefault("CRAWLER_USER_AGENT", "")
	v.SetDefault("CRAWLER_MAX_RESULTS", 5)
	v.SetDefault("CRAWLER_INCLUDE_INACTIVE", false)
	v.SetDefault("CRAWLER_WAIT_TIMEOUT", "15s")
	v.SetDefault("CRAWLER_SEARCH_TIMEOUT", "2m")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "bizsearch")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			Name:        v.GetString("DB_NAME"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			PoolMin:     v.GetInt("DB_POOL_MIN"),
			PoolMax:     v.GetInt("DB_POOL_MAX"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Crawler: CrawlerConfig{
			Engine:          strings.ToLower(strings.TrimSpace(v.GetString("CRAWLER_ENGINE"))),
			BaseURL:         strings.TrimRight(v.GetString("CRAWLER_BASE_URL"), "/"),
			BrowserBin:      v.GetString("CRAWLER_BROWSER_BIN"),
			UserAgent:       v.GetString("CRAWLER_USER_AGENT"),
			WaitTimeout:     v.GetDuration("CRAWLER_WAIT_TIMEOUT"),
			SearchTimeout:   v.GetDuration("CRAWLER_SEARCH_TIMEOUT"),
			MaxResults:      v.GetInt("CRAWLER_MAX_RESULTS"),
			Headless:        v.GetBool("CRAWLER_HEADLESS"),
			IncludeInactive: v.GetBool("CRAWLER_INCLUDE_INACTIVE"),
		},
		Telemetry: TelemetryConfig{
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	return cfg
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return c.Crawler.Validate()
}

// Validate checks the database section on its own so tools that only touch
// the store (migrations) can skip the rest of the configuration.
func (c DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.PoolMin > c.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// Validate checks the crawler section.
func (c CrawlerConfig) Validate() error {
	switch c.Engine {
	case EngineRod, EngineHTTP:
	default:
		return fmt.Errorf("CRAWLER_ENGINE must be %q or %q, got %q", EngineRod, EngineHTTP, c.Engine)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CRAWLER_BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}

	if c.MaxResults < 1 || c.MaxResults > MaxResultsLimit {
		return fmt.Errorf("CRAWLER_MAX_RESULTS must be between 1 and %d", MaxResultsLimit)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("CRAWLER_WAIT_TIMEOUT must be positive")
	}
	if c.SearchTimeout < c.WaitTimeout {
		return fmt.Errorf("CRAWLER_SEARCH_TIMEOUT must be at least CRAWLER_WAIT_TIMEOUT")
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
