package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/catalogsearch/pkg/config"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	ShutdownTimeout time.Duration `env:"SEARCH_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CacheMaxAge     time.Duration `env:"SEARCH_CACHE_MAX_AGE" envDefault:"30s"`

	// Engine
	Locale    string   `env:"SEARCH_LOCALE" envDefault:"pt"`
	Stopwords []string `env:"SEARCH_STOPWORDS" envSeparator:","`
	SeedFile  string   `env:"SEARCH_SEED_FILE"`

	// Product service URL for reindex fetching
	ProductServiceURL     string        `env:"PRODUCT_SERVICE_URL" envDefault:"http://localhost:8080"`
	ProductServiceTimeout time.Duration `env:"PRODUCT_SERVICE_TIMEOUT" envDefault:"10s"`
	ReindexPageSize       int           `env:"REINDEX_PAGE_SIZE" envDefault:"100"`
	ReindexOnStart        bool          `env:"REINDEX_ON_START" envDefault:"false"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"search-service"`
	// Processed event ids are remembered this long to skip redeliveries.
	IdempotencyTTL time.Duration `env:"KAFKA_IDEMPOTENCY_TTL" envDefault:"24h"`

	// Redis
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Query log
	QueryLogKey       string `env:"QUERY_LOG_KEY" envDefault:"search:queries"`
	PopularQueryCount int    `env:"POPULAR_QUERY_COUNT" envDefault:"50"`

	// Admin endpoints are disabled while the key is empty.
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RedisRequired reports whether any enabled component needs Redis.
func (c *Config) RedisRequired() bool {
	return c.RedisEnabled
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Locale != "pt" && c.Locale != "en" {
		return fmt.Errorf("SEARCH_LOCALE must be pt or en, got %q", c.Locale)
	}
	if u, err := url.Parse(c.ProductServiceURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PRODUCT_SERVICE_URL must be an absolute URL, got %q", c.ProductServiceURL)
	}
	if c.ReindexPageSize < 1 || c.ReindexPageSize > 100 {
		return fmt.Errorf("REINDEX_PAGE_SIZE must be between 1 and 100, got %d", c.ReindexPageSize)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.RedisEnabled && (c.RedisPort < 1 || c.RedisPort > 65535) {
		return fmt.Errorf("invalid Redis port: %d", c.RedisPort)
	}
	if c.PopularQueryCount < 0 {
		return fmt.Errorf("POPULAR_QUERY_COUNT must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}
