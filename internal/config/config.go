package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"hotelbooking/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Broker     BrokerConfig     `yaml:"broker"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Booking    BookingConfig    `yaml:"booking"`
	Cache      CacheConfig      `yaml:"cache"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// IsDevelopment controls whether internal error details reach API clients.
func (a AppConfig) IsDevelopment() bool {
	env := strings.ToLower(strings.TrimSpace(a.Environment))
	return env == "development" || env == "dev"
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BrokerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	Exchange    string `yaml:"exchange"`
	DLXExchange string `yaml:"dlx_exchange"`
	Queue       string `yaml:"queue"`
	DLQueue     string `yaml:"dl_queue"`
	Prefetch    int    `yaml:"prefetch"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// PricingConfig is the rate card: nightly rate per room type in major units.
type PricingConfig struct {
	Currency                string             `yaml:"currency"`
	NightlyRates            map[string]float64 `yaml:"nightly_rates"`
	WeekendSurchargePercent int64              `yaml:"weekend_surcharge_percent"`
}

type BookingConfig struct {
	MaxBookingDays    int `yaml:"max_booking_days"`
	DefaultAuditLimit int `yaml:"default_audit_limit"`
}

type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

type NotifierConfig struct {
	Channel          string         `yaml:"channel"`
	DedupeTTLSeconds int            `yaml:"dedupe_ttl_seconds"`
	Telegram         TelegramConfig `yaml:"telegram"`
	Retry            RetryConfig    `yaml:"retry"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type RetryConfig struct {
	MaxRetries     int     `yaml:"max_retries"`
	InitialDelayMS int     `yaml:"initial_delay_ms"`
	MaxDelayMS     int     `yaml:"max_delay_ms"`
	BackoffFactor  float64 `yaml:"backoff_factor"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if len(c.Pricing.NightlyRates) == 0 {
		return errors.New("pricing.nightly_rates must not be empty")
	}
	for name, rate := range c.Pricing.NightlyRates {
		if _, err := models.ParseRoomType(name); err != nil {
			return fmt.Errorf("pricing.nightly_rates: %w", err)
		}
		if rate < 0 {
			return fmt.Errorf("pricing.nightly_rates[%s] must not be negative", name)
		}
	}
	if c.Pricing.WeekendSurchargePercent < 0 {
		return errors.New("pricing.weekend_surcharge_percent must not be negative")
	}

	switch c.Notifier.Channel {
	case "log":
	case "telegram":
		if c.Notifier.Telegram.BotToken == "" || c.Notifier.Telegram.ChatID == 0 {
			return errors.New("notifier.telegram requires bot_token and chat_id")
		}
	default:
		return fmt.Errorf("unknown notifier.channel %q", c.Notifier.Channel)
	}

	if c.Broker.Enabled && c.Broker.URL == "" {
		return errors.New("broker.url is required when broker is enabled")
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

// ValidateAPIKeys rejects empty or duplicate keys; the client name becomes the audit actor.
func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key for client '%s' is empty", k.Name)
		}
		if k.Name == "" {
			return errors.New("api key has no client name")
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "hotelbooking"
	}
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = 5000
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Broker.Exchange == "" {
		c.Broker.Exchange = "hotel.events"
	}
	if c.Broker.DLXExchange == "" {
		c.Broker.DLXExchange = c.Broker.Exchange + ".dlx"
	}
	if c.Broker.Queue == "" {
		c.Broker.Queue = "hotel.notifications"
	}
	if c.Broker.DLQueue == "" {
		c.Broker.DLQueue = c.Broker.Queue + ".dlq"
	}
	if c.Broker.Prefetch == 0 {
		c.Broker.Prefetch = 10
	}

	if c.Pricing.Currency == "" {
		c.Pricing.Currency = models.DefaultCurrency
	}

	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Booking.DefaultAuditLimit == 0 {
		c.Booking.DefaultAuditLimit = models.DefaultAuditLimit
	}

	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = models.DefaultSearchCacheTTL
	}

	if c.Notifier.Channel == "" {
		c.Notifier.Channel = "log"
	}
	if c.Notifier.DedupeTTLSeconds == 0 {
		c.Notifier.DedupeTTLSeconds = models.DefaultDedupeTTL
	}
	if c.Notifier.Retry.MaxRetries == 0 {
		c.Notifier.Retry.MaxRetries = 5
	}
	if c.Notifier.Retry.InitialDelayMS == 0 {
		c.Notifier.Retry.InitialDelayMS = 1000
	}
	if c.Notifier.Retry.MaxDelayMS == 0 {
		c.Notifier.Retry.MaxDelayMS = 60000
	}
	if c.Notifier.Retry.BackoffFactor == 0 {
		c.Notifier.Retry.BackoffFactor = 2
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
