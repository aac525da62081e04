package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Selectors SelectorsConfig `mapstructure:"selectors"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds the metrics endpoint address
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// CrawlerConfig holds queue consumer and scrape timing settings.
// Durations are expressed in seconds.
type CrawlerConfig struct {
	PollTimeout          int `mapstructure:"poll_timeout"`
	Backoff              int `mapstructure:"backoff"`
	NavigationTimeout    int `mapstructure:"navigation_timeout"`
	SettleDelay          int `mapstructure:"settle_delay"`
	MaxRequestsPerSecond int `mapstructure:"max_requests_per_second"`
	StockPlaceholder     int `mapstructure:"stock_placeholder"`
}

// BrowserConfig holds headless browser launch settings
type BrowserConfig struct {
	Bin            string   `mapstructure:"bin"`
	Headless       bool     `mapstructure:"headless"`
	NoSandbox      bool     `mapstructure:"no_sandbox"`
	UserAgent      string   `mapstructure:"user_agent"`
	ViewportWidth  int      `mapstructure:"viewport_width"`
	ViewportHeight int      `mapstructure:"viewport_height"`
	Proxies        []string `mapstructure:"proxies"`
	ProxyTestURL   string   `mapstructure:"proxy_test_url"`
}

// SelectorsConfig holds the ordered CSS selector strategies per field
type SelectorsConfig struct {
	Title        []string `mapstructure:"title"`
	Price        []string `mapstructure:"price"`
	Thumbnails   []string `mapstructure:"thumbnails"`
	DetailImages []string `mapstructure:"detail_images"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	Database     int    `mapstructure:"database"`
	Queue        string `mapstructure:"queue"`
	ResultPrefix string `mapstructure:"result_prefix"`
	ResultTTL    int    `mapstructure:"result_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN returns the pgx connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (c CrawlerConfig) PollTimeoutDuration() time.Duration {
	return time.Duration(c.PollTimeout) * time.Second
}

func (c CrawlerConfig) BackoffDuration() time.Duration {
	return time.Duration(c.Backoff) * time.Second
}

func (c CrawlerConfig) NavigationTimeoutDuration() time.Duration {
	return time.Duration(c.NavigationTimeout) * time.Second
}

func (c CrawlerConfig) SettleDelayDuration() time.Duration {
	return time.Duration(c.SettleDelay) * time.Second
}

func (r RedisConfig) ResultTTLDuration() time.Duration {
	return time.Duration(r.ResultTTL) * time.Second
}

// Load loads configuration from an optional YAML file with environment variable overrides.
// Environment keys use "_" in place of ".", e.g. REDIS_HOST or CRAWLER_BACKOFF.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Redis.Queue == "" {
		return fmt.Errorf("redis.queue must not be empty")
	}
	if c.Redis.ResultTTL <= 0 {
		return fmt.Errorf("redis.result_ttl must be positive, got %d", c.Redis.ResultTTL)
	}
	if c.Crawler.PollTimeout <= 0 {
		return fmt.Errorf("crawler.poll_timeout must be positive, got %d", c.Crawler.PollTimeout)
	}
	if c.Crawler.NavigationTimeout <= 0 {
		return fmt.Errorf("crawler.navigation_timeout must be positive, got %d", c.Crawler.NavigationTimeout)
	}
	if c.Crawler.Backoff < 0 || c.Crawler.SettleDelay < 0 || c.Crawler.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("crawler durations and rate limit must not be negative")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 9090)
	viper.SetDefault("server.host", "0.0.0.0")

	viper.SetDefault("crawler.poll_timeout", 5)
	viper.SetDefault("crawler.backoff", 5)
	viper.SetDefault("crawler.navigation_timeout", 30)
	viper.SetDefault("crawler.settle_delay", 3)
	viper.SetDefault("crawler.max_requests_per_second", 0)
	viper.SetDefault("crawler.stock_placeholder", 999)

	viper.SetDefault("browser.bin", "")
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.no_sandbox", true)
	viper.SetDefault("browser.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	viper.SetDefault("browser.viewport_width", 1920)
	viper.SetDefault("browser.viewport_height", 1080)
	viper.SetDefault("browser.proxies", []string{})
	viper.SetDefault("browser.proxy_test_url", "https://www.taobao.com")

	viper.SetDefault("selectors.title", DefaultTitleSelectors)
	viper.SetDefault("selectors.price", DefaultPriceSelectors)
	viper.SetDefault("selectors.thumbnails", DefaultThumbnailSelectors)
	viper.SetDefault("selectors.detail_images", DefaultDetailImageSelectors)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.name", "taobao_smartstore")
	viper.SetDefault("db.user", "taobao")
	viper.SetDefault("db.password", "taobao123")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("redis.host", "redis")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.queue", "crawl_queue")
	viper.SetDefault("redis.result_prefix", "crawl_result:")
	viper.SetDefault("redis.result_ttl", 3600)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}
