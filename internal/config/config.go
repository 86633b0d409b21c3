package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/shitalnb11/indian-market-dashboard/internal/logger"
)

// Config represents the complete application configuration
type Config struct {
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
	Market    MarketConfig    `mapstructure:"market"`
	Signal    SignalConfig    `mapstructure:"signal"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Web       WebConfig       `mapstructure:"web"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// WatchlistConfig holds the set of symbols to poll
type WatchlistConfig struct {
	Symbols []string `mapstructure:"symbols"`
}

// MarketConfig holds price data source configuration
type MarketConfig struct {
	Provider     string        `mapstructure:"provider"` // "yahoo" or "stub"
	PollInterval time.Duration `mapstructure:"poll_interval"`
	LookbackDays int           `mapstructure:"lookback_days"`
	Interval     string        `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SignalConfig holds moving average and marker configuration
type SignalConfig struct {
	ShortWindow int  `mapstructure:"short_window"`
	LongWindow  int  `mapstructure:"long_window"`
	ShowMarkers bool `mapstructure:"show_markers"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// CacheConfig holds the local bar cache configuration
type CacheConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DBPath        string `mapstructure:"db_path"`
	ServeStale    bool   `mapstructure:"serve_stale"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// WebConfig holds the HTTP dashboard configuration
type WebConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Watchlist.Symbols = normalizeSymbols(cfg.Watchlist.Symbols)

	return &cfg, nil
}

// Watch re-reads the config file whenever it changes on disk and hands each
// valid new snapshot to onChange. Updates that fail to parse or validate are
// discarded with a warning and the previous configuration stays active.
func Watch(path string, onChange func(*Config)) error {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Warn("Ignoring config change %s: %v", e.Name, err)
			return
		}
		cfg.Watchlist.Symbols = normalizeSymbols(cfg.Watchlist.Symbols)
		if err := cfg.Validate(); err != nil {
			logger.Warn("Ignoring invalid config change %s: %v", e.Name, err)
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()

	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	v.SetEnvPrefix("MARKETDASH")
	v.AutomaticEnv()
	return v
}

// normalizeSymbols trims, upper-cases, and deduplicates the watchlist while
// preserving order.
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Watchlist defaults
	v.SetDefault("watchlist.symbols", []string{"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS"})

	// Market defaults
	v.SetDefault("market.provider", "yahoo")
	v.SetDefault("market.poll_interval", "60s")
	v.SetDefault("market.lookback_days", 30)
	v.SetDefault("market.interval", "1h")
	v.SetDefault("market.timeout", "30s")

	// Signal defaults
	v.SetDefault("signal.short_window", 10)
	v.SetDefault("signal.long_window", 50)
	v.SetDefault("signal.show_markers", true)

	// Telegram defaults
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.db_path", "./data/marketdash.db")
	v.SetDefault("cache.serve_stale", true)
	v.SetDefault("cache.retention_days", 90)

	// Web defaults
	v.SetDefault("web.enabled", true)
	v.SetDefault("web.listen_addr", ":8080")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Watchlist config
	if len(c.Watchlist.Symbols) == 0 {
		return fmt.Errorf("watchlist.symbols must contain at least one symbol")
	}

	// Validate Market config
	validProviders := map[string]bool{"yahoo": true, "stub": true}
	if !validProviders[c.Market.Provider] {
		return fmt.Errorf("market.provider must be one of: yahoo, stub")
	}
	if c.Market.PollInterval < 15*time.Second || c.Market.PollInterval > 5*time.Minute {
		return fmt.Errorf("market.poll_interval must be between 15s and 5m")
	}
	if c.Market.LookbackDays < 5 || c.Market.LookbackDays > 180 {
		return fmt.Errorf("market.lookback_days must be between 5 and 180")
	}
	validIntervals := map[string]bool{"15m": true, "30m": true, "1h": true, "1d": true}
	if !validIntervals[c.Market.Interval] {
		return fmt.Errorf("market.interval must be one of: 15m, 30m, 1h, 1d")
	}
	if c.Market.Timeout < 1*time.Second {
		return fmt.Errorf("market.timeout must be at least 1 second")
	}

	// Validate Signal config
	if c.Signal.ShortWindow < 1 || c.Signal.ShortWindow > 50 {
		return fmt.Errorf("signal.short_window must be between 1 and 50")
	}
	if c.Signal.LongWindow < 1 || c.Signal.LongWindow > 200 {
		return fmt.Errorf("signal.long_window must be between 1 and 200")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.MaxRetries < 1 {
			return fmt.Errorf("telegram.max_retries must be at least 1")
		}
		if c.Telegram.RetryDelayBase < 100*time.Millisecond {
			return fmt.Errorf("telegram.retry_delay_base must be at least 100ms")
		}
	}

	// Validate Cache config
	if c.Cache.Enabled {
		if c.Cache.DBPath == "" {
			return fmt.Errorf("cache.db_path is required when cache is enabled")
		}
		if c.Cache.RetentionDays < 1 {
			return fmt.Errorf("cache.retention_days must be at least 1")
		}
	}

	// Validate Web config
	if c.Web.Enabled && c.Web.ListenAddr == "" {
		return fmt.Errorf("web.listen_addr is required when web is enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// GetWatchlistConfig returns the Watchlist configuration
func (c *Config) GetWatchlistConfig() WatchlistConfig {
	return c.Watchlist
}

// GetMarketConfig returns the Market configuration
func (c *Config) GetMarketConfig() MarketConfig {
	return c.Market
}

// GetSignalConfig returns the Signal configuration
func (c *Config) GetSignalConfig() SignalConfig {
	return c.Signal
}

// GetTelegramConfig returns the Telegram configuration
func (c *Config) GetTelegramConfig() TelegramConfig {
	return c.Telegram
}

// GetCacheConfig returns the Cache configuration
func (c *Config) GetCacheConfig() CacheConfig {
	return c.Cache
}

// GetWebConfig returns the Web configuration
func (c *Config) GetWebConfig() WebConfig {
	return c.Web
}

// GetLoggingConfig returns the Logging configuration
func (c *Config) GetLoggingConfig() LoggingConfig {
	return c.Logging
}
