package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

// Config holds the application configuration.
type Config struct {
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Transport TransportConfig `mapstructure:"transport"`
	API       APIConfig       `mapstructure:"api"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Log       LogConfig       `mapstructure:"log"`
}

// ScannerConfig holds scan policy and producer-mode settings.
type ScannerConfig struct {
	Mode            string  `mapstructure:"mode"`              // pull or push
	QuoteAsset      string  `mapstructure:"quote_asset"`       // suffix predicate, e.g. USDT
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"` // pull freshness cache
	PMinPct         float64 `mapstructure:"p_min_pct"`
	PMaxPct         float64 `mapstructure:"p_max_pct"` // 0 disables the upper bound
	LMaxPct         float64 `mapstructure:"l_max_pct"`
	RefreshCron     string  `mapstructure:"refresh_cron"` // cron spec for pull auto-refresh, empty disables
}

// TransportConfig holds exchange endpoint settings.
type TransportConfig struct {
	RestURL                 string `mapstructure:"rest_url"`
	PingURL                 string `mapstructure:"ping_url"`
	StreamURL               string `mapstructure:"stream_url"`
	HTTPTimeoutSeconds      int    `mapstructure:"http_timeout_seconds"`
	HandshakeTimeoutSeconds int    `mapstructure:"handshake_timeout_seconds"`
	RetryMax                int    `mapstructure:"retry_max"`
	RetryBaseDelaySeconds   int    `mapstructure:"retry_base_delay_seconds"`
}

// APIConfig holds the HTTP presentation settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// TelegramConfig holds the optional alert notifier settings. An empty
// BotToken disables the notifier.
type TelegramConfig struct {
	BotToken  string `mapstructure:"bot_token"`
	ChannelID string `mapstructure:"channel_id"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// cacheTTLChoices are the only cache TTLs the operator may select.
var cacheTTLChoices = []int{30, 60, 120, 300}

// LoadConfig reads configuration from a yaml file, applies SCANNER_* env
// overrides and validates the enumerated fields.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scanner.mode", "pull")
	v.SetDefault("scanner.quote_asset", "USDT")
	v.SetDefault("scanner.cache_ttl_seconds", 60)
	v.SetDefault("scanner.p_min_pct", 7.0)
	v.SetDefault("scanner.p_max_pct", 0.0)
	v.SetDefault("scanner.l_max_pct", 2.0)
	v.SetDefault("scanner.refresh_cron", "")
	v.SetDefault("transport.rest_url", "https://api.binance.com/api/v3/ticker/24hr")
	v.SetDefault("transport.ping_url", "https://api.binance.com/api/v3/ping")
	v.SetDefault("transport.stream_url", "wss://stream.binance.com:9443/ws/!ticker@arr")
	v.SetDefault("transport.http_timeout_seconds", 10)
	v.SetDefault("transport.handshake_timeout_seconds", 15)
	v.SetDefault("transport.retry_max", 3)
	v.SetDefault("transport.retry_base_delay_seconds", 5)
	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("log.level", "info")
}

// Validate checks the enumerated fields against their allowed sets.
func (c *Config) Validate() error {
	if _, ok := types.ParseMode(c.Scanner.Mode); !ok {
		return fmt.Errorf("invalid scanner.mode %q: must be pull or push", c.Scanner.Mode)
	}
	if !validCacheTTL(c.Scanner.CacheTTLSeconds) {
		return fmt.Errorf("invalid scanner.cache_ttl_seconds %d: must be one of %v",
			c.Scanner.CacheTTLSeconds, cacheTTLChoices)
	}
	if c.Scanner.QuoteAsset == "" {
		return fmt.Errorf("scanner.quote_asset must not be empty")
	}
	if c.Transport.RetryMax < 0 {
		return fmt.Errorf("transport.retry_max must not be negative")
	}
	if c.Transport.RetryBaseDelaySeconds <= 0 {
		return fmt.Errorf("transport.retry_base_delay_seconds must be positive")
	}
	if c.Transport.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("transport.http_timeout_seconds must be positive")
	}
	if c.Transport.HandshakeTimeoutSeconds <= 0 {
		return fmt.Errorf("transport.handshake_timeout_seconds must be positive")
	}
	return nil
}

// Mode returns the parsed transport mode. Validate has already rejected
// unknown values.
func (c *Config) Mode() types.Mode {
	m, _ := types.ParseMode(c.Scanner.Mode)
	return m
}

func validCacheTTL(ttl int) bool {
	for _, v := range cacheTTLChoices {
		if ttl == v {
			return true
		}
	}
	return false
}
