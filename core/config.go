package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type RetryConfig struct {
	MaxRetries int           `koanf:"max_retries" mapstructure:"max_retries"`
	BaseDelay  time.Duration `koanf:"base_delay" mapstructure:"base_delay"`
	MaxDelay   time.Duration `koanf:"max_delay" mapstructure:"max_delay"`
}

type ChannelConfig struct {
	StreamURL     string        `koanf:"stream_url" mapstructure:"stream_url"`
	MaxReconnects int           `koanf:"max_reconnects" mapstructure:"max_reconnects"`
	BaseDelay     time.Duration `koanf:"base_delay" mapstructure:"base_delay"`
	MaxDelay      time.Duration `koanf:"max_delay" mapstructure:"max_delay"`
}

type SyncConfig struct {
	PageSize  int           `koanf:"page_size" mapstructure:"page_size"`
	Resources []string      `koanf:"resources" mapstructure:"resources"`
	Interval  time.Duration `koanf:"interval" mapstructure:"interval"`
}

type Config struct {
	ClientName string        `koanf:"client_name" mapstructure:"client_name"`
	BaseURL    string        `koanf:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `koanf:"timeout" mapstructure:"timeout"`
	Retry      RetryConfig   `koanf:"retry" mapstructure:"retry"`
	Channel    ChannelConfig `koanf:"channel" mapstructure:"channel"`
	Sync       SyncConfig    `koanf:"sync" mapstructure:"sync"`
}

func DefaultConfig() Config {
	return Config{
		ClientName: "florin",
		Timeout:    DefaultRequestTimeout,
		Retry: RetryConfig{
			MaxRetries: DefaultMaxRetries,
			BaseDelay:  DefaultRetryBaseDelay,
			MaxDelay:   DefaultRetryMaxDelay,
		},
		Channel: ChannelConfig{
			MaxReconnects: 5,
			BaseDelay:     time.Second,
			MaxDelay:      30 * time.Second,
		},
		Sync: SyncConfig{
			PageSize: 100,
			Interval: 15 * time.Minute,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientName) == "" {
		return fmt.Errorf("core: client_name is required")
	}
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return fmt.Errorf("core: base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: base_url must be an absolute URL")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("core: timeout must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("core: retry.max_retries must not be negative")
	}
	if c.Channel.MaxReconnects < 0 {
		return fmt.Errorf("core: channel.max_reconnects must not be negative")
	}
	if c.Sync.PageSize < 0 {
		return fmt.Errorf("core: sync.page_size must not be negative")
	}
	return nil
}
