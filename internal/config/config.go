// Package config loads and validates monitor configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs fetch politeness and crawl budgets.
type CrawlerConfig struct {
	UserAgent       string `mapstructure:"user_agent"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	DelayMinMs      int    `mapstructure:"delay_min_ms"`
	DelayMaxMs      int    `mapstructure:"delay_max_ms"`
	MaxDepthDefault int    `mapstructure:"max_depth_default"`
	MaxPagesDefault int    `mapstructure:"max_pages_default"`
}

// StorageConfig sets the record-set and artifact directories.
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	SnapshotDir   string `mapstructure:"snapshot_dir"`
	AlertDir      string `mapstructure:"alert_dir"`
	AttachmentDir string `mapstructure:"attachment_dir"`
	RecentChanges int    `mapstructure:"recent_changes"`
}

// SchedulerConfig controls the digest cron job.
type SchedulerConfig struct {
	DigestHour int `mapstructure:"digest_hour"`
}

// NotifyConfig holds notification defaults.
type NotifyConfig struct {
	DefaultRecipient string `mapstructure:"default_recipient"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 sitewatch/1.0")
	v.SetDefault("crawler.timeout_seconds", 10)
	v.SetDefault("crawler.delay_min_ms", 500)
	v.SetDefault("crawler.delay_max_ms", 2000)
	v.SetDefault("crawler.max_depth_default", 2)
	v.SetDefault("crawler.max_pages_default", 100)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.snapshot_dir", "scraped_websites/snapshots")
	v.SetDefault("storage.alert_dir", "scraped_websites/alerts")
	v.SetDefault("storage.attachment_dir", "scraped_websites/attachments")
	v.SetDefault("storage.recent_changes", 50)
	v.SetDefault("scheduler.digest_hour", 9)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.DelayMinMs < 0 || c.Crawler.DelayMaxMs < c.Crawler.DelayMinMs {
		return fmt.Errorf("crawler delay bounds must satisfy 0 <= min <= max")
	}
	if c.Crawler.MaxDepthDefault < 0 {
		return fmt.Errorf("crawler.max_depth_default must be >= 0")
	}
	if c.Crawler.MaxPagesDefault <= 0 {
		return fmt.Errorf("crawler.max_pages_default must be > 0")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	if c.Scheduler.DigestHour < 0 || c.Scheduler.DigestHour > 23 {
		return fmt.Errorf("scheduler.digest_hour must be in [0,23]")
	}
	return nil
}

// Timeout returns the fetch timeout as a duration.
func (c CrawlerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DelayBounds returns the politeness interval as durations.
func (c CrawlerConfig) DelayBounds() (time.Duration, time.Duration) {
	return time.Duration(c.DelayMinMs) * time.Millisecond,
		time.Duration(c.DelayMaxMs) * time.Millisecond
}
