// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Browser BrowserConfig `mapstructure:"browser"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// DBConfig controls the Postgres connection pool.
type DBConfig struct {
	DSN               string `mapstructure:"dsn"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	ConnLifetimeMin   int    `mapstructure:"conn_lifetime_minutes"`
	AcquireTimeoutSec int    `mapstructure:"acquire_timeout_seconds"`
}

// CrawlerConfig governs the crawl pipeline.
type CrawlerConfig struct {
	UserAgent       string  `mapstructure:"user_agent"`
	AcceptLanguage  string  `mapstructure:"accept_language"`
	PageCeiling     int     `mapstructure:"page_ceiling"`
	LinkedInCeiling int     `mapstructure:"linkedin_page_ceiling"`
	PageQPS         float64 `mapstructure:"page_qps"`
}

// BrowserConfig configures the headless browser subsystem.
type BrowserConfig struct {
	ExecPath      string `mapstructure:"exec_path"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
}

// SMTPConfig holds mail delivery credentials for the alert dispatcher.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// CleanupConfig drives the retention sweeper.
type CleanupConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Schedule      string `mapstructure:"schedule"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoggingConfig toggles zap development features; development mode also
// allows a headful browser and error detail in API responses.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCOUT")
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
	v.SetDefault("server.timeout_seconds", 180)
	// Keys without a real default still need registering so AutomaticEnv
	// can populate them through Unmarshal.
	v.SetDefault("db.dsn", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("db.acquire_timeout_seconds", 10)
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("crawler.accept_language", "en-US,en;q=0.9")
	v.SetDefault("crawler.page_ceiling", 5)
	v.SetDefault("crawler.linkedin_page_ceiling", 3)
	v.SetDefault("crawler.page_qps", 0.5)
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.schedule", "@daily")
	v.SetDefault("cleanup.retention_days", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Crawler.PageCeiling <= 0 {
		return fmt.Errorf("crawler.page_ceiling must be > 0")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Cleanup.Enabled && c.Cleanup.RetentionDays <= 0 {
		return fmt.Errorf("cleanup.retention_days must be > 0 when cleanup is enabled")
	}
	return nil
}

// NavTimeout converts the browser navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

// Retention converts the cleanup window into a duration.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Cleanup.RetentionDays) * 24 * time.Hour
}
