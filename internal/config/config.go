package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Session       SessionConfig      `mapstructure:"session"`
	Gateway       GatewayConfig      `mapstructure:"gateway"`
	Purchase      PurchaseConfig     `mapstructure:"purchase"`
	Search        SearchConfig       `mapstructure:"search"`
	Log           LogConfig          `mapstructure:"log"`
	Notifications NotificationConfig `mapstructure:"notifications"`
}

// SessionConfig holds the account credential
type SessionConfig struct {
	Cookie string `mapstructure:"cookie"`
}

// GatewayConfig holds the remote API settings
type GatewayConfig struct {
	MangaBaseURL   string        `mapstructure:"manga_base_url"`
	AccountBaseURL string        `mapstructure:"account_base_url"`
	PassportURL    string        `mapstructure:"passport_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// PurchaseConfig holds batch purchase settings
type PurchaseConfig struct {
	PacingInterval time.Duration `mapstructure:"pacing_interval"`
	RecordHistory  bool          `mapstructure:"record_history"`
}

// SearchConfig holds search and search cache settings
type SearchConfig struct {
	PageSize     int           `mapstructure:"page_size"`
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"` // in megabytes
	MaxBackups int    `mapstructure:"max_backups"`
}

// NotificationConfig holds desktop notification settings
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

const (
	DefaultMangaBaseURL   = "https://manga.bilibili.com"
	DefaultAccountBaseURL = "https://api.bilibili.com"
	DefaultPassportURL    = "https://passport.bilibili.com/login"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultTimeout        = 10 * time.Second
	DefaultPacing         = 300 * time.Millisecond
)

var cfg *Config

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mangaunlock")
}

// GetDBPath returns the database file path
func GetDBPath() string {
	return filepath.Join(GetConfigDir(), "mangaunlock.db")
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Init initializes the configuration
func Init(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(GetConfigDir())
	}

	// Environment variable overrides, e.g. MANGAUNLOCK_SESSION_COOKIE
	viper.SetEnvPrefix("MANGAUNLOCK")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	cfg = nil
	return nil
}

func setDefaults() {
	viper.SetDefault("session.cookie", "")
	viper.SetDefault("gateway.manga_base_url", DefaultMangaBaseURL)
	viper.SetDefault("gateway.account_base_url", DefaultAccountBaseURL)
	viper.SetDefault("gateway.passport_url", DefaultPassportURL)
	viper.SetDefault("gateway.timeout", DefaultTimeout)
	viper.SetDefault("gateway.user_agent", DefaultUserAgent)
	viper.SetDefault("purchase.pacing_interval", DefaultPacing)
	viper.SetDefault("purchase.record_history", true)
	viper.SetDefault("search.page_size", 9)
	viper.SetDefault("search.cache_enabled", true)
	viper.SetDefault("search.cache_ttl", time.Hour)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.path", "")
	viper.SetDefault("log.max_size", 50)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("notifications.enabled", false)
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
		_ = viper.Unmarshal(cfg)
		cfg.Log.Path = expandPath(cfg.Log.Path)
		if cfg.Gateway.Timeout <= 0 {
			cfg.Gateway.Timeout = DefaultTimeout
		}
		if cfg.Purchase.PacingInterval < 0 {
			cfg.Purchase.PacingInterval = DefaultPacing
		}
	}
	return cfg
}

// Set sets a configuration value
func Set(key, value string) error {
	viper.Set(key, value)

	// Ensure config directory exists
	configDir := GetConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// Reset cached config
	cfg = nil

	return viper.WriteConfigAs(GetConfigPath())
}

// GetValue retrieves a configuration value
func GetValue(key string) interface{} {
	return viper.Get(key)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
