// Package config handles configuration loading for smartvalue.
// It supports YAML config files with environment variable overrides and an
// optional .env file for provider keys.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
	Normalize NormalizeConfig `mapstructure:"normalize" yaml:"normalize"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Store     StoreConfig     `mapstructure:"store"     yaml:"store"`
	Export    ExportConfig    `mapstructure:"export"    yaml:"export"`
	Models    ModelsConfig    `mapstructure:"models"    yaml:"models"`
	Macro     MacroConfig     `mapstructure:"macro"     yaml:"macro"`
	Forex     ForexConfig     `mapstructure:"forex"     yaml:"forex"`
	Monitor   MonitorConfig   `mapstructure:"monitor"   yaml:"monitor"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// CollectorConfig holds batch collection pacing and retry settings.
type CollectorConfig struct {
	Source        string        `mapstructure:"source"          yaml:"source"          validate:"required"`
	BatchSize     int           `mapstructure:"batch_size"      yaml:"batch_size"      validate:"gte=1"`
	MaxRetries    int           `mapstructure:"max_retries"     yaml:"max_retries"     validate:"gte=0"`
	RetryCooldown time.Duration `mapstructure:"retry_cooldown"  yaml:"retry_cooldown"  validate:"gte=0"`
	MinBatchDelay time.Duration `mapstructure:"min_batch_delay" yaml:"min_batch_delay" validate:"gte=0"`
	MaxBatchDelay time.Duration `mapstructure:"max_batch_delay" yaml:"max_batch_delay" validate:"gtefield=MinBatchDelay"`
}

// NormalizeConfig holds row normalizer settings.
type NormalizeConfig struct {
	PreserveNulls bool `mapstructure:"preserve_nulls" yaml:"preserve_nulls"`
}

// ProvidersConfig holds data source credentials and transport settings.
type ProvidersConfig struct {
	FMPAPIKey         string        `mapstructure:"fmp_api_key"         yaml:"fmp_api_key"`
	FREDAPIKey        string        `mapstructure:"fred_api_key"        yaml:"fred_api_key"`
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"             validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	UserAgent         string        `mapstructure:"user_agent"          yaml:"user_agent"`
}

// StoreConfig selects where per-ticker records are kept.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=json badger"`
	Dir     string `mapstructure:"dir"     yaml:"dir"     validate:"required"`
}

// ExportConfig holds the aggregate export destination.
type ExportConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// ModelsConfig locates spreadsheet templates and generated models.
type ModelsConfig struct {
	TemplateDir string `mapstructure:"template_dir" yaml:"template_dir"`
	OutputDir   string `mapstructure:"output_dir"   yaml:"output_dir"`
	MonitorPath string `mapstructure:"monitor_path" yaml:"monitor_path"`
}

// MacroConfig selects the macro data source. With source "fixed" the
// configured rates are returned instead of live lookups.
type MacroConfig struct {
	Source     string  `mapstructure:"source"      yaml:"source"      validate:"oneof=live fixed"`
	RiskFreeUS float64 `mapstructure:"risk_free_us" yaml:"risk_free_us"`
	RiskFreeCN float64 `mapstructure:"risk_free_cn" yaml:"risk_free_cn"`
	RiskFreeHK float64 `mapstructure:"risk_free_hk" yaml:"risk_free_hk"`
}

// ForexConfig holds the exchange rate service settings.
type ForexConfig struct {
	BaseURL  string        `mapstructure:"base_url"  yaml:"base_url"  validate:"required,url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// MonitorConfig holds the scheduled refresh settings.
type MonitorConfig struct {
	Schedule   string        `mapstructure:"schedule"    yaml:"schedule"`
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout" validate:"gte=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.smartvalue/config.yaml (home directory)
//  3. /etc/smartvalue/config.yaml (system)
//
// Environment variables override config file values.
// Format: SMARTVALUE_<SECTION>_<KEY>, e.g., SMARTVALUE_COLLECTOR_BATCH_SIZE
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".smartvalue"))
	v.AddConfigPath("/etc/smartvalue")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return finish(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SMARTVALUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Collector defaults
	v.SetDefault("collector.source", "yq")
	v.SetDefault("collector.batch_size", 3)
	v.SetDefault("collector.max_retries", 2)
	v.SetDefault("collector.retry_cooldown", 60*time.Second)
	v.SetDefault("collector.min_batch_delay", 15*time.Second)
	v.SetDefault("collector.max_batch_delay", 90*time.Second)

	v.SetDefault("normalize.preserve_nulls", false)

	// Provider transport defaults
	v.SetDefault("providers.timeout", 30*time.Second)
	v.SetDefault("providers.requests_per_second", 2.0)
	v.SetDefault("providers.user_agent", "")

	// Storage and export
	v.SetDefault("store.backend", "json")
	v.SetDefault("store.dir", "financial_models/Opportunities/Screener/data")
	v.SetDefault("export.path", "financial_models/Opportunities/Screener/screener_summary.csv")

	// Spreadsheet models
	v.SetDefault("models.template_dir", "financial_models/Model_templates")
	v.SetDefault("models.output_dir", "financial_models/Opportunities")
	v.SetDefault("models.monitor_path", "financial_models/Monitor.xlsx")

	// Macro defaults
	v.SetDefault("macro.source", "live")
	v.SetDefault("macro.risk_free_us", 0.08)
	v.SetDefault("macro.risk_free_cn", 0.06)
	v.SetDefault("macro.risk_free_hk", 0.08)

	v.SetDefault("forex.base_url", "https://api.frankfurter.app")
	v.SetDefault("forex.cache_ttl", 1*time.Hour)

	v.SetDefault("monitor.schedule", "0 18 * * 1-5") // weekdays after close
	v.SetDefault("monitor.run_timeout", 30*time.Minute)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads provider keys from their conventional
// environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("FMP_API_KEY"); key != "" && cfg.Providers.FMPAPIKey == "" {
		cfg.Providers.FMPAPIKey = key
	}
	if key := os.Getenv("FRED_API_KEY"); key != "" && cfg.Providers.FREDAPIKey == "" {
		cfg.Providers.FREDAPIKey = key
	}
	if key := os.Getenv("SMARTVALUE_PROVIDERS_FMP_API_KEY"); key != "" {
		cfg.Providers.FMPAPIKey = key
	}
	if key := os.Getenv("SMARTVALUE_PROVIDERS_FRED_API_KEY"); key != "" {
		cfg.Providers.FREDAPIKey = key
	}
}

// loadDotEnv loads ./.env into the environment. Variables already set win.
func loadDotEnv() {
	_ = godotenv.Load()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
