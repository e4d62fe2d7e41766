package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/site-quote/internal/pricing"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int             `yaml:"port" mapstructure:"port"`
	AdminToken          string          `yaml:"admin_token" mapstructure:"admin_token"`
	AllowedOrigins      []string        `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeoutSecs int             `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	RateLimit           RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders   bool            `yaml:"trust_proxy_headers" mapstructure:"trust_proxy_headers"`
}

// RateLimitConfig throttles quote submissions.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// EngineConfig configures questionnaire validation and the quote currency.
type EngineConfig struct {
	DefaultCurrency string `yaml:"default_currency" mapstructure:"default_currency"`
	RequireFullForm bool   `yaml:"require_full_form" mapstructure:"require_full_form"`
	StrictNumbers   bool   `yaml:"strict_numbers" mapstructure:"strict_numbers"`
}

// Pricing sources.
const (
	PricingSourceBuiltin = "builtin"
	PricingSourceFile    = "file"
	PricingSourceURL     = "url"
	PricingSourceStore   = "store"
)

// PricingConfig selects where the price table comes from.
type PricingConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`
	File        string `yaml:"file" mapstructure:"file"`
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RefreshSecs int    `yaml:"refresh_secs" mapstructure:"refresh_secs"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
}

// BatchConfig configures batch quoting.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ExportConfig configures lead exports.
type ExportConfig struct {
	Format    string `yaml:"format" mapstructure:"format"`
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITEQUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "site-quote.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("server.rate_limit.requests_per_second", 2.0)
	v.SetDefault("server.rate_limit.burst", 5)
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("engine.default_currency", pricing.DefaultCurrency)
	v.SetDefault("engine.require_full_form", false)
	v.SetDefault("engine.strict_numbers", false)
	v.SetDefault("pricing.source", PricingSourceBuiltin)
	v.SetDefault("pricing.file", "pricing.yaml")
	v.SetDefault("pricing.timeout_secs", 30)
	v.SetDefault("pricing.refresh_secs", 60)
	v.SetDefault("pricing.retries", 3)
	v.SetDefault("batch.concurrency", 8)
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.sheet_name", "Leads")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings the given command mode depends on. Modes are
// "quote", "batch", "serve" and "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	needStore := c.Pricing.Source == PricingSourceStore
	switch mode {
	case "quote", "batch":
	case "serve":
		needStore = true
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, "server.rate_limit.requests_per_second must be > 0")
		}
		if c.Server.RateLimit.Burst < 1 {
			errs = append(errs, "server.rate_limit.burst must be >= 1")
		}
	case "store":
		needStore = true
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if needStore {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}

	switch c.Pricing.Source {
	case PricingSourceBuiltin, PricingSourceStore:
	case PricingSourceFile:
		if c.Pricing.File == "" {
			errs = append(errs, "pricing.file is required when pricing.source is file")
		}
	case PricingSourceURL:
		if c.Pricing.URL == "" {
			errs = append(errs, "pricing.url is required when pricing.source is url")
		}
	default:
		errs = append(errs, "pricing.source must be builtin, file, url or store")
	}
	if c.Pricing.RefreshSecs < 0 {
		errs = append(errs, "pricing.refresh_secs must be >= 0")
	}
	if c.Pricing.Retries < 0 {
		errs = append(errs, "pricing.retries must be >= 0")
	}

	if err := pricing.ValidateCurrency(c.Engine.DefaultCurrency); err != nil {
		errs = append(errs, "engine.default_currency: "+err.Error())
	}

	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		errs = append(errs, "batch.concurrency must be between 1 and 64")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
