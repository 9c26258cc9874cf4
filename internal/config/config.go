package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	OpenFDA OpenFDAConfig `yaml:"openfda" mapstructure:"openfda"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// OpenFDAConfig configures the enforcement-record fetcher. APIKey is read
// from HAZARD_OPENFDA_API_KEY and stays server-side only.
type OpenFDAConfig struct {
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	APIKey          string `yaml:"api_key" mapstructure:"api_key"`
	MaxRecords      int    `yaml:"max_records" mapstructure:"max_records"`
	PageSize        int    `yaml:"page_size" mapstructure:"page_size"`
	RetryMaxRecords int    `yaml:"retry_max_records" mapstructure:"retry_max_records"`
	RetryPageSize   int    `yaml:"retry_page_size" mapstructure:"retry_page_size"`
	MaxAttempts     int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// GeocodeConfig configures the Nominatim client and its throttle.
type GeocodeConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	MinIntervalMS int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// StoreConfig selects the geocode cache backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// Load reads configuration from config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HAZARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("openfda.base_url", "https://api.fda.gov")
	v.SetDefault("openfda.api_key", "")
	v.SetDefault("openfda.max_records", 500)
	v.SetDefault("openfda.page_size", 100)
	v.SetDefault("openfda.retry_max_records", 1000)
	v.SetDefault("openfda.retry_page_size", 50)
	v.SetDefault("openfda.max_attempts", 3)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "hazard-atlas/1.0")
	v.SetDefault("geocode.min_interval_ms", 1100)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "hazard-atlas.db")

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
