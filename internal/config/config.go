// Package config loads application configuration from config.yaml and
// CAL_-prefixed environment variables, with environment taking precedence.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the root configuration for all commands.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Lookup    LookupConfig    `yaml:"lookup" mapstructure:"lookup"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Intent    ServiceConfig   `yaml:"intent" mapstructure:"intent"`
	NER       ServiceConfig   `yaml:"ner" mapstructure:"ner"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Seed      SeedConfig      `yaml:"seed" mapstructure:"seed"`
}

// StoreConfig selects and sizes the reference store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"` // sqlite file path
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig selects the lookup cache backend.
type CacheConfig struct {
	Driver              string `yaml:"driver" mapstructure:"driver"` // "memory" or "redis"
	RedisAddr           string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword       string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB             int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLSecs             int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	CleanupIntervalSecs int    `yaml:"cleanup_interval_secs" mapstructure:"cleanup_interval_secs"`
}

// LookupConfig tunes the nutrition lookup cascade.
type LookupConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	FuzzyRatioThreshold float64 `yaml:"fuzzy_ratio_threshold" mapstructure:"fuzzy_ratio_threshold"`
	StoreTimeoutSecs    int     `yaml:"store_timeout_secs" mapstructure:"store_timeout_secs"`
}

// PipelineConfig tunes query resolution and modification handling.
type PipelineConfig struct {
	DishFuzzyThreshold  float64 `yaml:"dish_fuzzy_threshold" mapstructure:"dish_fuzzy_threshold"`
	DefaultAddedWeightG float64 `yaml:"default_added_weight_g" mapstructure:"default_added_weight_g"`
}

// ServiceConfig points at an external HTTP model service. An empty URL
// disables the service and the pipeline falls back to local heuristics.
type ServiceConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig configures ingredient suggestions for unresolved queries.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures the global zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// SeedConfig points at reference data files for the seed command.
type SeedConfig struct {
	DishesPath    string `yaml:"dishes_path" mapstructure:"dishes_path"`
	SynonymsPath  string `yaml:"synonyms_path" mapstructure:"synonyms_path"`
	UnitsPath     string `yaml:"units_path" mapstructure:"units_path"`
	NutritionPath string `yaml:"nutrition_path" mapstructure:"nutrition_path"`
}

// Load reads config.yaml from the working directory (if present), applies
// defaults, and overlays CAL_-prefixed environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.path", "cal.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl_secs", 3600)
	v.SetDefault("cache.cleanup_interval_secs", 300)
	v.SetDefault("lookup.similarity_threshold", 0.3)
	v.SetDefault("lookup.fuzzy_ratio_threshold", 70)
	v.SetDefault("lookup.store_timeout_secs", 2)
	v.SetDefault("pipeline.dish_fuzzy_threshold", 70)
	v.SetDefault("pipeline.default_added_weight_g", 100)
	v.SetDefault("intent.timeout_secs", 3)
	v.SetDefault("ner.timeout_secs", 3)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 256)
	v.SetDefault("anthropic.requests_per_minute", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// InitLogger builds the global zap logger from LogConfig.
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
