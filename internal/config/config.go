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
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Gateway   GatewayConfig   `yaml:"gateway" mapstructure:"gateway"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Gate      GateConfig      `yaml:"gate" mapstructure:"gate"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GeneratorConfig tunes the sequence-generation pool.
type GeneratorConfig struct {
	Backend                string `yaml:"backend" mapstructure:"backend"`
	Model                  string `yaml:"model" mapstructure:"model"`
	CallTimeoutSecs        int    `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	Workers                int    `yaml:"workers" mapstructure:"workers"`
	PaceSecs               int    `yaml:"pace_secs" mapstructure:"pace_secs"`
	CooldownSecs           int    `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
	MaxAttempts            int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxAttemptsRateLimited int    `yaml:"max_attempts_rate_limited" mapstructure:"max_attempts_rate_limited"`
	RetryPauseMs           int    `yaml:"retry_pause_ms" mapstructure:"retry_pause_ms"`
}

// GatewayConfig holds the generation gateway endpoint settings.
type GatewayConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
}

// AnthropicConfig holds Anthropic API settings for the direct backend.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EnrichConfig tunes the enrichment poller and record retention.
type EnrichConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	IntervalSecs     int    `yaml:"interval_secs" mapstructure:"interval_secs"`
	InitialDelaySecs int    `yaml:"initial_delay_secs" mapstructure:"initial_delay_secs"`
	MaxDurationSecs  int    `yaml:"max_duration_secs" mapstructure:"max_duration_secs"`
	GraceSecs        int    `yaml:"grace_secs" mapstructure:"grace_secs"`
	StaleTicks       int    `yaml:"stale_ticks" mapstructure:"stale_ticks"`
	RecordTTLMins    int    `yaml:"record_ttl_mins" mapstructure:"record_ttl_mins"`
}

// GateConfig holds the usage gate endpoint settings.
type GateConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Account string `yaml:"account" mapstructure:"account"`
}

// StoreConfig configures the KV store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MANTYL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("generator.backend", "gateway")
	v.SetDefault("generator.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("generator.call_timeout_secs", 75)
	v.SetDefault("generator.workers", 2)
	v.SetDefault("generator.pace_secs", 20)
	v.SetDefault("generator.cooldown_secs", 45)
	v.SetDefault("generator.max_attempts", 2)
	v.SetDefault("generator.max_attempts_rate_limited", 3)
	v.SetDefault("generator.retry_pause_ms", 1500)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("enrich.interval_secs", 5)
	v.SetDefault("enrich.initial_delay_secs", 4)
	v.SetDefault("enrich.max_duration_secs", 120)
	v.SetDefault("enrich.grace_secs", 20)
	v.SetDefault("enrich.stale_ticks", 4)
	v.SetDefault("enrich.record_ttl_mins", 30)
	v.SetDefault("gate.enabled", true)
	v.SetDefault("gate.account", "default")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "mantyl-seqgen.db")
	v.SetDefault("server.port", 8080)
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
