package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Engines    EnginesConfig    `yaml:"engines" mapstructure:"engines"`
	Query      QueryConfig      `yaml:"query" mapstructure:"query"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Workflow   WorkflowConfig   `yaml:"workflow" mapstructure:"workflow"`
	Profiles   ProfilesConfig   `yaml:"profiles" mapstructure:"profiles"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the durable mirror backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// EnginesConfig configures the data gateway fan-out.
type EnginesConfig struct {
	FetchTimeoutSecs int     `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	RatePerSecond    float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// FetchTimeout returns the per-engine fetch bound as a duration.
func (c EnginesConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// BreakerReset returns how long a tripped engine stays skipped.
func (c EnginesConfig) BreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSecs) * time.Second
}

// QueryConfig configures the orchestrator.
type QueryConfig struct {
	CacheTTLSecs int `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// CacheTTL returns the response cache lifetime.
func (c QueryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// AuditConfig configures retention.
type AuditConfig struct {
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
}

// WorkflowConfig configures the automation engine.
type WorkflowConfig struct {
	TemplatesPath string `yaml:"templates_path" mapstructure:"templates_path"`
}

// ProfilesConfig points at the personalization profile file.
type ProfilesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures the background health checker.
type MonitoringConfig struct {
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	MinConfidence         float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	MinOutcomeAccuracy    float64 `yaml:"min_outcome_accuracy" mapstructure:"min_outcome_accuracy"`
	MaxCacheMissRate      float64 `yaml:"max_cache_miss_rate" mapstructure:"max_cache_miss_rate"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	MinDecisionsForAlerts int     `yaml:"min_decisions_for_alerts" mapstructure:"min_decisions_for_alerts"`
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
	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "intel.db")
	v.SetDefault("engines.fetch_timeout_secs", 5)
	v.SetDefault("engines.rate_per_second", 20)
	v.SetDefault("engines.breaker_threshold", 3)
	v.SetDefault("engines.breaker_reset_secs", 30)
	v.SetDefault("query.cache_ttl_secs", 300)
	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.min_confidence", 40)
	v.SetDefault("monitoring.min_outcome_accuracy", 0.6)
	v.SetDefault("monitoring.max_cache_miss_rate", 0.95)
	v.SetDefault("monitoring.min_decisions_for_alerts", 10)
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
