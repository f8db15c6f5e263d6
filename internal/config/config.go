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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
	Watch    WatchConfig    `yaml:"watch" mapstructure:"watch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the alert/benchmark database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// AnalysisConfig configures the analysis pass.
type AnalysisConfig struct {
	AvgOrderValue      float64 `yaml:"avg_order_value" mapstructure:"avg_order_value"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
	Direction          string  `yaml:"direction" mapstructure:"direction"`
	NewAlertWindowDays int     `yaml:"new_alert_window_days" mapstructure:"new_alert_window_days"`
}

// NotifyConfig configures webhook alert delivery.
type NotifyConfig struct {
	WebhookURL  string `yaml:"webhook_url" mapstructure:"webhook_url"`
	MinSeverity string `yaml:"min_severity" mapstructure:"min_severity"`
	RatePerMin  int    `yaml:"rate_per_min" mapstructure:"rate_per_min"`
}

// WatchConfig configures the periodic re-analysis loop.
type WatchConfig struct {
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration is usable for the given command
// mode. Dataset-only commands run without a store; store-backed commands need
// a reachable driver.
func (c *Config) Validate(mode string) error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "analyze", "stats":
	case "alerts", "benchmark", "watch":
		switch c.Store.Driver {
		case "sqlite":
			check(c.Store.Path != "", "store.path is required for sqlite")
		case "postgres":
			check(c.Store.DatabaseURL != "", "store.database_url is required for postgres")
		default:
			check(false, "store.driver must be sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	check(c.Analysis.AvgOrderValue > 0, "analysis.avg_order_value must be > 0")
	check(c.Analysis.Concurrency >= 1 && c.Analysis.Concurrency <= 32,
		"analysis.concurrency must be between 1 and 32")
	check(c.Analysis.NewAlertWindowDays >= 0, "analysis.new_alert_window_days must be >= 0")
	if mode == "watch" {
		check(c.Watch.IntervalSecs > 0, "watch.interval_secs must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PARTNERPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "partner-pulse.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("analysis.direction", "")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("analysis.avg_order_value", 2500.0)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.new_alert_window_days", 7)
	v.SetDefault("notify.min_severity", "high")
	v.SetDefault("notify.rate_per_min", 30)
	v.SetDefault("watch.interval_secs", 300)
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
