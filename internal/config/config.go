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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Predictive PredictiveConfig `yaml:"predictive" mapstructure:"predictive"`
	Fusion     FusionConfig     `yaml:"fusion" mapstructure:"fusion"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the REST API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SourcesConfig configures the five gateway-backed source adapters.
// Mode "fixture" serves canned payloads from FixtureDir; "http" calls the
// configured gateways.
type SourcesConfig struct {
	Mode       string         `yaml:"mode" mapstructure:"mode"`
	FixtureDir string         `yaml:"fixture_dir" mapstructure:"fixture_dir"`
	Registry   EndpointConfig `yaml:"registry" mapstructure:"registry"`
	Escalation EndpointConfig `yaml:"escalation" mapstructure:"escalation"`
	Personnel  EndpointConfig `yaml:"personnel" mapstructure:"personnel"`
	Financial  EndpointConfig `yaml:"financial" mapstructure:"financial"`
	Monitoring EndpointConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// EndpointConfig is one upstream gateway.
type EndpointConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Token        string  `yaml:"token" mapstructure:"token"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// PredictiveConfig configures the predictive-analysis subprocess. An empty
// BinPath disables the engine and every document uses the fallback forecast.
type PredictiveConfig struct {
	BinPath     string   `yaml:"bin_path" mapstructure:"bin_path"`
	Args        []string `yaml:"args" mapstructure:"args"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	HorizonDays int      `yaml:"horizon_days" mapstructure:"horizon_days"`
	Scenarios   []string `yaml:"scenarios" mapstructure:"scenarios"`
	TempDir     string   `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// FusionConfig configures the external risk-management record store. An
// empty BaseURL selects the in-memory store.
type FusionConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Token       string `yaml:"token" mapstructure:"token"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ResilienceConfig tunes retries and circuit breakers for upstream calls.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// MonitoringConfig configures the background alert checker started by serve.
// An empty WebhookURL still evaluates and logs alerts but sends nothing.
type MonitoringConfig struct {
	Enabled                bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL             string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs      int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours    int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold" mapstructure:"low_confidence_threshold"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "bia.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sources.mode", "fixture")
	v.SetDefault("sources.fixture_dir", "testdata/fixtures")
	for _, name := range []string{"registry", "escalation", "personnel", "financial", "monitoring"} {
		v.SetDefault("sources."+name+".timeout_secs", 10)
		v.SetDefault("sources."+name+".rate_limit_rps", 5.0)
	}
	v.SetDefault("predictive.timeout_secs", 30)
	v.SetDefault("predictive.horizon_days", 90)
	v.SetDefault("predictive.scenarios", []string{"best_case", "likely_case", "worst_case"})
	v.SetDefault("fusion.timeout_secs", 15)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 200)
	v.SetDefault("resilience.max_backoff_ms", 5000)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 168)
	v.SetDefault("monitoring.low_confidence_threshold", 0.25)

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

// Validate checks the settings a command mode depends on. Modes: "serve",
// "generate", "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	storeProblems := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}
	sourceProblems := func() {
		switch c.Sources.Mode {
		case "fixture":
			if c.Sources.FixtureDir == "" {
				problems = append(problems, "sources.fixture_dir is required in fixture mode")
			}
		case "http":
			for name, ep := range c.Sources.endpoints() {
				if ep.BaseURL == "" {
					problems = append(problems, "sources."+name+".base_url is required in http mode")
				}
			}
		default:
			problems = append(problems, "sources.mode must be fixture or http")
		}
	}

	switch mode {
	case "store":
		storeProblems()
	case "generate":
		storeProblems()
		sourceProblems()
	case "serve":
		storeProblems()
		sourceProblems()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RateLimitRPS <= 0 {
			problems = append(problems, "server.rate_limit_rps must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (s SourcesConfig) endpoints() map[string]EndpointConfig {
	return map[string]EndpointConfig{
		"registry":   s.Registry,
		"escalation": s.Escalation,
		"personnel":  s.Personnel,
		"financial":  s.Financial,
		"monitoring": s.Monitoring,
	}
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
