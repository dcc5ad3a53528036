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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Crawl    CrawlConfig    `yaml:"crawl" mapstructure:"crawl"`
	SMTP     SMTPConfig     `yaml:"smtp" mapstructure:"smtp"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the pattern store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CrawlConfig configures website discovery.
type CrawlConfig struct {
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxConcurrent     int      `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int      `yaml:"max_retries" mapstructure:"max_retries"`
	MaxBodyBytes      int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	GateCacheSize     int      `yaml:"gate_cache_size" mapstructure:"gate_cache_size"`
	HTTPFallback      bool     `yaml:"http_fallback" mapstructure:"http_fallback"`
	UserAgents        []string `yaml:"user_agents" mapstructure:"user_agents"`
	ExtraPaths        []string `yaml:"extra_paths" mapstructure:"extra_paths"`
}

// Timeout returns the per-request timeout.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SMTPConfig configures the mail server sensor.
type SMTPConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	HeloName       string `yaml:"helo_name" mapstructure:"helo_name"`
	MailFrom       string `yaml:"mail_from" mapstructure:"mail_from"`
	Port           int    `yaml:"port" mapstructure:"port"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CommandSecs    int    `yaml:"command_secs" mapstructure:"command_secs"`
	MaxConcurrent  int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	CatchAllProbe  bool   `yaml:"catch_all_probe" mapstructure:"catch_all_probe"`
	DNSTimeoutSecs int    `yaml:"dns_timeout_secs" mapstructure:"dns_timeout_secs"`
	DNSRetries     int    `yaml:"dns_retries" mapstructure:"dns_retries"`
}

// PipelineConfig configures the end-to-end search.
type PipelineConfig struct {
	TimeoutSecs      int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	AllowFallback    bool `yaml:"allow_fallback" mapstructure:"allow_fallback"`
	VerifyDiscovered bool `yaml:"verify_discovered" mapstructure:"verify_discovered"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("EMAILFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawl.requests_per_second", 2.0)
	v.SetDefault("crawl.max_concurrent", 4)
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.max_retries", 3)
	v.SetDefault("crawl.max_body_bytes", 2<<20)
	v.SetDefault("crawl.gate_cache_size", 256)
	v.SetDefault("crawl.http_fallback", true)
	v.SetDefault("smtp.enabled", true)
	v.SetDefault("smtp.helo_name", "verification.service")
	v.SetDefault("smtp.mail_from", "verify@verification.service")
	v.SetDefault("smtp.port", 25)
	v.SetDefault("smtp.timeout_secs", 30)
	v.SetDefault("smtp.command_secs", 5)
	v.SetDefault("smtp.max_concurrent", 5)
	v.SetDefault("smtp.catch_all_probe", true)
	v.SetDefault("smtp.dns_timeout_secs", 5)
	v.SetDefault("smtp.dns_retries", 2)
	v.SetDefault("pipeline.timeout_secs", 90)
	v.SetDefault("pipeline.allow_fallback", true)
	v.SetDefault("pipeline.verify_discovered", false)

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would make the pipeline misbehave.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver != "memory" && c.Store.DatabaseURL == "" {
		return eris.Errorf("config: store.database_url is required for driver %q", c.Store.Driver)
	}
	if c.Crawl.RequestsPerSecond <= 0 {
		return eris.New("config: crawl.requests_per_second must be positive")
	}
	if c.Crawl.MaxConcurrent <= 0 {
		return eris.New("config: crawl.max_concurrent must be positive")
	}
	if c.SMTP.MaxConcurrent <= 0 {
		return eris.New("config: smtp.max_concurrent must be positive")
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
