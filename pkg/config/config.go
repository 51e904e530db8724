package config

import (
	"fmt"
	"os"
	"time"

	"FxChart/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"500ms"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Granularity struct {
		DefaultTarget int `yaml:"default_target" default:"150"`
	} `yaml:"granularity"`
	Upstream struct {
		BaseURL      string        `yaml:"base_url"`
		Token        string        `yaml:"token"`
		Timeout      time.Duration `yaml:"timeout" default:"10s"`
		RetryMax     int           `yaml:"retry_max" default:"3"`
		RetryWaitMin time.Duration `yaml:"retry_wait_min" default:"200ms"`
		RetryWaitMax time.Duration `yaml:"retry_wait_max" default:"2s"`
	} `yaml:"upstream"`
	Cache struct {
		Backend    string        `yaml:"backend" default:"memory"`
		TTL        time.Duration `yaml:"ttl" default:"30s"`
		MaxEntries int           `yaml:"max_entries" default:"10000"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"fxchart"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Poller struct {
		Enabled     bool          `yaml:"enabled"`
		Instruments []string      `yaml:"instruments"`
		Interval    time.Duration `yaml:"interval" default:"30s"`
		Lookback    time.Duration `yaml:"lookback" default:"24h"`
		MaxBackoff  time.Duration `yaml:"max_backoff" default:"5m"`
	} `yaml:"poller"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"20"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"10"`
	} `yaml:"rate_limit"`
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse parses YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FXCHART_UPSTREAM_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("FXCHART_UPSTREAM_TOKEN"); v != "" {
		c.Upstream.Token = v
	}
	if v := os.Getenv("FXCHART_REDIS_ADDR"); v != "" {
		c.Cache.Backend = "redis"
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("FXCHART_INSTRUMENTS"); v != "" {
		c.Poller.Instruments = util.SplitList(v)
	}
	c.Granularity.DefaultTarget = util.ParseIntDefault(os.Getenv("FXCHART_DEFAULT_TARGET"), c.Granularity.DefaultTarget)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	if t := c.Granularity.DefaultTarget; t < 50 || t > 500 {
		return fmt.Errorf("granularity.default_target must be within [50, 500], got %d", t)
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis", "layered":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the %s backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Poller.Enabled {
		if len(c.Poller.Instruments) == 0 {
			return fmt.Errorf("poller.instruments cannot be empty when the poller is enabled")
		}
		if c.Poller.Interval <= 0 || c.Poller.Lookback <= 0 {
			return fmt.Errorf("poller.interval and poller.lookback must be positive")
		}
		if c.Poller.MaxBackoff <= 0 {
			return fmt.Errorf("poller.max_backoff must be positive, got %s", c.Poller.MaxBackoff)
		}
	}
	return nil
}
