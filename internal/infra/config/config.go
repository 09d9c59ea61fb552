package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Pool      PoolConfig      `mapstructure:"pool" yaml:"pool"`
	Requester RequesterConfig `mapstructure:"requester" yaml:"requester"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`

	Port string `mapstructure:"port" yaml:"port"`
}

type PoolConfig struct {
	Size            int `mapstructure:"size" yaml:"size"`
	RetryBackoffMS  int `mapstructure:"retry_backoff_ms" yaml:"retry_backoff_ms"`
	MaxRetries      int `mapstructure:"max_retries" yaml:"max_retries"` // 0 = retry forever
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`
}

type RequesterConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	URL           string `mapstructure:"url" yaml:"url"`
	MinIntervalMS int    `mapstructure:"min_interval_ms" yaml:"min_interval_ms"`
	MaxIntervalMS int    `mapstructure:"max_interval_ms" yaml:"max_interval_ms"`
	RangeBytes    uint64 `mapstructure:"range_bytes" yaml:"range_bytes"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Driver  string `mapstructure:"driver" yaml:"driver"` // sqlite or postgres
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

func Load(path string) (*Config, error) {

	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8080")
	v.SetDefault("pool.size", 10)
	v.SetDefault("pool.retry_backoff_ms", 100)
	v.SetDefault("pool.max_retries", 0)
	v.SetDefault("pool.fetch_timeout_sec", 30)
	v.SetDefault("requester.enabled", false)
	v.SetDefault("requester.url", "http://www.example.com/index.html")
	v.SetDefault("requester.min_interval_ms", 10)
	v.SetDefault("requester.max_interval_ms", 300)
	v.SetDefault("requester.range_bytes", 4096)
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.dsn", "gofetch.db")
	v.SetDefault("log.path", "gofetch.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)

	// A missing file is fine, defaults plus env cover daemonless usage
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("GOFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Pool.Size <= 0 {
		c.Pool.Size = 10
	}

	if c.Pool.RetryBackoffMS <= 0 {
		c.Pool.RetryBackoffMS = 100
	}

	if c.Pool.MaxRetries < 0 {
		c.Pool.MaxRetries = 0
	}

	if c.Pool.FetchTimeoutSec <= 0 {
		c.Pool.FetchTimeoutSec = 30
	}

	if c.Requester.Enabled {
		if c.Requester.URL == "" {
			return errors.New("requester.url is required when the requester is enabled")
		}

		if c.Requester.MinIntervalMS <= 0 {
			c.Requester.MinIntervalMS = 10
		}

		if c.Requester.MaxIntervalMS < c.Requester.MinIntervalMS {
			return fmt.Errorf("requester.max_interval_ms (%d) must be >= min_interval_ms (%d)",
				c.Requester.MaxIntervalMS, c.Requester.MinIntervalMS)
		}

		if c.Requester.RangeBytes == 0 {
			c.Requester.RangeBytes = 4096
		}
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("history.driver must be sqlite or postgres, got %q", c.History.Driver)
		}

		if c.History.DSN == "" {
			return errors.New("history.dsn is required when history is enabled")
		}
	}

	return nil
}
