package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppName  string `yaml:"app_name" env:"APP_NAME"`
	Env      string `yaml:"env" env:"APP_ENV"`
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR"`
	GRPCAddr string `yaml:"grpc_addr" env:"GRPC_ADDR"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Redis   RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
	NATS    NATSConfig    `yaml:"nats" envPrefix:"NATS_"`
	Backend BackendConfig `yaml:"backend" envPrefix:"BACKEND_"`
}

// RedisConfig locates the networked backend.
type RedisConfig struct {
	Host        string        `yaml:"host" env:"HOST"`
	Port        int           `yaml:"port" env:"PORT"`
	DB          int           `yaml:"db" env:"DB"`
	Password    string        `yaml:"password" env:"PASSWORD"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
}

// NATSConfig configures the asynchronous ingress. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url" env:"URL"`
	Subject string `yaml:"subject" env:"SUBJECT"`
	Name    string `yaml:"name" env:"NAME"`
}

// BackendConfig controls backend selection.
type BackendConfig struct {
	// FailFast refuses to start when Redis is unreachable instead of
	// falling back to the in-memory store.
	FailFast bool `yaml:"fail_fast" env:"FAIL_FAST"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		AppName:  "pyazkv",
		Env:      "local",
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
		LogLevel: "info",
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        6379,
			DB:          0,
			DialTimeout: 2 * time.Second,
		},
		NATS: NATSConfig{
			Subject: "pyazkv.repository.>",
			Name:    "pyazkv",
		},
	}
}

// LoadConfig starts from Default, applies the YAML file at path if one is
// given, then applies environment variable overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Unset variables leave the current value alone.
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.GRPCAddr == "" {
		errs = append(errs, errors.New("GRPC_ADDR is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid REDIS_PORT %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("invalid REDIS_DB %d", c.Redis.DB))
	}
	if c.Redis.DialTimeout < 0 {
		errs = append(errs, fmt.Errorf("invalid REDIS_DIAL_TIMEOUT %s", c.Redis.DialTimeout))
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		errs = append(errs, errors.New("NATS_SUBJECT is required when NATS_URL is set"))
	}
	return errors.Join(errs...)
}
