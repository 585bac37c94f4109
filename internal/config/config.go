package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type Config struct {
	Server ServerConfig `json:"server"`
	Redis  RedisConfig  `json:"redis"`
	JWT    JWTConfig    `json:"jwt"`
	Plans  []PlanLimits `json:"plans"`

	// DatabaseDSN comes from the environment (DATABASE_DSN), never from
	// the JSON file.
	DatabaseDSN string `json:"-"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

func (r *RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	// Secret is read from JWT_SECRET. Missing secret is fatal at startup.
	Secret     string `json:"-"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// PlanLimits is one row of the plan limits table: a tier name and its
// per-window request allowances.
type PlanLimits struct {
	Name              string `json:"name"`
	RequestsPerMinute int    `json:"requests_per_minute"`
	RequestsPerHour   int    `json:"requests_per_hour"`
	RequestsPerDay    int    `json:"requests_per_day"`
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is required")

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	config.JWT.Secret = os.Getenv("JWT_SECRET")
	if config.JWT.Secret == "" {
		return nil, ErrMissingJWTSecret
	}

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.DatabaseDSN = os.Getenv("DATABASE_DSN")

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == "" {
		c.Redis.Port = "6379"
	}
	if c.JWT.TTLSeconds == 0 {
		c.JWT.TTLSeconds = 3600
	}
}

func (c *Config) validate() error {
	if c.JWT.TTLSeconds < 0 {
		return fmt.Errorf("jwt ttl_seconds must be positive, got %d", c.JWT.TTLSeconds)
	}

	for _, plan := range c.Plans {
		if plan.Name == "" {
			return errors.New("plan tier with empty name in config")
		}
		if plan.RequestsPerMinute <= 0 || plan.RequestsPerHour <= 0 || plan.RequestsPerDay <= 0 {
			return fmt.Errorf("plan %q has a non-positive limit", plan.Name)
		}
	}

	return nil
}
