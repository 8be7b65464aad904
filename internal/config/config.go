package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig     `json:"server"`
	Redis     RedisConfig      `json:"redis"`
	Postgres  PostgresConfig   `json:"postgres"`
	Governor  GovernorConfig   `json:"governor"`
	RateLimit RateLimitConfig  `json:"rate_limit"`
	Profiles  []RequestProfile `json:"request_profiles"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

// GovernorConfig mirrors the exchange's published quota: a weight budget per
// window and an order-count budget per (usually shorter) window
type GovernorConfig struct {
	WeightLimit    int `json:"weight_limit"`
	WeightWindowMs int `json:"weight_window_ms"`
	OrderLimit     int `json:"order_limit"`
	OrderWindowMs  int `json:"order_window_ms"`
	MaxQueueDepth  int `json:"max_queue_depth"`
	LowTierBacklog int `json:"low_tier_backlog"`
}

func (g GovernorConfig) WeightWindow() time.Duration {
	return time.Duration(g.WeightWindowMs) * time.Millisecond
}

func (g GovernorConfig) OrderWindow() time.Duration {
	return time.Duration(g.OrderWindowMs) * time.Millisecond
}

// RateLimitConfig throttles the status API itself, per client IP
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute"`
}

// RequestProfile is a named cost preset for a known exchange endpoint, so
// producers don't hard-code weights and misconfigurations surface at startup
// instead of per ticket
type RequestProfile struct {
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Weight int    `json:"weight"`
	Orders int    `json:"orders"`
}

var tierNames = map[string]bool{
	"critical": true,
	"high":     true,
	"medium":   true,
	"low":      true,
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Environment variables override the file for anything deploy-specific
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Postgres.DSN = v
	}
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
	if c.Governor.WeightLimit == 0 {
		c.Governor.WeightLimit = 2400
	}
	if c.Governor.WeightWindowMs == 0 {
		c.Governor.WeightWindowMs = 60000
	}
	if c.Governor.OrderLimit == 0 {
		c.Governor.OrderLimit = 300
	}
	if c.Governor.OrderWindowMs == 0 {
		c.Governor.OrderWindowMs = 10000
	}
	if c.Governor.MaxQueueDepth == 0 {
		c.Governor.MaxQueueDepth = 256
	}
	if c.Governor.LowTierBacklog == 0 {
		c.Governor.LowTierBacklog = 32
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 120
	}
}

// Validate rejects configurations the governor could never serve. In
// particular a request profile whose single cost exceeds a limit would fail
// on every submission, so it is refused here instead of per ticket.
func (c *Config) Validate() error {
	if c.Governor.WeightLimit < 0 || c.Governor.OrderLimit < 0 {
		return fmt.Errorf("quota limits must be non-negative")
	}
	if c.Governor.WeightWindowMs < 0 || c.Governor.OrderWindowMs < 0 {
		return fmt.Errorf("quota windows must be non-negative")
	}
	if c.Governor.MaxQueueDepth < 0 {
		return fmt.Errorf("max queue depth must be non-negative")
	}

	seen := make(map[string]bool)
	for _, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("request profile with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate request profile %q", p.Name)
		}
		seen[p.Name] = true

		if !tierNames[p.Tier] {
			return fmt.Errorf("request profile %q: unknown tier %q", p.Name, p.Tier)
		}
		if p.Weight < 0 || p.Orders < 0 {
			return fmt.Errorf("request profile %q: costs must be non-negative", p.Name)
		}
		if p.Weight > c.Governor.WeightLimit {
			return fmt.Errorf("request profile %q: weight %d exceeds the configured limit %d", p.Name, p.Weight, c.Governor.WeightLimit)
		}
		if p.Orders > c.Governor.OrderLimit {
			return fmt.Errorf("request profile %q: order cost %d exceeds the configured limit %d", p.Name, p.Orders, c.Governor.OrderLimit)
		}
	}

	return nil
}

// Profile looks up a request profile by name
func (c *Config) Profile(name string) (RequestProfile, bool) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return RequestProfile{}, false
}
