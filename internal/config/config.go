// Package config loads and validates the pagemill service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultReadTimeout is the default HTTP read timeout
	DefaultReadTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default HTTP write timeout. It must
	// outlast a full acquisition run so progress streams are not cut off.
	DefaultWriteTimeout = 2 * time.Minute
	// DefaultPhaseTimeout bounds a single acquisition phase
	DefaultPhaseTimeout = 15 * time.Second
	// DefaultFetchTimeout bounds a single page fetch inside a phase
	DefaultFetchTimeout = 10 * time.Second
	// DefaultProgressBuffer is the progress channel buffer size
	DefaultProgressBuffer = 64
)

type Config struct {
	Debug    bool           `yaml:"debug"` // Controls log level and format
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Acquire  AcquireConfig  `yaml:"acquire"`
	Assemble AssembleConfig `yaml:"assemble"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`       // e.g., ":8080"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"` // Default: 30s
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AcquireConfig struct {
	PhaseTimeout   time.Duration `yaml:"phase_timeout"`   // Per-phase budget
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`   // Per-request budget within a phase
	ProgressBuffer int           `yaml:"progress_buffer"` // Progress channel capacity
	UserAgent      string        `yaml:"user_agent"`
}

type AssembleConfig struct {
	// StrictRecommended makes missing recommended sections block assembly
	// the same way required sections do. Default is advisory: assembly
	// proceeds and reports them.
	StrictRecommended bool `yaml:"strict_recommended"`
}

// Validate checks the configuration and returns an error if it is unusable.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Acquire.PhaseTimeout <= 0 {
		return fmt.Errorf("acquire.phase_timeout must be positive, got %v", c.Acquire.PhaseTimeout)
	}
	if c.Acquire.FetchTimeout > c.Acquire.PhaseTimeout {
		return errors.New("acquire.fetch_timeout must not exceed acquire.phase_timeout")
	}
	return nil
}

// setDefaults fills in default values for unset fields
func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Acquire.PhaseTimeout == 0 {
		cfg.Acquire.PhaseTimeout = DefaultPhaseTimeout
	}
	if cfg.Acquire.FetchTimeout == 0 {
		cfg.Acquire.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Acquire.ProgressBuffer == 0 {
		cfg.Acquire.ProgressBuffer = DefaultProgressBuffer
	}
	if cfg.Acquire.UserAgent == "" {
		cfg.Acquire.UserAgent = "pagemill-bot/1.0"
	}
}

// overrideWithEnvVars overrides configuration with environment variables
func overrideWithEnvVars(cfg *Config) {
	if v := os.Getenv("DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PAGEMILL_PORT"); v != "" {
		cfg.Server.Address = ":" + v
	}
	if v := os.Getenv("APP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
}

// parseBool treats "true", "1" and "yes" (any case) as true.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// Load reads the YAML config at path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
