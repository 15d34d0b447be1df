package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging"`
	Engine    EngineConfig    `yaml:"engine"`
	Cache     CacheConfig     `yaml:"cache"`
	Redis     RedisConfig     `yaml:"redis"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file for the sqlite driver.
	Path    string `yaml:"path"`
	Tracing bool   `yaml:"tracing"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	File     string `yaml:"file"`
	ToStdout bool   `yaml:"to_stdout"`
}

type EngineConfig struct {
	StaleAfterDays      int    `yaml:"stale_after_days"`
	RecentSessions      int    `yaml:"recent_sessions"`
	ConsistencySessions int    `yaml:"consistency_sessions"`
	PlateauSessions     int    `yaml:"plateau_sessions"`
	RefreshSchedule     string `yaml:"refresh_schedule"`
	RefreshWorkers      int    `yaml:"refresh_workers"`
}

type CacheConfig struct {
	SizeMB     int `yaml:"size_mb"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type RedisConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	SetsPerMinute int    `yaml:"sets_per_minute"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix MOVEMEM_ and underscore-separated paths:
//
//	MOVEMEM_SERVER_HOST, MOVEMEM_SERVER_PORT,
//	MOVEMEM_DB_DRIVER, MOVEMEM_DB_HOST, MOVEMEM_DB_PORT, MOVEMEM_DB_NAME,
//	MOVEMEM_DB_USER, MOVEMEM_DB_PASSWORD, MOVEMEM_DB_SSLMODE, MOVEMEM_DB_PATH,
//	MOVEMEM_AUTH_API_KEY, MOVEMEM_REDIS_ADDR, MOVEMEM_REDIS_PASSWORD,
//	MOVEMEM_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("MOVEMEM_SERVER_HOST", &cfg.Server.Host)
	num("MOVEMEM_SERVER_PORT", &cfg.Server.Port)
	str("MOVEMEM_DB_DRIVER", &cfg.Database.Driver)
	str("MOVEMEM_DB_HOST", &cfg.Database.Host)
	num("MOVEMEM_DB_PORT", &cfg.Database.Port)
	str("MOVEMEM_DB_NAME", &cfg.Database.Name)
	str("MOVEMEM_DB_USER", &cfg.Database.User)
	str("MOVEMEM_DB_PASSWORD", &cfg.Database.Password)
	str("MOVEMEM_DB_SSLMODE", &cfg.Database.SSLMode)
	str("MOVEMEM_DB_PATH", &cfg.Database.Path)
	str("MOVEMEM_AUTH_API_KEY", &cfg.Auth.APIKey)
	str("MOVEMEM_REDIS_ADDR", &cfg.Redis.Addr)
	str("MOVEMEM_REDIS_PASSWORD", &cfg.Redis.Password)
	str("MOVEMEM_LOG_LEVEL", &cfg.Logging.Level)
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Engine.StaleAfterDays == 0 {
		c.Engine.StaleAfterDays = 14
	}
	if c.Engine.RecentSessions == 0 {
		c.Engine.RecentSessions = 3
	}
	if c.Engine.ConsistencySessions == 0 {
		c.Engine.ConsistencySessions = 5
	}
	if c.Engine.PlateauSessions == 0 {
		c.Engine.PlateauSessions = 3
	}
	if c.Engine.RefreshSchedule == "" {
		c.Engine.RefreshSchedule = "0 30 3 * * *"
	}
	if c.Engine.RefreshWorkers == 0 {
		c.Engine.RefreshWorkers = 4
	}
	if c.Cache.SizeMB == 0 {
		c.Cache.SizeMB = 16
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Redis.SetsPerMinute == 0 {
		c.Redis.SetsPerMinute = 30
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "movementmemory"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver %q is not one of postgres, sqlite, memory", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Engine.StaleAfterDays < 0 || c.Engine.RecentSessions < 0 || c.Engine.ConsistencySessions < 0 ||
		c.Engine.PlateauSessions < 0 || c.Engine.RefreshWorkers < 0 {
		return fmt.Errorf("engine thresholds must be positive")
	}
	if c.Cache.SizeMB < 0 || c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache size and ttl must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
