package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig holds read-cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AlertsConfig holds alerting configuration
type AlertsConfig struct {
	PendingAge   time.Duration `mapstructure:"pending_age"`
	PendingMax   int           `mapstructure:"pending_max"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads the YAML file at configPath, applying defaults and
// environment overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	// A missing .env file is fine; variables may come from the real
	// environment.
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/budget.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("alerts.pending_age", 72*time.Hour)
	v.SetDefault("alerts.pending_max", 5)
	v.SetDefault("alerts.scan_interval", 10*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars maps deployment environment variables onto config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "BUDGET_DB_PATH")
	v.BindEnv("server.host", "BUDGET_SERVER_HOST")
	v.BindEnv("server.port", "BUDGET_SERVER_PORT")
	v.BindEnv("logger.level", "BUDGET_LOG_LEVEL")
}

// Validate checks that the loaded configuration is usable
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	if c.Alerts.PendingAge <= 0 {
		return fmt.Errorf("alerts.pending_age must be positive")
	}
	if c.Alerts.PendingMax < 1 {
		return fmt.Errorf("alerts.pending_max must be at least 1")
	}
	if c.Alerts.ScanInterval <= 0 {
		return fmt.Errorf("alerts.scan_interval must be positive")
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("logger.format must be json or console")
	}

	return nil
}
