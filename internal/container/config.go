// Package container provides dependency injection and lifecycle management
// for the budget engine following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Cache configuration
	Cache CacheConfig

	// Alerts configuration
	Alerts AlertsConfig

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// CacheConfig holds read-cache settings.
type CacheConfig struct {
	// TTL is how long cached budget reads stay fresh
	TTL time.Duration
}

// AlertsConfig holds approval-backlog alerting settings.
type AlertsConfig struct {
	// PendingAge is how old a PENDING transaction must be before it
	// counts toward an APPROVAL_PENDING alert
	PendingAge time.Duration

	// PendingMax is the backlog count above which the alert fires
	PendingMax int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// PendingScanInterval is how often the pending approval sweep runs
	PendingScanInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/budget.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Alerts: AlertsConfig{
			PendingAge: 72 * time.Hour,
			PendingMax: 5,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			PendingScanInterval: 10 * time.Minute,
		},
	}
}

// Validate checks that required configuration values are present.
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

	if c.Worker.PendingScanInterval <= 0 {
		return fmt.Errorf("worker.pending_scan_interval must be positive")
	}

	return nil
}
