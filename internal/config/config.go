package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Stats    StatsConfig    `yaml:"stats"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPPort   int    `yaml:"http_port"`
}

// DatabaseConfig holds database settings. Type selects the backend:
// "sqlite" uses Path, "postgres" uses DSN.
type DatabaseConfig struct {
	Type            string        `yaml:"type"`
	Path            string        `yaml:"path"`
	DSN             string        `yaml:"dsn"`
	MaxConns        int           `yaml:"max_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// StatsConfig holds tracking and retention settings
type StatsConfig struct {
	// TimezoneOffset is the whole-hour offset applied to database
	// timestamps, e.g. "+3" or "-5". Empty means UTC.
	TimezoneOffset     string        `yaml:"timezone_offset"`
	SnapshotInterval   time.Duration `yaml:"snapshot_interval"`
	SnapshotDaysToKeep int           `yaml:"snapshot_days_to_keep"`
	AFKThreshold       time.Duration `yaml:"afk_threshold"`
	WriteQueueSize     int           `yaml:"write_queue_size"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenDuration     time.Duration `yaml:"token_duration"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
}

// WebhookConfig holds outbound notification settings. An empty URL
// disables the notifier.
type WebhookConfig struct {
	URL             string `yaml:"url"`
	NotifyJoin      bool   `yaml:"notify_join"`
	NotifyQuit      bool   `yaml:"notify_quit"`
	NotifyNewRecord bool   `yaml:"notify_new_record"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Set defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/uptrack/uptrack.db"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.QueryTimeout == 0 {
		cfg.Database.QueryTimeout = 5 * time.Second
	}

	// Stats defaults
	if cfg.Stats.SnapshotInterval == 0 {
		cfg.Stats.SnapshotInterval = 5 * time.Minute
	}
	if cfg.Stats.SnapshotDaysToKeep == 0 {
		cfg.Stats.SnapshotDaysToKeep = 30
	}
	if cfg.Stats.AFKThreshold == 0 {
		cfg.Stats.AFKThreshold = 5 * time.Minute
	}
	if cfg.Stats.WriteQueueSize == 0 {
		cfg.Stats.WriteQueueSize = 256
	}

	// Auth defaults
	if cfg.Auth.TokenDuration == 0 {
		cfg.Auth.TokenDuration = 24 * time.Hour
	}

	return &cfg, nil
}
