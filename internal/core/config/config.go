package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/rules"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use "__",
// e.g. EVENTFOLD_DATABASE__DSN.
const EnvPrefix = "EVENTFOLD_"

// Config represents the top-level application config plus resolved fold rules.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Rehydration RehydrationConfig `koanf:"rehydration"`
	Log         LogConfig         `koanf:"log"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`

	// Rules is populated by Load after parsing rule files.
	Rules []rules.Rule `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"` // postgres | memory
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// RehydrationConfig tunes the state endpoint's folds.
type RehydrationConfig struct {
	PageSize     int           `koanf:"page_size"`
	FoldTimeout  time.Duration `koanf:"fold_timeout"`
	RulesDir     string        `koanf:"rules_dir"`
	RequireRules bool          `koanf:"require_rules"`
}

type LogConfig struct {
	Level string `koanf:"level"` // debug | info | warn | error
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// SlogLevel maps the configured level onto slog. Validate rejects unknown names.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database.type %q (must be postgres or memory)", c.Database.Type)
	}

	if c.Rehydration.PageSize <= 0 || c.Rehydration.PageSize > query.MaxPageSize {
		return fmt.Errorf("rehydration.page_size must be 1-%d, got %d", query.MaxPageSize, c.Rehydration.PageSize)
	}
	if c.Rehydration.FoldTimeout <= 0 {
		return fmt.Errorf("rehydration.fold_timeout must be > 0")
	}
	if strings.TrimSpace(c.Rehydration.RulesDir) == "" {
		return fmt.Errorf("rehydration.rules_dir is required")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}

	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		return fmt.Errorf("telemetry.service_name is required when telemetry is enabled")
	}

	return nil
}

// Load parses config from file + env, validates it, then loads and validates fold rules.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":               8080,
		"server.host":               "0.0.0.0",
		"server.max_body_size_mb":   1,
		"server.mode":               "release",
		"database.type":             "postgres",
		"database.dsn":              "",
		"database.max_open_conns":   25,
		"database.max_idle_conns":   25,
		"database.auto_migrate":     true,
		"rehydration.page_size":     query.DefaultPageSize,
		"rehydration.fold_timeout":  "30s",
		"rehydration.rules_dir":     "./config/rules",
		"rehydration.require_rules": false,
		"log.level":                 "info",
		"telemetry.enabled":         false,
		"telemetry.service_name":    "eventfold",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := rules.NewFileSystemRepository(cfg.Rehydration.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load fold rules: %w", err)
	}
	cfg.Rules = repo.GetRules()
	if cfg.Rehydration.RequireRules && len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("no fold rules found in %q", cfg.Rehydration.RulesDir)
	}

	return &cfg, nil
}
