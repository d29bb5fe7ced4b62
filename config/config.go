// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"

	"github.com/warp/leave-quota/i18n"
	"github.com/warp/leave-quota/quota"
)

// Config holds settings shared by the server and the CLI. Command-line
// flags override individual fields after parsing.
type Config struct {
	Port        int      `env:"QUOTA_PORT"         envDefault:"8080"`
	DBPath      string   `env:"QUOTA_DB_PATH"      envDefault:"quota.db"`
	CORSOrigins []string `env:"QUOTA_CORS_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173" envSeparator:","`

	SchedulerEnabled  bool          `env:"QUOTA_SCHEDULER_ENABLED"  envDefault:"true"`
	SchedulerInterval time.Duration `env:"QUOTA_SCHEDULER_INTERVAL" envDefault:"1h"`

	Locale string `env:"QUOTA_LOCALE" envDefault:"fr"`

	BackendURL  string        `env:"QUOTA_BACKEND_URL"  envDefault:"http://localhost:8080"`
	HTTPTimeout time.Duration `env:"QUOTA_HTTP_TIMEOUT" envDefault:"15s"`

	// RulesFile seeds transfer, carry-over and special-period rules at startup.
	RulesFile string `env:"QUOTA_RULES_FILE"`

	// CarryOverDeadline is the "MM-DD" day of year+1 after which carry-overs
	// out of year are refused. Empty means no deadline.
	CarryOverDeadline string `env:"QUOTA_CARRYOVER_DEADLINE"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("database path is required")
	}
	if c.SchedulerEnabled && c.SchedulerInterval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if _, err := quota.ParseDeadline(c.CarryOverDeadline); err != nil {
		return err
	}
	return nil
}

// Deadline returns the parsed carry-over deadline. Validate reports a
// malformed value; here it reads as no deadline.
func (c Config) Deadline() quota.Deadline {
	d, _ := quota.ParseDeadline(c.CarryOverDeadline)
	return d
}

// Language resolves Locale to a supported message language.
func (c Config) Language() language.Tag {
	return i18n.Match(c.Locale)
}
