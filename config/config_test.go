package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "quota.db", cfg.DBPath)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, time.Hour, cfg.SchedulerInterval)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, language.French, cfg.Language())
	assert.Empty(t, cfg.RulesFile)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QUOTA_PORT", "9090")
	t.Setenv("QUOTA_DB_PATH", ":memory:")
	t.Setenv("QUOTA_CORS_ORIGINS", "https://hr.example.com")
	t.Setenv("QUOTA_SCHEDULER_INTERVAL", "30m")
	t.Setenv("QUOTA_LOCALE", "en-GB")
	t.Setenv("QUOTA_RULES_FILE", "rules.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, []string{"https://hr.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.SchedulerInterval)
	assert.Equal(t, language.English, cfg.Language())
	assert.Equal(t, "rules.json", cfg.RulesFile)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("QUOTA_PORT", "not-a-number")
	_, err := Load()
	assert.ErrorContains(t, err, "parse env")

	t.Setenv("QUOTA_PORT", "0")
	_, err = Load()
	assert.ErrorContains(t, err, "invalid port")
}

func TestValidateScheduler(t *testing.T) {
	cfg := Config{Port: 8080, DBPath: "x.db", SchedulerEnabled: true, HTTPTimeout: time.Second}
	assert.Error(t, cfg.Validate())

	cfg.SchedulerEnabled = false
	assert.NoError(t, cfg.Validate())
}

func TestCarryOverDeadline(t *testing.T) {
	t.Setenv("QUOTA_CARRYOVER_DEADLINE", "03-31")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.March, cfg.Deadline().Month)
	assert.Equal(t, 31, cfg.Deadline().Day)

	t.Setenv("QUOTA_CARRYOVER_DEADLINE", "04-31")
	_, err = Load()
	assert.ErrorContains(t, err, "deadline")
}
