package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TICK_RATE_HZ", "")
	t.Setenv("MIGRATE_ON_START", "")
	t.Setenv("APP_PORT", "")

	cfg := Load()
	assert.Equal(t, 60, cfg.TickRateHz)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.MigrateOnStart)
	assert.Equal(t, 900, cfg.IdleUnloadSeconds)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TICK_RATE_HZ", "120")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("SEAT_TOKEN_HOURS", "not-a-number")

	cfg := Load()
	assert.Equal(t, 120, cfg.TickRateHz)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 24, cfg.SeatTokenHours)
}
