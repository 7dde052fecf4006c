package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pool_league_test")
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 100, cfg.ForfeitWinnerPoints)
	assert.Equal(t, 10*time.Minute, cfg.CompletionSweepInterval)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.SMTPConfigured())
	assert.False(t, cfg.R2Configured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pool_league_test")
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("FORFEIT_WINNER_POINTS", "70")
	t.Setenv("COMPLETION_SWEEP_MINUTES", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, 70, cfg.ForfeitWinnerPoints)
	assert.Equal(t, time.Minute, cfg.CompletionSweepInterval)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/pool_league_test")
	t.Setenv("JWT_SECRET_KEY", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pool_league_test")
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	t.Setenv("SERVER_PORT", "not-a-number")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SERVER_PORT", "70000")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("FORFEIT_WINNER_POINTS", "-5")
	_, err = Load()
	assert.Error(t, err)
}
