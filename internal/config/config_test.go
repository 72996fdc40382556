package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, ".storyline/episodes", cfg.DataDir)
	assert.Equal(t, 30*time.Second, cfg.ChoiceWindow)
	assert.Equal(t, 5.0, cfg.FallbackTimestamp)
	assert.Equal(t, "storyline:", cfg.RedisPrefix)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORYLINE_STORE", "redis")
	t.Setenv("STORYLINE_REDIS_DB", "3")
	t.Setenv("STORYLINE_CHOICE_WINDOW", "12s")
	t.Setenv("STORYLINE_FALLBACK_TIMESTAMP", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 12*time.Second, cfg.ChoiceWindow)
	assert.Equal(t, 2.5, cfg.FallbackTimestamp)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("STORYLINE_REDIS_DB", "not-an-int")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse env:"), err.Error())
}

func TestValidate(t *testing.T) {
	base := Config{Store: StoreMemory, ChoiceWindow: time.Second}
	require.NoError(t, base.Validate())

	bad := base
	bad.Store = "postgres"
	assert.ErrorContains(t, bad.Validate(), "unknown store")

	bad = base
	bad.ChoiceWindow = 0
	assert.ErrorContains(t, bad.Validate(), "choice window")

	bad = base
	bad.FallbackTimestamp = -1
	assert.ErrorContains(t, bad.Validate(), "fallback timestamp")
}
