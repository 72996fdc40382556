package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/internal/config"
)

func TestIsDocumentPath(t *testing.T) {
	assert.True(t, isDocumentPath("episodes/pilot.yaml"))
	assert.True(t, isDocumentPath("pilot.YML"))
	assert.True(t, isDocumentPath("pilot.json"))
	assert.False(t, isDocumentPath("pilot"))
	assert.False(t, isDocumentPath("pilot.md"))
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("STORYLINE_STORE", "sqlite")
	t.Setenv("STORYLINE_LOG_LEVEL", "debug")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	require.NoError(t, cmd.Flags().Parse([]string{"--store", "memory"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_RejectsUnknownStore(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	require.NoError(t, cmd.Flags().Parse([]string{"--store", "etcd"}))

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "unknown store")
}
