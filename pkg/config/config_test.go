package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/warren/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasNonEmptyDataDir(t *testing.T) {
	d := config.Default()
	require.NotEmpty(t, d.DataDir)
	require.False(t, d.EnablePersist)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /var/lib/sdbcore\nlog_json: true\n"), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/sdbcore", cfg.DataDir)
	require.True(t, cfg.LogJSON)
	require.Equal(t, config.Default().LogLevel, cfg.LogLevel)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := config.Load("/nonexistent/cfg.yaml")
	require.Error(t, err)
}

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	config.BindFlags(cmd)
	return cmd
}

func TestFromFlagsUsesDefaultsWhenUnset(t *testing.T) {
	cmd := newTestCommand()
	cfg, err := config.FromFlags(cmd)
	require.NoError(t, err)
	require.Equal(t, config.Default().DataDir, cfg.DataDir)
}

func TestFromFlagsOverridesExplicitFlag(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("data-dir", "/tmp/custom"))
	require.NoError(t, cmd.Flags().Set("log-json", "true"))

	cfg, err := config.FromFlags(cmd)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom", cfg.DataDir)
	require.True(t, cfg.LogJSON)
}

func TestFromFlagsConfigFileThenFlagOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\nmetrics_addr: 0.0.0.0:9999\n"), 0644))

	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("metrics-addr", "0.0.0.0:1111"))

	cfg, err := config.FromFlags(cmd)
	require.NoError(t, err)
	require.Equal(t, "/from/file", cfg.DataDir)
	require.Equal(t, "0.0.0.0:1111", cfg.MetricsAddr)
}
