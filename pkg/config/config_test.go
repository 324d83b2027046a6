package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Nil(t, cfg.Analysis.PixelSizeMicrons)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "maskstats.yaml")

	cfg := DefaultConfig()
	px := 0.325
	cfg.Analysis.PixelSizeMicrons = &px
	cfg.Output.Database = "runs.db"
	cfg.Output.RenderOverlays = true
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.Analysis.PixelSizeMicrons)
	assert.Equal(t, 0.325, *loaded.Analysis.PixelSizeMicrons)
	assert.Equal(t, "runs.db", loaded.Output.Database)
	assert.True(t, loaded.Output.RenderOverlays)
	assert.Equal(t, "report.yaml", loaded.Output.ReportFile)
	assert.Equal(t, "report.xlsx", loaded.Output.WorkbookFile)
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  verbose: true\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "maskstats_output", cfg.Output.Dir)
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("analysis: [unterminated"), 0644))
	_, err := LoadConfig(bad)
	assert.Error(t, err)

	neg := filepath.Join(dir, "neg.yaml")
	require.NoError(t, os.WriteFile(neg, []byte("analysis:\n  pixelSizeMicrons: -1\n"), 0644))
	_, err = LoadConfig(neg)
	assert.ErrorContains(t, err, "must be positive")
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maskstats.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reportFile: report.yaml")
	assert.NotContains(t, string(data), "pixelSizeMicrons")
}
