package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardDefaults(t *testing.T) {
	var out bytes.Buffer
	answers := strings.Repeat("\n", 6)

	cfg, err := NewWizard(strings.NewReader(answers), &out).Run()
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Logging.Level, cfg.Logging.Level)
	assert.Equal(t, def.Snapshots.Enabled, cfg.Snapshots.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.DataDir)
	assert.Contains(t, out.String(), "Configuration complete!")
}

func TestWizardAnswers(t *testing.T) {
	var out bytes.Buffer
	answers := strings.Join([]string{
		"/srv/clawspace",
		"/opt/picoclaw",
		"not a constraint!",
		">= 0.2.0",
		"n",
		"y",
		"bad-addr",
		"0.0.0.0:9100",
		"debug",
	}, "\n")

	cfg, err := NewWizard(strings.NewReader(answers), &out).Run()
	require.NoError(t, err)

	assert.Equal(t, "/srv/clawspace", cfg.DataDir)
	assert.Equal(t, "/opt/picoclaw", cfg.Binary.Path)
	assert.Equal(t, ">= 0.2.0", cfg.Binary.MinVersion)
	assert.False(t, cfg.Snapshots.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0:9100", cfg.Metrics.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, strings.Count(out.String(), "Error:"))
}

func TestWizardInvalidLogLevelKeepsDefault(t *testing.T) {
	var out bytes.Buffer
	answers := "\n\n\n\n\nverbose\n"

	cfg, err := NewWizard(strings.NewReader(answers), &out).Run()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Contains(t, out.String(), "Warning:")
}

func TestWizardEOF(t *testing.T) {
	_, err := NewWizard(strings.NewReader(""), &bytes.Buffer{}).Run()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"clawspace.json", "clawspace.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			cfg.Binary.MinVersion = ">= 1.0.0"
			cfg.Logging.Level = "warn"

			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, Save(cfg, path))
			require.NoError(t, ValidateFile(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.DataDir, loaded.DataDir)
			assert.Equal(t, ">= 1.0.0", loaded.Binary.MinVersion)
			assert.Equal(t, "warn", loaded.Logging.Level)
			assert.Equal(t, filepath.Join(cfg.DataDir, "workspaces"), loaded.WorkspacesDir)
		})
	}
}
