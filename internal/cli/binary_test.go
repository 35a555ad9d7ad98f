package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/harun/clawspace/internal/config"
	"github.com/harun/clawspace/pkg/binary"
)

func TestBinaryStatusCommand(t *testing.T) {
	t.Run("healthy binary", func(t *testing.T) {
		env := newCLIEnv(t, map[string]interface{}{
			"binary": map[string]interface{}{"min_version": ">= 1.0.0"},
		})
		// the extra binary section replaces the default path
		t.Setenv(binary.EnvBinaryPath, env.binary)

		out, err := env.run(t, "binary", "status", "-o", "json")
		require.NoError(t, err)

		var st binary.Status
		require.NoError(t, json.Unmarshal([]byte(out), &st))
		assert.Equal(t, env.binary, st.Path)
		assert.True(t, st.Exists)
		assert.True(t, st.Healthy)
		assert.Equal(t, "picoclaw 1.2.3", st.Version)
		require.NotNil(t, st.Compatible)
		assert.True(t, *st.Compatible)
	})

	t.Run("missing binary", func(t *testing.T) {
		env := newCLIEnv(t, nil)
		require.NoError(t, os.Remove(env.binary))

		out, err := env.run(t, "binary", "status", "-o", "yaml")
		require.NoError(t, err)

		var st map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(out), &st))
		assert.Equal(t, false, st["exists"])
		assert.Equal(t, false, st["healthy"])
	})

	t.Run("text output", func(t *testing.T) {
		env := newCLIEnv(t, nil)

		out, err := env.run(t, "binary", "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Path: "+env.binary)
		assert.Contains(t, out, "Healthy: true")
		assert.Contains(t, out, "Platform: "+binary.CurrentPlatform())
	})
}

func TestConfigCommands(t *testing.T) {
	t.Run("show", func(t *testing.T) {
		env := newCLIEnv(t, nil)

		out, err := env.run(t, "config", "show", "-o", "yaml")
		require.NoError(t, err)

		var cfg map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
		assert.Equal(t, env.dataDir, cfg["data_dir"])
		assert.Equal(t, filepath.Join(env.dataDir, "workspaces"), cfg["workspaces_dir"])
	})

	t.Run("validate", func(t *testing.T) {
		env := newCLIEnv(t, nil)

		out, err := env.run(t, "config", "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration valid")
	})

	t.Run("validate rejects unknown keys", func(t *testing.T) {
		env := newCLIEnv(t, map[string]interface{}{"telegram": map[string]interface{}{}})

		_, err := env.run(t, "config", "validate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match schema")
	})

	t.Run("init", func(t *testing.T) {
		env := newCLIEnv(t, nil)
		path := filepath.Join(t.TempDir(), "fresh.yaml")
		answers := strings.Join([]string{env.dataDir, env.binary, "", "n", "n", "warn"}, "\n") + "\n"

		cmd := GetRootCmd()
		resetFlags(cmd)
		stdout := &bytes.Buffer{}
		cmd.SetOut(stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetIn(strings.NewReader(answers))
		cmd.SetArgs([]string{"--config", path, "config", "init"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, stdout.String(), "Configuration written to "+path)

		loaded, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, env.dataDir, loaded.DataDir)
		assert.Equal(t, env.binary, loaded.Binary.Path)
		assert.False(t, loaded.Snapshots.Enabled)
		assert.Equal(t, "warn", loaded.Logging.Level)

		_, err = env.run(t, "config", "init")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})
}
