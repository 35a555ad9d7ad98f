package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const fakePicoclaw = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "picoclaw 1.2.3"
  exit 0
fi
exec sleep 30
`

type cliEnv struct {
	dataDir string
	config  string
	binary  string
}

// newCLIEnv writes a config pointing every path into a temp dir, with
// console logging off and snapshots disabled.
func newCLIEnv(t *testing.T, extra map[string]interface{}) *cliEnv {
	t.Helper()
	t.Setenv("PICOCLAW_BINARY", "")

	dir := t.TempDir()
	binPath := filepath.Join(dir, "bin", "picoclaw")
	require.NoError(t, os.MkdirAll(filepath.Dir(binPath), 0755))
	require.NoError(t, os.WriteFile(binPath, []byte(fakePicoclaw), 0755))

	dataDir := filepath.Join(dir, "data")
	cfg := map[string]interface{}{
		"data_dir":  dataDir,
		"binary":    map[string]interface{}{"path": binPath},
		"logging":   map[string]interface{}{"level": "warn", "console": false},
		"snapshots": map[string]interface{}{"enabled": false},
	}
	for k, v := range extra {
		cfg[k] = v
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	cfgPath := filepath.Join(dir, "clawspace.json")
	require.NoError(t, os.WriteFile(cfgPath, data, 0644))

	return &cliEnv{dataDir: dataDir, config: cfgPath, binary: binPath}
}

// run executes the root command with the env config and returns stdout
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *cliEnv) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	cmd := GetRootCmd()
	resetFlags(cmd)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--config", e.config}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

// resetFlags restores every flag in the tree, since the command tree is
// package state shared across tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
