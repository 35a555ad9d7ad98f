package binary

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/clawspace/internal/metrics"
)

// writeScript writes an executable shell script and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestManagerPath(t *testing.T) {
	t.Run("default under app root", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, "")
		root := t.TempDir()

		m := NewManager(Config{AppRoot: root})
		assert.Equal(t, filepath.Join(root, "bin", "picoclaw"), m.Path())
	})

	t.Run("configured path beats app root", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, "")

		m := NewManager(Config{AppRoot: "/srv/app", Path: "/opt/picoclaw"})
		assert.Equal(t, "/opt/picoclaw", m.Path())
	})

	t.Run("environment beats everything", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, "/usr/local/bin/picoclaw")

		m := NewManager(Config{AppRoot: "/srv/app", Path: "/opt/picoclaw"})
		assert.Equal(t, "/usr/local/bin/picoclaw", m.Path())
	})

	t.Run("resolved fresh on every call", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, "/first")
		m := NewManager(Config{})
		assert.Equal(t, "/first", m.Path())

		t.Setenv(EnvBinaryPath, "/second")
		assert.Equal(t, "/second", m.Path())
	})
}

func TestManagerPlatform(t *testing.T) {
	m := NewManager(Config{})
	m.goos, m.goarch = "linux", "s390x"

	assert.Equal(t, "linux-unknown", m.Platform())
}

func TestManagerHealthyBinary(t *testing.T) {
	t.Setenv(EnvBinaryPath, "")
	root := t.TempDir()
	writeScript(t, root, "bin/picoclaw", `if [ "$1" = "--version" ]; then echo "  picoclaw 0.3.1  "; exit 0; fi
exit 1`)

	m := NewManager(Config{AppRoot: root})
	ctx := context.Background()

	assert.True(t, m.Exists())

	version, ok := m.Version(ctx)
	require.True(t, ok)
	assert.Equal(t, "picoclaw 0.3.1", version)

	assert.True(t, m.Healthy(ctx))

	status := m.Status(ctx)
	assert.Equal(t, filepath.Join(root, "bin", "picoclaw"), status.Path)
	assert.True(t, status.Exists)
	assert.True(t, status.Healthy)
	assert.Equal(t, "picoclaw 0.3.1", status.Version)
	assert.Equal(t, m.Platform(), status.Platform)
	assert.Nil(t, status.Compatible)
}

func TestManagerMissingBinary(t *testing.T) {
	t.Setenv(EnvBinaryPath, "")
	m := NewManager(Config{AppRoot: t.TempDir()})
	ctx := context.Background()

	assert.False(t, m.Exists())

	version, ok := m.Version(ctx)
	assert.False(t, ok)
	assert.Empty(t, version)

	assert.False(t, m.Healthy(ctx))

	status := m.Status(ctx)
	assert.False(t, status.Exists)
	assert.False(t, status.Healthy)
	assert.Empty(t, status.Version)
}

func TestManagerNonExecutableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "picoclaw")
	require.NoError(t, os.WriteFile(path, []byte("not a program"), 0644))
	t.Setenv(EnvBinaryPath, path)

	m := NewManager(Config{})
	assert.False(t, m.Exists())
	assert.False(t, m.Healthy(context.Background()))
}

func TestManagerDirectoryIsNotBinary(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvBinaryPath, dir)

	assert.False(t, NewManager(Config{}).Exists())
}

func TestManagerVersionFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("non-zero exit", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, writeScript(t, t.TempDir(), "picoclaw", "echo 1.0.0; exit 3"))

		m := NewManager(Config{})
		assert.True(t, m.Exists())
		_, ok := m.Version(ctx)
		assert.False(t, ok)
		assert.False(t, m.Healthy(ctx))
	})

	t.Run("empty output", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, writeScript(t, t.TempDir(), "picoclaw", "echo '   '"))

		m := NewManager(Config{})
		_, ok := m.Version(ctx)
		assert.False(t, ok)
		assert.False(t, m.Status(ctx).Healthy)
	})

	t.Run("stderr is ignored", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, writeScript(t, t.TempDir(), "picoclaw", "echo oops >&2; echo 2.0.0"))

		version, ok := NewManager(Config{}).Version(ctx)
		require.True(t, ok)
		assert.Equal(t, "2.0.0", version)
	})

	t.Run("forked child holding stdout", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, writeScript(t, t.TempDir(), "picoclaw", "sleep 10 &\necho 1.0.0"))

		m := NewManager(Config{VersionTimeout: 500 * time.Millisecond})
		start := time.Now()
		version, ok := m.Version(ctx)
		assert.Less(t, time.Since(start), 5*time.Second)
		require.True(t, ok)
		assert.Equal(t, "1.0.0", version)
	})

	t.Run("hung binary times out", func(t *testing.T) {
		t.Setenv(EnvBinaryPath, writeScript(t, t.TempDir(), "picoclaw", "sleep 10"))

		m := NewManager(Config{VersionTimeout: 200 * time.Millisecond})
		start := time.Now()
		_, ok := m.Version(ctx)
		assert.False(t, ok)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestManagerCompatibility(t *testing.T) {
	ctx := context.Background()
	t.Setenv(EnvBinaryPath, writeScript(t, t.TempDir(), "picoclaw", "echo v0.3.1"))

	t.Run("satisfied", func(t *testing.T) {
		status := NewManager(Config{MinVersion: ">= 0.2.0"}).Status(ctx)
		require.NotNil(t, status.Compatible)
		assert.True(t, *status.Compatible)
	})

	t.Run("too old", func(t *testing.T) {
		status := NewManager(Config{MinVersion: ">= 1.0.0"}).Status(ctx)
		require.NotNil(t, status.Compatible)
		assert.False(t, *status.Compatible)
		assert.True(t, status.Healthy)
	})

	t.Run("invalid constraint", func(t *testing.T) {
		status := NewManager(Config{MinVersion: "banana"}).Status(ctx)
		assert.Nil(t, status.Compatible)
	})
}

func TestManagerStatusRecordsProbe(t *testing.T) {
	t.Setenv(EnvBinaryPath, "")
	reg := metrics.NewMetrics()

	NewManager(Config{AppRoot: t.TempDir(), Metrics: reg}).Status(context.Background())

	families, err := reg.Registry().Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "clawspace_binary_probes_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
		ok     bool
	}{
		{"0.3.1", "0.3.1", true},
		{"v1.2.3", "1.2.3", true},
		{"picoclaw 0.4.0 (deadbee)", "0.4.0", true},
		{"development build", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			v, ok := ParseVersion(tt.output)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, v.String())
			}
		})
	}
}
