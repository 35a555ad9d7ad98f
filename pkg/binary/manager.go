// Package binary locates and characterizes the external picoclaw executable.
//
// Every probe degrades instead of failing: a missing binary, a non-zero exit
// or unreadable output all surface as false or an absent version.
package binary

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"github.com/harun/clawspace/internal/metrics"
)

const (
	// EnvBinaryPath overrides every other path source when set.
	EnvBinaryPath = "PICOCLAW_BINARY"

	// DefaultRelativePath is the binary location under the application root.
	DefaultRelativePath = "bin/picoclaw"

	// VersionFlag is passed to the binary to print its version.
	VersionFlag = "--version"

	defaultVersionTimeout = 5 * time.Second
)

// Config configures binary discovery.
type Config struct {
	// Path is an explicit binary path; takes precedence over AppRoot.
	Path string
	// AppRoot is the directory DefaultRelativePath is resolved against.
	AppRoot string
	// MinVersion is an optional semver constraint such as ">= 0.2.0".
	MinVersion string
	// VersionTimeout bounds the --version probe.
	VersionTimeout time.Duration
	Metrics        *metrics.Metrics
}

// Status is an aggregate snapshot of the binary.
type Status struct {
	Path       string `json:"path" yaml:"path"`
	Exists     bool   `json:"exists" yaml:"exists"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	Platform   string `json:"platform" yaml:"platform"`
	Healthy    bool   `json:"healthy" yaml:"healthy"`
	Compatible *bool  `json:"compatible,omitempty" yaml:"compatible,omitempty"`
}

// Manager resolves the binary on every call; nothing is cached.
type Manager struct {
	config    Config
	lookupEnv func(string) (string, bool)
	goos      string
	goarch    string
}

// NewManager creates a binary manager.
func NewManager(config Config) *Manager {
	if config.VersionTimeout <= 0 {
		config.VersionTimeout = defaultVersionTimeout
	}
	return &Manager{
		config:    config,
		lookupEnv: os.LookupEnv,
		goos:      runtime.GOOS,
		goarch:    runtime.GOARCH,
	}
}

// Path returns the resolved binary path: $PICOCLAW_BINARY, then the
// configured path, then <app root>/bin/picoclaw.
func (m *Manager) Path() string {
	if p, ok := m.lookupEnv(EnvBinaryPath); ok && p != "" {
		return p
	}
	if m.config.Path != "" {
		return m.config.Path
	}

	root := m.config.AppRoot
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Join(root, DefaultRelativePath)
}

// Platform returns the "<os>-<arch>" tag of the host.
func (m *Manager) Platform() string {
	return PlatformTag(m.goos, m.goarch)
}

// Exists reports whether the resolved path is an executable regular file.
func (m *Manager) Exists() bool {
	return isExecutable(m.Path())
}

// Version runs the binary with --version and returns its trimmed stdout.
// The second value is false on any failure or empty output.
func (m *Manager) Version(ctx context.Context) (string, bool) {
	path := m.Path()
	if !isExecutable(path) {
		return "", false
	}

	execCtx, cancel := context.WithTimeout(ctx, m.config.VersionTimeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(execCtx, path, VersionFlag)
	cmd.Stdout = &stdout
	// A forked grandchild can hold stdout open after the binary exits.
	cmd.WaitDelay = m.config.VersionTimeout

	if err := cmd.Run(); err != nil && !errors.Is(err, exec.ErrWaitDelay) {
		log.Debug().Err(err).Str("path", path).Msg("Binary version probe failed")
		return "", false
	}

	version := strings.TrimSpace(stdout.String())
	if version == "" {
		return "", false
	}
	return version, true
}

// Healthy reports whether the binary exists and reports a version.
func (m *Manager) Healthy(ctx context.Context) bool {
	if !m.Exists() {
		return false
	}
	_, ok := m.Version(ctx)
	return ok
}

// Status collects path, existence, version, platform and health.
func (m *Manager) Status(ctx context.Context) Status {
	status := Status{
		Path:     m.Path(),
		Exists:   m.Exists(),
		Platform: m.Platform(),
	}

	if status.Exists {
		if version, ok := m.Version(ctx); ok {
			status.Version = version
			status.Healthy = true
		}
	}

	if status.Version != "" {
		status.Compatible = m.compatible(status.Version)
	}

	m.config.Metrics.RecordBinaryProbe(status.Healthy)

	return status
}

// compatible checks version against MinVersion. It returns nil when no
// constraint is configured or either side does not parse.
func (m *Manager) compatible(version string) *bool {
	if m.config.MinVersion == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(m.config.MinVersion)
	if err != nil {
		log.Warn().Err(err).Str("constraint", m.config.MinVersion).Msg("Invalid binary version constraint")
		return nil
	}

	v, ok := ParseVersion(version)
	if !ok {
		return nil
	}

	ok = constraint.Check(v)
	return &ok
}

// ParseVersion extracts a semantic version from --version output such as
// "0.3.1", "v0.3.1" or "picoclaw 0.3.1 (abc123)".
func ParseVersion(output string) (*semver.Version, bool) {
	if v, err := semver.NewVersion(strings.TrimSpace(output)); err == nil {
		return v, true
	}
	for _, field := range strings.Fields(output) {
		if v, err := semver.NewVersion(field); err == nil {
			return v, true
		}
	}
	return nil, false
}

func isExecutable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
