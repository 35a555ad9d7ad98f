package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// SnapshotDir is the version-history metadata directory inside a workspace.
const SnapshotDir = ".git"

// Snapshotter records workspace history. Commit with no paths snapshots
// every change in the workspace.
type Snapshotter interface {
	Init(root string) error
	Commit(root, message string, paths ...string) error
}

// NopSnapshotter disables version history.
type NopSnapshotter struct{}

// Init does nothing.
func (NopSnapshotter) Init(string) error { return nil }

// Commit does nothing.
func (NopSnapshotter) Commit(string, string, ...string) error { return nil }

// GitSnapshotter keeps history in a local git repository at the workspace root.
type GitSnapshotter struct {
	// GitPath is the git executable; "git" when empty.
	GitPath string
	// Timeout bounds each git invocation.
	Timeout time.Duration
}

const (
	snapshotAuthorName  = "clawspace"
	snapshotAuthorEmail = "clawspace@localhost"
	defaultGitTimeout   = 30 * time.Second
)

// NewGitSnapshotter creates a git-backed snapshotter.
func NewGitSnapshotter(gitPath string) *GitSnapshotter {
	return &GitSnapshotter{GitPath: gitPath, Timeout: defaultGitTimeout}
}

// Init creates the repository unless one already exists.
func (g *GitSnapshotter) Init(root string) error {
	if info, err := os.Stat(filepath.Join(root, SnapshotDir)); err == nil && info.IsDir() {
		return nil
	}
	_, err := g.run(root, "init", "-q")
	return err
}

// Commit stages paths (or everything) and commits them. A clean index is
// not an error.
func (g *GitSnapshotter) Commit(root, message string, paths ...string) error {
	addArgs := []string{"add", "-A"}
	if len(paths) > 0 {
		addArgs = append(addArgs, "--")
		addArgs = append(addArgs, paths...)
	}
	if _, err := g.run(root, addArgs...); err != nil {
		return err
	}

	clean, err := g.indexClean(root, paths...)
	if err != nil {
		return err
	}
	if clean {
		return nil
	}

	commitArgs := []string{"commit", "-q", "--no-verify", "-m", message}
	if len(paths) > 0 {
		commitArgs = append(commitArgs, "--")
		commitArgs = append(commitArgs, paths...)
	}
	_, err = g.run(root, commitArgs...)
	return err
}

// indexClean reports whether nothing is staged for paths. git diff --quiet
// exits 1 when there are differences.
func (g *GitSnapshotter) indexClean(root string, paths ...string) (bool, error) {
	args := []string{"diff", "--cached", "--quiet"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	_, err := g.run(root, args...)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, err
}

func (g *GitSnapshotter) run(root string, args ...string) (string, error) {
	gitPath := g.GitPath
	if gitPath == "" {
		gitPath = "git"
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultGitTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fullArgs := append([]string{
		"-C", root,
		"-c", "user.name=" + snapshotAuthorName,
		"-c", "user.email=" + snapshotAuthorEmail,
		"-c", "commit.gpgsign=false",
	}, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, gitPath, fullArgs...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), root, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
