package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// batchRecorder collects watcher callbacks
type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *batchRecorder) record(names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, names)
	return nil
}

func (r *batchRecorder) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func startTestWatcher(t *testing.T, root string, onChange ChangeCallback) *AgentWatcher {
	t.Helper()

	watcher, err := NewAgentWatcher(AgentWatcherConfig{
		Root:               root,
		StabilityThreshold: 50 * time.Millisecond,
		OnChange:           onChange,
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	t.Cleanup(func() { _ = watcher.Stop() })

	// Give watcher time to initialize
	time.Sleep(50 * time.Millisecond)
	return watcher
}

func TestAgentWatcher_RootRequired(t *testing.T) {
	_, err := NewAgentWatcher(AgentWatcherConfig{})
	assert.ErrorIs(t, err, ErrRootRequired)
}

func TestAgentWatcher_StartStop(t *testing.T) {
	watcher, err := NewAgentWatcher(AgentWatcherConfig{Root: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, watcher.Start())
	assert.NoError(t, watcher.Stop())
}

func TestAgentWatcher_BatchesAgentChanges(t *testing.T) {
	root := t.TempDir()
	rec := &batchRecorder{}
	startTestWatcher(t, root, rec.record)

	writeTestFile(t, root, "AGENT_b.md", "b")
	writeTestFile(t, root, "AGENT_a_MEMORY.md", "a")

	require.Eventually(t, func() bool { return len(rec.all()) > 0 }, 2*time.Second, 20*time.Millisecond)

	var seen []string
	for _, batch := range rec.all() {
		seen = append(seen, batch...)
	}
	assert.Contains(t, seen, "AGENT_b.md")
	assert.Contains(t, seen, "AGENT_a_MEMORY.md")
}

func TestAgentWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	rec := &batchRecorder{}
	startTestWatcher(t, root, rec.record)

	writeTestFile(t, root, "SOUL.md", "soul")
	writeTestFile(t, root, "AGENTS.md", "generated")
	writeTestFile(t, root, "notes.txt", "notes")

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, rec.all())
}

func TestManager_WatchAgentsRegenerates(t *testing.T) {
	root := t.TempDir()
	m := newTestManager(t, root)
	require.NoError(t, m.RegenerateAgentsMD())

	watcher, err := m.WatchAgents(50 * time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	time.Sleep(50 * time.Millisecond)
	writeTestFile(t, root, "AGENT_external.md", "Written by the agent process")

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(root, "AGENTS.md"))
		return err == nil && containsAll(string(data), "## External", "Written by the agent process")
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "AGENT_external.md")))

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(root, "AGENTS.md"))
		return err == nil && containsAll(string(data), "_No agents defined yet.")
	}, 2*time.Second, 20*time.Millisecond)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
