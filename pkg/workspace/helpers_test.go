package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// createTempWorkspace creates a temporary workspace directory with files
func createTempWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for relPath, content := range files {
		writeTestFile(t, root, relPath, content)
	}
	return root
}

// writeTestFile writes a file behind the manager's back
func writeTestFile(t *testing.T, root, relPath, content string) {
	t.Helper()

	fullPath := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0644))
}

// readTestFile reads a file directly from disk
func readTestFile(t *testing.T, root, relPath string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(root, relPath))
	require.NoError(t, err)
	return string(data)
}

// newTestManager creates a manager rooted at root with history disabled
func newTestManager(t *testing.T, root string) *Manager {
	t.Helper()

	m, err := NewManager(Config{Root: root})
	require.NoError(t, err)
	return m
}

// mockSnapshotter records snapshot calls
type mockSnapshotter struct {
	mock.Mock
}

func (m *mockSnapshotter) Init(root string) error {
	return m.Called(root).Error(0)
}

func (m *mockSnapshotter) Commit(root, message string, paths ...string) error {
	return m.Called(root, message, paths).Error(0)
}
