package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/clawspace/internal/metrics"
	"github.com/harun/clawspace/internal/tracing"
)

const tracerName = "github.com/harun/clawspace/pkg/workspace"

// Manager owns the on-disk contents of one workspace
type Manager struct {
	root        string
	config      Config
	snapshotter Snapshotter
	emitter     *EventEmitter
	metrics     *metrics.Metrics
}

// NewManager creates a new workspace manager
func NewManager(config Config) (*Manager, error) {
	if config.Root == "" {
		return nil, ErrRootRequired
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	if config.Snapshotter == nil {
		config.Snapshotter = NopSnapshotter{}
	}
	if config.Emitter == nil {
		config.Emitter = NewEventEmitter()
	}

	return &Manager{
		root:        root,
		config:      config,
		snapshotter: config.Snapshotter,
		emitter:     config.Emitter,
		metrics:     config.Metrics,
	}, nil
}

// RootFor returns the directory a workspace record lives in
func RootFor(baseDir, workspaceID string) string {
	return filepath.Join(baseDir, workspaceID)
}

// Root returns the absolute workspace directory
func (m *Manager) Root() string {
	return m.root
}

// On registers an event handler
func (m *Manager) On(event WorkspaceEvent, handler EventHandler) {
	m.emitter.On(event, handler)
}

// CreateStructure creates the root, the fixed subdirectories and any
// missing seed files, rebuilds AGENTS.md and takes an initial snapshot.
// Existing files are never overwritten, so calling it again is safe.
func (m *Manager) CreateStructure(ctx context.Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "workspace.create_structure",
		tracing.AttrWorkspaceRoot.String(m.root))
	defer func() { tracing.EndSpan(span, err) }()

	if err := os.MkdirAll(m.root, 0755); err != nil {
		return fmt.Errorf("failed to create workspace root: %w", err)
	}
	for _, dir := range structureDirs {
		if err := os.MkdirAll(filepath.Join(m.root, dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	var seeded []string
	soul, err := renderTemplate(soulTemplate, nil)
	if err != nil {
		return err
	}
	created, err := m.createIfAbsent(SoulFileName, soul)
	if err != nil {
		return err
	}
	if created {
		seeded = append(seeded, SoulFileName)
	}

	if err := m.snapshotter.Init(m.root); err != nil {
		m.snapshotFailed("init", nil, err)
	}

	if err := m.RegenerateAgentsMD(); err != nil {
		return err
	}

	m.snapshot("Initial snapshot")

	if err := m.syncRecordPath(ctx); err != nil {
		return err
	}

	log.Info().
		Str("root", m.root).
		Strs("seeded", seeded).
		Msg("Workspace structure ready")

	m.emitter.EmitInitialized(m.root, seeded)
	return nil
}

// syncRecordPath stores the root on the workspace record when it differs
func (m *Manager) syncRecordPath(ctx context.Context) error {
	if m.config.Store == nil || m.config.WorkspaceID == "" {
		return nil
	}

	ws, err := m.config.Store.Get(ctx, m.config.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to load workspace record: %w", err)
	}
	if ws.Path == m.root {
		return nil
	}

	ws.Path = m.root
	if err := m.config.Store.Update(ctx, ws); err != nil {
		return fmt.Errorf("failed to update workspace path: %w", err)
	}
	return nil
}

// ReadFile returns the contents of name. A missing file is reported as
// ok == false, not as an error.
func (m *Manager) ReadFile(name string) (content string, ok bool, err error) {
	path, _, err := m.resolve(name)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), true, nil
}

// WriteFile overwrites name with content, creating parent directories.
// Writing an agent file or one of its sub-files rebuilds AGENTS.md.
func (m *Manager) WriteFile(name, content string) error {
	_, rel, err := m.resolve(name)
	if err != nil {
		return err
	}

	if err := m.writeAndSnapshot(rel, content, "Update "+rel); err != nil {
		return err
	}

	if affectsAgentsMD(rel) {
		return m.RegenerateAgentsMD()
	}
	return nil
}

// affectsAgentsMD reports whether a write to rel can change AGENTS.md
func affectsAgentsMD(rel string) bool {
	return ParseAgentFileName(rel).Kind != KindUnclassified
}

// AgentFiles lists the primary agent files at the workspace root, sorted
func (m *Manager) AgentFiles() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace: %w", err)
	}

	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsAgentFile(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// AgentSubFiles returns the existing sub-files of a primary agent file,
// MEMORY before HEARTBEAT
func (m *Manager) AgentSubFiles(primary string) []string {
	subFiles := []string{}

	slug, ok := AgentSlug(primary)
	if !ok {
		return subFiles
	}

	for _, name := range []string{MemoryFileName(slug), HeartbeatFileName(slug)} {
		if m.fileExists(name) {
			subFiles = append(subFiles, name)
		}
	}
	return subFiles
}

// CreateAgentFile creates AGENT_<slug>.md from a display name along with
// any missing MEMORY and HEARTBEAT stubs. If the agent file already
// exists its name is returned and nothing is written.
func (m *Manager) CreateAgentFile(displayName string) (string, error) {
	slug, ok := NormalizeSlug(displayName)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAgentName, displayName)
	}

	fileName := PrimaryFileName(slug)
	if !IsAgentFile(fileName) {
		return "", fmt.Errorf("%w: %q reads as a sub-file name", ErrInvalidAgentName, displayName)
	}

	if m.fileExists(fileName) {
		return fileName, nil
	}

	data := newAgentTemplateData(slug)
	files := []struct {
		name     string
		template string
	}{
		{fileName, agentTemplate},
		{data.MemoryFile, memoryTemplate},
		{data.HeartbeatFile, heartbeatTemplate},
	}

	var created []string
	for _, f := range files {
		if f.name != fileName && m.fileExists(f.name) {
			continue
		}

		content, err := renderTemplate(f.template, data)
		if err != nil {
			return "", err
		}
		if err := m.writeAndSnapshot(f.name, content, "Create "+f.name); err != nil {
			return "", err
		}
		created = append(created, f.name)
	}

	if err := m.RegenerateAgentsMD(); err != nil {
		return "", err
	}

	m.metrics.RecordAgentCreated()

	log.Info().
		Str("root", m.root).
		Str("agent", fileName).
		Strs("created", created).
		Msg("Agent file created")

	m.emitter.EmitAgentCreated(m.root, fileName, slug, created)
	return fileName, nil
}

// RegenerateAgentsMD rebuilds AGENTS.md from the current agent files
func (m *Manager) RegenerateAgentsMD() error {
	start := time.Now()

	files, err := m.AgentFiles()
	if err != nil {
		return err
	}

	sections := make([]agentSection, 0, len(files))
	for _, name := range files {
		content, _, err := m.ReadFile(name)
		if err != nil {
			return err
		}
		slug, _ := AgentSlug(name)
		sections = append(sections, agentSection{
			Name:     HumanizeSlug(slug),
			Content:  content,
			SubFiles: m.AgentSubFiles(name),
		})
	}

	if err := m.writeRaw(AgentsFileName, renderAgentsMD(sections)); err != nil {
		return err
	}
	m.snapshot("Regenerate "+AgentsFileName, AgentsFileName)

	m.metrics.RecordRegeneration(time.Since(start))

	log.Debug().
		Str("root", m.root).
		Int("agents", len(sections)).
		Msg("AGENTS.md regenerated")

	m.emitter.EmitAgentsRegenerated(m.root, len(sections))
	return nil
}

// ListFiles returns every regular file under the root as a slash-separated
// relative path, sorted. The root snapshot directory is skipped and a missing
// root yields an empty list.
func (m *Manager) ListFiles() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == filepath.Join(m.root, SnapshotDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(m.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace files: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// DestroyStructure removes the whole workspace directory
func (m *Manager) DestroyStructure() error {
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}

	m.metrics.RecordDestroy()

	log.Warn().
		Str("root", m.root).
		Msg("Workspace destroyed")

	m.emitter.EmitDestroyed(m.root)
	return nil
}

// resolve maps a workspace-relative name to an absolute path, rejecting
// anything that would land outside the root or inside the snapshot directory
func (m *Manager) resolve(name string) (path, rel string, err error) {
	if name == "" || filepath.IsAbs(name) {
		return "", "", fmt.Errorf("%w: %q", ErrPathOutsideWorkspace, name)
	}

	rel = filepath.Clean(filepath.FromSlash(name))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %q", ErrPathOutsideWorkspace, name)
	}

	first := strings.SplitN(rel, string(filepath.Separator), 2)[0]
	if first == SnapshotDir {
		return "", "", fmt.Errorf("%w: %q", ErrPathOutsideWorkspace, name)
	}

	return filepath.Join(m.root, rel), filepath.ToSlash(rel), nil
}

func (m *Manager) fileExists(name string) bool {
	info, err := os.Stat(filepath.Join(m.root, filepath.FromSlash(name)))
	return err == nil && info.Mode().IsRegular()
}

// writeRaw writes rel without snapshotting or regenerating
func (m *Manager) writeRaw(rel, content string) error {
	path := filepath.Join(m.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}

	m.metrics.RecordFileWrite(string(ClassifyFile(rel)))
	m.emitter.EmitFileWritten(m.root, rel)
	return nil
}

func (m *Manager) writeAndSnapshot(rel, content, message string) error {
	if err := m.writeRaw(rel, content); err != nil {
		return err
	}
	m.snapshot(message, rel)
	return nil
}

// createIfAbsent writes rel only if it does not exist yet
func (m *Manager) createIfAbsent(rel, content string) (bool, error) {
	path := filepath.Join(m.root, filepath.FromSlash(rel))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", rel, err)
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to close %s: %w", rel, err)
	}

	m.metrics.RecordFileWrite(string(ClassifyFile(rel)))
	m.emitter.EmitFileWritten(m.root, rel)
	return true, nil
}

// snapshot commits paths. Failures are reported but never returned.
func (m *Manager) snapshot(message string, paths ...string) {
	start := time.Now()
	err := m.snapshotter.Commit(m.root, message, paths...)
	m.metrics.RecordSnapshot(time.Since(start), err)
	if err != nil {
		m.snapshotFailed(message, paths, err)
	}
}

func (m *Manager) snapshotFailed(message string, paths []string, err error) {
	log.Warn().
		Err(err).
		Str("root", m.root).
		Str("message", message).
		Strs("paths", paths).
		Msg("Workspace snapshot failed")

	m.emitter.EmitSnapshotFailed(m.root, message, paths, fmt.Errorf("%w: %w", ErrSnapshotFailed, err))
}
