// Package process supervises the external picoclaw process bound to a
// workspace. The pid and status live on the workspace record; every
// operation reloads the record, so state is never cached here.
//
// Operations on one workspace are serialized through a Locker, so two
// concurrent Start calls cannot both spawn a child. Restart is still
// Stop followed by Start: other callers may observe the stopped state
// in between.
//
// Expected failures (missing binary, double start, dead process) are
// reported in Result and Status values, never as errors.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/harun/clawspace/internal/metrics"
	"github.com/harun/clawspace/internal/tracing"
	"github.com/harun/clawspace/pkg/store"
)

const (
	// DefaultLogFileName receives the child's combined stdout and stderr.
	DefaultLogFileName = "picoclaw.log"

	// WorkspaceFlag precedes the workspace directory on the command line.
	WorkspaceFlag = "--workspace"

	// StatusAlreadyStopped is returned by Stop when no pid is recorded.
	StatusAlreadyStopped store.Status = "already_stopped"

	tracerName = "github.com/harun/clawspace/pkg/process"
)

// Binary is the part of binary discovery the process manager needs.
type Binary interface {
	Path() string
	Exists() bool
}

// Config configures a process manager for one workspace.
type Config struct {
	Store       store.Store
	Binary      Binary
	WorkspaceID string
	// Root overrides the workspace directory recorded on the workspace.
	Root        string
	LogFileName string
	Locker      *Locker
	Metrics     *metrics.Metrics
}

// Result describes the outcome of Start, Stop or Restart.
type Result struct {
	PID    int          `json:"pid,omitempty" yaml:"pid,omitempty"`
	Status store.Status `json:"status,omitempty" yaml:"status,omitempty"`
	Error  string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

// Status is a freshly probed view of the workspace process.
type Status struct {
	WorkspaceID string       `json:"workspace_id" yaml:"workspace_id"`
	PID         int          `json:"pid,omitempty" yaml:"pid,omitempty"`
	Running     bool         `json:"running" yaml:"running"`
	Status      store.Status `json:"status" yaml:"status"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Manager supervises the process of one workspace.
type Manager struct {
	config Config
	locker *Locker
}

// NewManager creates a process manager.
func NewManager(config Config) (*Manager, error) {
	if config.Store == nil {
		return nil, errors.New("store is required")
	}
	if config.Binary == nil {
		return nil, errors.New("binary is required")
	}
	if config.WorkspaceID == "" {
		return nil, errors.New("workspace id is required")
	}
	if config.LogFileName == "" {
		config.LogFileName = DefaultLogFileName
	}

	locker := config.Locker
	if locker == nil {
		locker = defaultLocker
	}

	return &Manager{config: config, locker: locker}, nil
}

// Start spawns the binary for the workspace unless it is already running.
func (m *Manager) Start(ctx context.Context) (result Result) {
	ctx = tracing.NewOperationContext(ctx, m.config.WorkspaceID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "process.start")
	defer func() {
		span.SetAttributes(tracing.AttrPID.Int(result.PID))
		tracing.EndSpan(span, resultError(result))
		m.config.Metrics.RecordProcessOperation("start", outcome(result))
	}()

	unlock, err := m.locker.Lock(m.config.WorkspaceID)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer unlock()

	ws, err := m.config.Store.Get(ctx, m.config.WorkspaceID)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to load workspace: %v", err)}
	}

	if m.isRunningLocked(ctx, ws) {
		return Result{
			PID:    ws.PID,
			Status: ws.Status,
			Error:  fmt.Sprintf("process already running (pid %d)", ws.PID),
		}
	}

	pid, err := m.spawn(ctx, ws)
	if err != nil {
		logger := tracing.LoggerFromContext(ctx, log.Logger)
		logger.Error().Err(err).Msg("Failed to start agent process")

		ws.PID = 0
		ws.Status = store.StatusError
		if uerr := m.config.Store.Update(ctx, ws); uerr != nil {
			logger.Error().Err(uerr).Msg("Failed to record process error")
		}
		return Result{Status: store.StatusError, Error: err.Error()}
	}

	ws.PID = pid
	ws.Status = store.StatusRunning
	if err := m.config.Store.Update(ctx, ws); err != nil {
		_ = terminate(pid)
		return Result{Error: fmt.Sprintf("failed to record process: %v", err)}
	}

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	logger.Info().
		Int("pid", pid).
		Str("root", ws.Path).
		Msg("Agent process started")

	return Result{PID: pid, Status: store.StatusRunning}
}

// spawn starts the detached child and returns its pid. The child gets its
// own session and is reaped in the background so it never lingers as a
// zombie that would still answer the liveness probe.
func (m *Manager) spawn(ctx context.Context, ws *store.Workspace) (int, error) {
	root := m.root(ws)
	if root == "" {
		return 0, fmt.Errorf("workspace %s has no directory", ws.ID)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return 0, fmt.Errorf("workspace directory %s does not exist", root)
	}

	binary := m.config.Binary.Path()
	if !m.config.Binary.Exists() {
		return 0, fmt.Errorf("picoclaw binary not found at %s", binary)
	}

	logPath := filepath.Join(root, m.config.LogFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	// The child holds its own descriptor once started.
	defer logFile.Close()

	cmd := exec.Command(binary, WorkspaceFlag, root)
	cmd.Dir = root
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to spawn %s: %w", binary, err)
	}

	pid := cmd.Process.Pid
	logger := tracing.LoggerFromContext(tracing.Detach(ctx), log.Logger)
	go func() {
		err := cmd.Wait()
		logger.Debug().Err(err).Int("pid", pid).Msg("Agent process exited")
	}()

	return pid, nil
}

// Stop terminates the recorded process, if any, and marks the workspace
// stopped.
func (m *Manager) Stop(ctx context.Context) (result Result) {
	ctx = tracing.NewOperationContext(ctx, m.config.WorkspaceID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "process.stop")
	defer func() {
		tracing.EndSpan(span, resultError(result))
		m.config.Metrics.RecordProcessOperation("stop", outcome(result))
	}()

	unlock, err := m.locker.Lock(m.config.WorkspaceID)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer unlock()

	ws, err := m.config.Store.Get(ctx, m.config.WorkspaceID)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to load workspace: %v", err)}
	}

	if !ws.HasPID() {
		return Result{Status: StatusAlreadyStopped}
	}

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	pid := ws.PID
	span.SetAttributes(tracing.AttrPID.Int(pid))

	if err := terminate(pid); err != nil {
		logger.Warn().Err(err).Int("pid", pid).Msg("Failed to signal agent process")
	}

	ws.PID = 0
	ws.Status = store.StatusStopped
	if err := m.config.Store.Update(ctx, ws); err != nil {
		return Result{Error: fmt.Sprintf("failed to record stop: %v", err)}
	}

	logger.Info().Int("pid", pid).Msg("Agent process stopped")

	return Result{Status: store.StatusStopped}
}

// Restart stops then starts the process. The two steps are not atomic.
func (m *Manager) Restart(ctx context.Context) Result {
	if stopped := m.Stop(ctx); !stopped.OK() {
		return stopped
	}
	return m.Start(ctx)
}

// IsRunning probes the recorded pid. A dead process recorded as running
// is reset to stopped.
func (m *Manager) IsRunning(ctx context.Context) bool {
	unlock, err := m.locker.Lock(m.config.WorkspaceID)
	if err != nil {
		log.Error().Err(err).Str("workspace_id", m.config.WorkspaceID).Msg("Failed to lock workspace")
		return false
	}
	defer unlock()

	ws, err := m.config.Store.Get(ctx, m.config.WorkspaceID)
	if err != nil {
		log.Error().Err(err).Str("workspace_id", m.config.WorkspaceID).Msg("Failed to load workspace")
		return false
	}
	return m.isRunningLocked(ctx, ws)
}

// Status reports pid, liveness and status after a fresh probe.
func (m *Manager) Status(ctx context.Context) Status {
	ctx = tracing.NewOperationContext(ctx, m.config.WorkspaceID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "process.status")

	status := Status{WorkspaceID: m.config.WorkspaceID}
	defer func() {
		span.SetAttributes(tracing.AttrPID.Int(status.PID))
		span.End()
	}()

	unlock, err := m.locker.Lock(m.config.WorkspaceID)
	if err != nil {
		status.Status = store.StatusError
		status.Error = err.Error()
		return status
	}
	defer unlock()

	ws, err := m.config.Store.Get(ctx, m.config.WorkspaceID)
	if err != nil {
		status.Status = store.StatusError
		status.Error = fmt.Sprintf("failed to load workspace: %v", err)
		return status
	}

	status.Running = m.isRunningLocked(ctx, ws)
	status.PID = ws.PID
	status.Status = ws.Status
	return status
}

// isRunningLocked probes ws and self-heals a stale running record. ws is
// updated in place. Callers hold the workspace lock.
func (m *Manager) isRunningLocked(ctx context.Context, ws *store.Workspace) bool {
	if !ws.HasPID() {
		return false
	}

	if processAlive(ws.PID) {
		return true
	}

	if ws.Status == store.StatusRunning {
		logger := tracing.LoggerFromContext(ctx, log.Logger)
		pid := ws.PID

		ws.PID = 0
		ws.Status = store.StatusStopped
		if err := m.config.Store.Update(ctx, ws); err != nil {
			logger.Error().Err(err).Int("pid", pid).Msg("Failed to reset stale process record")
			return false
		}

		m.config.Metrics.RecordSelfHeal()
		logger.Warn().Int("pid", pid).Msg("Agent process gone, marked stopped")
	}

	return false
}

func (m *Manager) root(ws *store.Workspace) string {
	if m.config.Root != "" {
		return m.config.Root
	}
	return ws.Path
}

func resultError(r Result) error {
	if r.OK() {
		return nil
	}
	return errors.New(r.Error)
}

func outcome(r Result) string {
	switch {
	case !r.OK():
		return "error"
	case r.Status == StatusAlreadyStopped:
		return "already_stopped"
	default:
		return "ok"
	}
}
