package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/clawspace/internal/config"
	"github.com/harun/clawspace/internal/logger"
	"github.com/harun/clawspace/internal/metrics"
	"github.com/harun/clawspace/internal/observability"
	"github.com/harun/clawspace/internal/tracing"
	"github.com/harun/clawspace/pkg/binary"
	"github.com/harun/clawspace/pkg/process"
	"github.com/harun/clawspace/pkg/store"
	"github.com/harun/clawspace/pkg/workspace"
)

const auditFileName = "audit.log"

// app holds the collaborators shared by every command invocation
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   store.Store
	metrics *metrics.Metrics
	binary  *binary.Manager
	locker  *process.Locker
	audit   *observability.AuditLogger
	tracing bool
}

// newApp loads configuration and opens the workspace store. Callers must
// close the returned app.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,

		Redaction:  cfg.Logging.Redact,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     l,
		metrics: metrics.NewMetrics(),
		locker:  process.NewLocker(filepath.Join(cfg.DataDir, "locks")),
	}
	a.binary = binary.NewManager(binary.Config{
		Path:       cfg.Binary.Path,
		AppRoot:    cfg.Binary.AppRoot,
		MinVersion: cfg.Binary.MinVersion,
		Metrics:    a.metrics,
	})

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			a.tracing = true
		}
	}

	audit, err := observability.NewAuditLogger(filepath.Join(cfg.DataDir, auditFileName))
	if err != nil {
		a.close()
		return nil, err
	}
	a.audit = audit

	s, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open workspace store: %w", err)
	}
	a.store = s

	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close workspace store")
		}
	}
	if err := a.audit.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close audit log")
	}
	if a.tracing {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}
	if a.log != nil {
		_ = a.log.Close()
	}
}

// record loads a workspace record, turning ErrNotFound into a user-facing error
func (a *app) record(ctx context.Context, id string) (*store.Workspace, error) {
	ws, err := a.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("workspace %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace %s: %w", id, err)
	}
	return ws, nil
}

// rootOf returns the recorded directory of ws, or its default location
func (a *app) rootOf(ws *store.Workspace) string {
	if ws.Path != "" {
		return ws.Path
	}
	return workspace.RootFor(a.cfg.WorkspacesDir, ws.ID)
}

func (a *app) snapshotter() workspace.Snapshotter {
	if !a.cfg.Snapshots.Enabled {
		return workspace.NopSnapshotter{}
	}
	return workspace.NewGitSnapshotter(a.cfg.Snapshots.GitPath)
}

// workspace returns a file manager bound to an existing record
func (a *app) workspace(ctx context.Context, id string) (*workspace.Manager, error) {
	ws, err := a.record(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.workspaceFor(ctx, ws)
}

// workspaceFor builds a file manager whose events go to the audit log
func (a *app) workspaceFor(ctx context.Context, ws *store.Workspace) (*workspace.Manager, error) {
	emitter := workspace.NewEventEmitter()
	a.auditWorkspace(ctx, ws.ID, emitter)

	return workspace.NewManager(workspace.Config{
		Root:        a.rootOf(ws),
		WorkspaceID: ws.ID,
		Store:       a.store,
		Snapshotter: a.snapshotter(),
		Emitter:     emitter,
		Metrics:     a.metrics,
	})
}

// process returns a process manager bound to an existing record
func (a *app) process(ctx context.Context, id string) (*process.Manager, error) {
	if _, err := a.record(ctx, id); err != nil {
		return nil, err
	}
	return process.NewManager(process.Config{
		Store:       a.store,
		Binary:      a.binary,
		WorkspaceID: id,
		Locker:      a.locker,
		Metrics:     a.metrics,
	})
}

// withApp wraps a RunE body with app setup and teardown
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := checkOutputFormat(); err != nil {
			return err
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd, args, a)
	}
}
