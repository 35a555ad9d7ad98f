package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/clawspace/internal/config"
)

var (
	metricsAddr   string
	probeSchedule string
)

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve Prometheus metrics and probe workspace processes",
	Long: `Serve Prometheus metrics on /metrics. On every tick of the probe schedule
the binary is checked and each workspace process is probed, so records of
processes that died are marked stopped.

The schedule is a five-field cron expression or a descriptor such as
"@every 30s" or "@hourly". An empty schedule disables probing.`,
	Args: cobra.NoArgs,
	RunE: withApp(runServeMetrics),
}

func init() {
	serveMetricsCmd.Flags().StringVar(&metricsAddr, "addr", "", "listen address (default from metrics.addr)")
	serveMetricsCmd.Flags().StringVar(&probeSchedule, "schedule", "@every 30s", "probe schedule (cron expression or descriptor)")
	rootCmd.AddCommand(serveMetricsCmd)
}

func runServeMetrics(cmd *cobra.Command, args []string, a *app) error {
	addr := metricsAddr
	if addr == "" {
		addr = a.cfg.Metrics.Addr
	}
	if err := config.NewValidator().ValidateListenAddr(addr); err != nil {
		return err
	}

	var schedule cron.Schedule
	if probeSchedule != "" {
		sched, err := parseProbeSchedule(probeSchedule)
		if err != nil {
			return err
		}
		schedule = sched
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if schedule != nil {
		go a.probeLoop(ctx, schedule)
	}

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	log.Info().Msg("Metrics server stopped")
	return nil
}

func parseProbeSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid probe schedule: %w", err)
	}
	return sched, nil
}

// probeLoop probes once immediately, then on every tick of schedule
func (a *app) probeLoop(ctx context.Context, schedule cron.Schedule) {
	for {
		a.probeOnce(ctx)

		timer := time.NewTimer(time.Until(schedule.Next(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// probeOnce checks the binary and every recorded process once
func (a *app) probeOnce(ctx context.Context) {
	a.binary.Status(ctx)

	list, err := a.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list workspaces")
		return
	}

	for _, ws := range list {
		if !ws.HasPID() {
			continue
		}
		pm, err := a.process(ctx, ws.ID)
		if err != nil {
			log.Error().Err(err).Str("workspace_id", ws.ID).Msg("Failed to probe workspace")
			continue
		}
		pm.IsRunning(ctx)
	}
}
