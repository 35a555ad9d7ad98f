package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/clawspace/pkg/process"
)

var processCmd = &cobra.Command{
	Use:     "process",
	Aliases: []string{"proc"},
	Short:   "Control the picoclaw process of a workspace",
}

var processStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start the picoclaw process for a workspace",
	Long: `Start picoclaw in the background against the workspace directory.
Output is appended to picoclaw.log inside the workspace.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runProcessStart),
}

var processStopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop the picoclaw process for a workspace",
	Long:  `Send SIGTERM to the recorded picoclaw process and mark the workspace stopped.`,
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runProcessStop),
}

var processRestartCmd = &cobra.Command{
	Use:   "restart <id>",
	Short: "Stop then start the picoclaw process for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runProcessRestart),
}

var processStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show process status",
	Long: `Show the current status of the picoclaw process for a workspace.
A process recorded as running that no longer exists is marked stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runProcessStatus),
}

func init() {
	processCmd.AddCommand(
		processStartCmd,
		processStopCmd,
		processRestartCmd,
		processStatusCmd,
	)
	rootCmd.AddCommand(processCmd)
}

func runProcessStart(cmd *cobra.Command, args []string, a *app) error {
	return runProcessOperation(cmd, args[0], a, (*process.Manager).Start)
}

func runProcessStop(cmd *cobra.Command, args []string, a *app) error {
	return runProcessOperation(cmd, args[0], a, (*process.Manager).Stop)
}

func runProcessRestart(cmd *cobra.Command, args []string, a *app) error {
	return runProcessOperation(cmd, args[0], a, (*process.Manager).Restart)
}

func runProcessOperation(cmd *cobra.Command, id string, a *app, op func(*process.Manager, context.Context) process.Result) error {
	pm, err := a.process(cmd.Context(), id)
	if err != nil {
		return err
	}

	res := op(pm, cmd.Context())
	a.audit.RecordProcess(cmd.Context(), id, cmd.Name(), res.PID, res.Error)
	if err := render(cmd.OutOrStdout(), res, func(w io.Writer) {
		if res.Status != "" {
			fmt.Fprintf(w, "Status: %s\n", res.Status)
		}
		if res.PID > 0 {
			fmt.Fprintf(w, "PID: %d\n", res.PID)
		}
	}); err != nil {
		return err
	}

	if !res.OK() {
		return errors.New(res.Error)
	}
	return nil
}

type processStatusView struct {
	process.Status `yaml:",inline"`
	Uptime         string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
}

func runProcessStatus(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()

	pm, err := a.process(ctx, args[0])
	if err != nil {
		return err
	}

	st := pm.Status(ctx)
	view := processStatusView{Status: st}

	// The record is stamped when the process is recorded, so its update
	// time approximates the start time while running.
	if st.Running {
		if ws, err := a.record(ctx, args[0]); err == nil {
			view.Uptime = formatDuration(time.Since(ws.UpdatedAt))
		}
	}

	if err := render(cmd.OutOrStdout(), view, func(w io.Writer) {
		state := "stopped"
		if st.Running {
			state = "running"
		}
		fmt.Fprintf(w, "Process: %s\n", state)
		fmt.Fprintf(w, "Status: %s\n", st.Status)
		if st.PID > 0 {
			fmt.Fprintf(w, "PID: %d\n", st.PID)
		}
		if view.Uptime != "" {
			fmt.Fprintf(w, "Uptime: %s\n", view.Uptime)
		}
	}); err != nil {
		return err
	}

	if st.Error != "" {
		return errors.New(st.Error)
	}
	return nil
}
