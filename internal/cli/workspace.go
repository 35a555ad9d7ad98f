package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/clawspace/pkg/store"
	"github.com/harun/clawspace/pkg/workspace"
)

var (
	createName     string
	createID       string
	writeContent   string
	destroyKeep    bool
	watchThreshold time.Duration
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage agent workspaces",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a workspace record and its directory",
	Args:  cobra.NoArgs,
	RunE:  withApp(runWorkspaceCreate),
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Args:  cobra.NoArgs,
	RunE:  withApp(runWorkspaceList),
}

var workspaceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a workspace record and its process state",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runWorkspaceShow),
}

var workspaceInitCmd = &cobra.Command{
	Use:   "init <id>",
	Short: "Create any missing directories and seed files",
	Long: `Create the workspace directory, its fixed subdirectories and any
missing seed files. Existing files are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runWorkspaceInit),
}

var workspaceFilesCmd = &cobra.Command{
	Use:   "files <id>",
	Short: "List every file in a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runWorkspaceFiles),
}

var workspaceReadCmd = &cobra.Command{
	Use:   "read <id> <file>",
	Short: "Print a workspace file",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runWorkspaceRead),
}

var workspaceWriteCmd = &cobra.Command{
	Use:   "write <id> <file>",
	Short: "Write a workspace file from --content or stdin",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runWorkspaceWrite),
}

var workspaceAgentsCmd = &cobra.Command{
	Use:   "agents <id>",
	Short: "List agent files and their sub-files",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runWorkspaceAgents),
}

var workspaceAgentCreateCmd = &cobra.Command{
	Use:   "agent-create <id> <name...>",
	Short: "Create an agent file with its memory and heartbeat files",
	Args:  cobra.MinimumNArgs(2),
	RunE:  withApp(runWorkspaceAgentCreate),
}

var workspaceRegenCmd = &cobra.Command{
	Use:   "regen <id>",
	Short: "Rebuild AGENTS.md",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runWorkspaceRegen),
}

var workspaceDestroyCmd = &cobra.Command{
	Use:   "destroy <id>",
	Short: "Stop the workspace process and remove its directory",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runWorkspaceDestroy),
}

var workspaceWatchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Rebuild AGENTS.md whenever agent files change",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runWorkspaceWatch),
}

func init() {
	workspaceCreateCmd.Flags().StringVar(&createName, "name", "", "display name of the workspace")
	workspaceCreateCmd.Flags().StringVar(&createID, "id", "", "workspace id (generated when empty)")
	workspaceWriteCmd.Flags().StringVar(&writeContent, "content", "", "file content (read from stdin when not set)")
	workspaceDestroyCmd.Flags().BoolVar(&destroyKeep, "keep-record", false, "keep the workspace record after removing the directory")
	workspaceWatchCmd.Flags().DurationVar(&watchThreshold, "threshold", 500*time.Millisecond, "quiet period before a batch of changes is applied")

	workspaceCmd.AddCommand(
		workspaceCreateCmd,
		workspaceListCmd,
		workspaceShowCmd,
		workspaceInitCmd,
		workspaceFilesCmd,
		workspaceReadCmd,
		workspaceWriteCmd,
		workspaceAgentsCmd,
		workspaceAgentCreateCmd,
		workspaceRegenCmd,
		workspaceDestroyCmd,
		workspaceWatchCmd,
	)
	rootCmd.AddCommand(workspaceCmd)
}

func runWorkspaceCreate(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()

	ws := &store.Workspace{ID: createID, Name: createName}
	if err := a.store.Create(ctx, ws); err != nil {
		return fmt.Errorf("failed to create workspace record: %w", err)
	}

	mgr, err := a.workspaceFor(ctx, ws)
	if err != nil {
		return err
	}
	if err := mgr.CreateStructure(ctx); err != nil {
		return fmt.Errorf("failed to create workspace structure: %w", err)
	}

	ws, err = a.record(ctx, ws.ID)
	if err != nil {
		return err
	}

	log.Info().Str("workspace_id", ws.ID).Str("root", ws.Path).Msg("Workspace created")

	return render(cmd.OutOrStdout(), ws, func(w io.Writer) {
		fmt.Fprintf(w, "Created workspace %s\n", ws.ID)
		fmt.Fprintf(w, "Path: %s\n", ws.Path)
	})
}

func runWorkspaceList(cmd *cobra.Command, args []string, a *app) error {
	list, err := a.store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}
	if list == nil {
		list = []*store.Workspace{}
	}

	return render(cmd.OutOrStdout(), list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "No workspaces")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPID\tPATH")
		for _, ws := range list {
			pid := "-"
			if ws.HasPID() {
				pid = fmt.Sprintf("%d", ws.PID)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ws.ID, ws.Name, ws.Status, pid, ws.Path)
		}
		tw.Flush()
	})
}

type workspaceView struct {
	store.Workspace `yaml:",inline"`
	Running         bool `json:"running" yaml:"running"`
}

func runWorkspaceShow(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()

	pm, err := a.process(ctx, args[0])
	if err != nil {
		return err
	}
	running := pm.IsRunning(ctx)

	// Reload after the probe, which may have reset a stale record.
	ws, err := a.record(ctx, args[0])
	if err != nil {
		return err
	}

	view := workspaceView{Workspace: *ws, Running: running}
	return render(cmd.OutOrStdout(), view, func(w io.Writer) {
		fmt.Fprintf(w, "ID: %s\n", ws.ID)
		if ws.Name != "" {
			fmt.Fprintf(w, "Name: %s\n", ws.Name)
		}
		fmt.Fprintf(w, "Path: %s\n", ws.Path)
		fmt.Fprintf(w, "Status: %s\n", ws.Status)
		if ws.HasPID() {
			fmt.Fprintf(w, "PID: %d\n", ws.PID)
		}
		fmt.Fprintf(w, "Created: %s\n", ws.CreatedAt.Format(time.RFC3339))
	})
}

func runWorkspaceInit(cmd *cobra.Command, args []string, a *app) error {
	mgr, err := a.workspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := mgr.CreateStructure(cmd.Context()); err != nil {
		return fmt.Errorf("failed to create workspace structure: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Workspace ready at %s\n", mgr.Root())
	return nil
}

func runWorkspaceFiles(cmd *cobra.Command, args []string, a *app) error {
	mgr, err := a.workspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	files, err := mgr.ListFiles()
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	return render(cmd.OutOrStdout(), files, func(w io.Writer) {
		for _, f := range files {
			fmt.Fprintln(w, f)
		}
	})
}

func runWorkspaceRead(cmd *cobra.Command, args []string, a *app) error {
	mgr, err := a.workspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	content, ok, err := mgr.ReadFile(args[1])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("file %s not found", args[1])
	}

	_, err = io.WriteString(cmd.OutOrStdout(), content)
	return err
}

func runWorkspaceWrite(cmd *cobra.Command, args []string, a *app) error {
	mgr, err := a.workspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	content := writeContent
	if !cmd.Flags().Changed("content") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		content = string(data)
	}

	if err := mgr.WriteFile(args[1], content); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[1])
	return nil
}

type agentView struct {
	File     string   `json:"file" yaml:"file"`
	Slug     string   `json:"slug" yaml:"slug"`
	Name     string   `json:"name" yaml:"name"`
	SubFiles []string `json:"sub_files" yaml:"sub_files"`
}

func runWorkspaceAgents(cmd *cobra.Command, args []string, a *app) error {
	mgr, err := a.workspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	files, err := mgr.AgentFiles()
	if err != nil {
		return fmt.Errorf("failed to list agent files: %w", err)
	}

	agents := make([]agentView, 0, len(files))
	for _, f := range files {
		slug, _ := workspace.AgentSlug(f)
		agents = append(agents, agentView{
			File:     f,
			Slug:     slug,
			Name:     workspace.HumanizeSlug(slug),
			SubFiles: mgr.AgentSubFiles(f),
		})
	}

	return render(cmd.OutOrStdout(), agents, func(w io.Writer) {
		if len(agents) == 0 {
			fmt.Fprintln(w, "No agents")
			return
		}
		for _, ag := range agents {
			fmt.Fprintf(w, "%s (%s)\n", ag.File, ag.Name)
			for _, sub := range ag.SubFiles {
				fmt.Fprintf(w, "  %s\n", sub)
			}
		}
	})
}

func runWorkspaceAgentCreate(cmd *cobra.Command, args []string, a *app) error {
	mgr, err := a.workspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	name := strings.Join(args[1:], " ")

	file, err := mgr.CreateAgentFile(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", file)
	return nil
}

func runWorkspaceRegen(cmd *cobra.Command, args []string, a *app) error {
	mgr, err := a.workspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := mgr.RegenerateAgentsMD(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Regenerated %s\n", workspace.AgentsFileName)
	return nil
}

func runWorkspaceDestroy(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	id := args[0]

	mgr, err := a.workspace(ctx, id)
	if err != nil {
		return err
	}
	pm, err := a.process(ctx, id)
	if err != nil {
		return err
	}

	if res := pm.Stop(ctx); !res.OK() {
		return fmt.Errorf("failed to stop workspace process: %s", res.Error)
	}
	if err := mgr.DestroyStructure(); err != nil {
		return err
	}
	if !destroyKeep {
		if err := a.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete workspace record: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Destroyed workspace %s\n", id)
	return nil
}

func runWorkspaceWatch(cmd *cobra.Command, args []string, a *app) error {
	mgr, err := a.workspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := mgr.CreateStructure(cmd.Context()); err != nil {
		return fmt.Errorf("failed to create workspace structure: %w", err)
	}

	watcher, err := mgr.WatchAgents(watchThreshold)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", mgr.Root())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	return nil
}
