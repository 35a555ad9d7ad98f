// Package workspace manages the on-disk contents of an agent workspace:
// seed files, agent definitions (AGENT_<slug>.md) with their MEMORY and
// HEARTBEAT sub-files, and the generated AGENTS.md summary.
//
// Files are classified by name only. Every write is followed by a
// best-effort snapshot through a Snapshotter; snapshot failures are
// logged and emitted as events but never fail the write.
//
// Example usage:
//
//	manager, err := workspace.NewManager(workspace.Config{
//		Root:        workspace.RootFor(cfg.WorkspacesDir, ws.ID),
//		Snapshotter: workspace.NewGitSnapshotter("git"),
//	})
//	if err != nil {
//		log.Fatal().Err(err).Msg("Failed to create workspace manager")
//	}
//
//	if err := manager.CreateStructure(ctx); err != nil {
//		log.Fatal().Err(err).Msg("Failed to create workspace")
//	}
//
//	name, err := manager.CreateAgentFile("Billing Helper")
//	// name == "AGENT_billing_helper.md"
package workspace
