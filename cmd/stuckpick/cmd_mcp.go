package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/stuckpick/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the picker over the Model Context Protocol on stdio",
		Long: `Run an MCP server on stdin/stdout so an assistant can list the lists,
ask for suggestions and pass on likes and dislikes.

Tools: stuckpick_lists, stuckpick_pick, stuckpick_feedback, stuckpick_rate,
stuckpick_backup, stuckpick_restore. Resource: stuckpick://scores.

Logs go to stderr. Tool calls are recorded in <data-dir>/.stuckpick/audit.jsonl.
The data directory is watched and reloaded when lists change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{history: true})
			if err != nil {
				return err
			}

			var auditDir string
			if dirExists(a.dataDir) {
				auditDir = a.stateDir
			}
			srv, err := mcp.NewServer(&mcp.Config{
				Name:     "stuckpick",
				Version:  version,
				Engine:   a.engine,
				StateDir: auditDir,
				Logger:   a.logger,
			})
			if err != nil {
				a.Close()
				return fmt.Errorf("failed to start MCP server: %w", err)
			}
			// The server owns the engine from here on.
			defer srv.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			a.watchLists(ctx)

			a.logger.Info("mcp server starting", "data_dir", a.dataDir, "files", len(a.engine.Files()))
			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}
