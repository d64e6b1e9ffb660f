package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvandessel/stuckpick/internal/backup"
	"github.com/nvandessel/stuckpick/internal/pathutil"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Save every item's score to a backup file",
		Long: `Save the name, tags and score of every loaded item to a JSON file.

Default location: ~/.stuckpick/backups/stuckpick-backup-YYYYMMDD-HHMMSS.json
Older backups in the same directory are pruned: by default the last 10 are
kept. Explicit paths must be inside ~/.stuckpick/backups or
<data-dir>/backups.

Examples:
  stuckpick backup
  stuckpick backup --output data/backups/before-cleanup.json
  stuckpick backup --keep 5 --max-age 30d
  stuckpick backup list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			policy, err := retentionPolicy(keep, maxAge)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			allowedDirs, err := pathutil.DefaultAllowedBackupDirs(a.dataDir)
			if err != nil {
				return fmt.Errorf("failed to determine allowed backup dirs: %w", err)
			}
			if outputPath == "" {
				dir, err := backup.DefaultBackupDir()
				if err != nil {
					return fmt.Errorf("failed to get backup directory: %w", err)
				}
				outputPath = backup.GenerateBackupPath(dir)
			}

			snap, err := backup.Backup(cmd.Context(), a.engine, a.dataDir, outputPath, allowedDirs...)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			deleted, err := backup.ApplyRetention(filepath.Dir(outputPath), policy)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to apply retention: %v\n", err)
			}

			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{
					"path":    outputPath,
					"items":   len(snap.Items),
					"version": snap.Version,
					"pruned":  deleted,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backup created: %d items\n", len(snap.Items))
			fmt.Fprintf(out, "  Path: %s\n", outputPath)
			if len(deleted) > 0 {
				fmt.Fprintf(out, "  Pruned %d old backup(s)\n", len(deleted))
			}
			return nil
		},
	}

	cmd.Flags().String("output", "", "Output file path (default: auto-generated in ~/.stuckpick/backups/)")
	cmd.Flags().Int("keep", 10, "Number of backups to keep in the output directory (0 keeps all)")
	cmd.Flags().String("max-age", "", "Also prune backups older than this, e.g. 72h, 30d, 2w")
	cmd.AddCommand(newBackupListCmd())
	return cmd
}

// retentionPolicy combines the --keep and --max-age limits.
func retentionPolicy(keep int, maxAge string) (backup.RetentionPolicy, error) {
	var policies []backup.RetentionPolicy
	if keep > 0 {
		policies = append(policies, &backup.CountPolicy{MaxCount: keep})
	}
	if maxAge != "" {
		d, err := backup.ParseAge(maxAge)
		if err != nil {
			return nil, fmt.Errorf("invalid --max-age: %w", err)
		}
		policies = append(policies, &backup.AgePolicy{MaxAge: d})
	}
	if len(policies) == 1 {
		return policies[0], nil
	}
	return &backup.AllPolicy{Policies: policies}, nil
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups in the default backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := backup.DefaultBackupDir()
			if err != nil {
				return fmt.Errorf("failed to get backup directory: %w", err)
			}
			backups, err := backup.ListBackups(dir)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{"dir": dir, "backups": backups})
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintf(out, "No backups in %s.\n", dir)
				return nil
			}
			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				rows = append(rows, []string{
					filepath.Base(b.Path),
					b.CreatedAt.Local().Format(historyTimeFormat),
					strconv.FormatInt(b.Size, 10),
				})
			}
			printTable(out, []string{"FILE", "CREATED", "BYTES"}, rows)
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore item scores from a backup file",
		Long: `Set the score of every item named in a backup file and rewrite the
affected lists. Items are matched by exact name; names that are no longer
in any list are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			allowedDirs, err := pathutil.DefaultAllowedBackupDirs(a.dataDir)
			if err != nil {
				return fmt.Errorf("failed to determine allowed backup dirs: %w", err)
			}
			res, err := backup.Restore(cmd.Context(), a.engine, args[0], allowedDirs...)
			if err != nil && res == nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonFlag(cmd) {
				if perr := printJSON(cmd, res); perr != nil {
					return perr
				}
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Restored %d item score(s).\n", res.Restored)
			if len(res.Missing) > 0 {
				fmt.Fprintf(out, "Not found (%d):\n", len(res.Missing))
				for _, name := range res.Missing {
					fmt.Fprintf(out, "  %s\n", name)
				}
			}
			return err
		},
	}
}
