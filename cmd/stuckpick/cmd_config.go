package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/stuckpick/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage stuckpick configuration",
		Long: `View and modify stuckpick configuration settings.

Configuration is stored in ~/.stuckpick/config.yaml. STUCKPICK_* environment
variables and the --data-dir and --log-level flags override the file.

Examples:
  stuckpick config list
  stuckpick config get data_dir
  stuckpick config set data_dir ~/lists
  stuckpick config set watch.debounce 500ms`,
	}
	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)
	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if jsonFlag(cmd) {
				return printJSON(cmd, cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration (%s):\n\n", path)
			rows := make([][]string, 0, len(config.Keys()))
			for _, key := range config.Keys() {
				v, _ := cfg.Get(key)
				rows = append(rows, []string{key, valueOrDefault(fmt.Sprint(v), "(not set)")})
			}
			printTable(out, []string{"KEY", "VALUE"}, rows)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			v, ok := cfg.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown config key: %s (valid keys: %v)", args[0], config.Keys())
			}
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{"key": args[0], "value": v})
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			// Start from the file alone so environment overrides are not
			// written back.
			cfg := config.Default()
			if _, err := os.Stat(path); err == nil {
				fileCfg, err := config.LoadFromFile(path)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = fileCfg
			}

			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			v, _ := cfg.Get(args[0])
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{"key": args[0], "value": v, "path": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", args[0], v)
			return nil
		},
	}
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
