package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/stuckpick/internal/models"
	"github.com/nvandessel/stuckpick/internal/session"
	"github.com/nvandessel/stuckpick/internal/store"
)

func newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List the CSV files in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			files := a.engine.Files()
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{
					"data_dir": a.dataDir,
					"files":    files,
				})
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No CSV files found in %s.\n", a.dataDir)
				return nil
			}
			for i, f := range files {
				fmt.Fprintf(out, "[%d] %s\n", i+1, f)
			}
			return nil
		},
	}
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag with its item count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			type tagCount struct {
				Tag   string `json:"tag"`
				Items int    `json:"items"`
			}
			var tags []tagCount
			for _, t := range a.engine.Tags() {
				tags = append(tags, tagCount{Tag: t, Items: len(a.engine.ItemsFor(session.TagScope(t)))})
			}
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{"tags": tags})
			}
			out := cmd.OutOrStdout()
			if len(tags) == 0 {
				fmt.Fprintln(out, "No tags found.")
				return nil
			}
			rows := make([][]string, 0, len(tags))
			for _, t := range tags {
				rows = append(rows, []string{t.Tag, strconv.Itoa(t.Items)})
			}
			printTable(out, []string{"TAG", "ITEMS"}, rows)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show items with their tags and scores",
		Long: `Show loaded items with their tags and current scores.

Use --file or --tag to limit the listing to one list or one tag. Items are
listed in load order: files by name, then row order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, scoped, err := scopeFromFlags(cmd, false)
			if err != nil {
				return err
			}
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			var items []*models.Item
			if scoped {
				if !a.engine.HasScope(scope) {
					return fmt.Errorf("unknown %s: %s", scope.Kind, scope.Name)
				}
				items = a.engine.ItemsFor(scope)
			} else {
				items = a.engine.Items()
			}

			if jsonFlag(cmd) {
				type itemJSON struct {
					Name  string   `json:"name"`
					Tags  []string `json:"tags"`
					Score float64  `json:"score"`
					File  string   `json:"file"`
				}
				out := make([]itemJSON, 0, len(items))
				for _, it := range items {
					out = append(out, itemJSON{Name: it.Name, Tags: it.Tags, Score: it.Score, File: it.Source.FileID})
				}
				return printJSON(cmd, map[string]interface{}{"items": out, "count": len(out)})
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No items found.")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{it.Name, strings.Join(it.Tags, store.TagSeparator), store.FormatScore(it.Score), it.Source.FileID})
			}
			printTable(out, []string{"NAME", "TAGS", "SCORE", "FILE"}, rows)
			return nil
		},
	}
	addScopeFlags(cmd)
	return cmd
}

func newListsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Create and edit list files",
	}
	cmd.AddCommand(newListsCreateCmd(), newListsAddCmd(), newListsRemoveCmd())
	return cmd
}

func newListsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <file> <name:tags>...",
		Short: "Create a new list file",
		Long: `Create a new CSV list in the data directory.

Each item is given as name:tags, with tags separated by ';'. The file name
must end in .csv and must not exist yet. New items start with score 0.

Examples:
  stuckpick lists create food.csv "Pizza:Food;Italian" "Sushi:Food;Japanese"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]store.Row, 0, len(args)-1)
			for _, arg := range args[1:] {
				name, tags, ok := strings.Cut(arg, ":")
				if !ok {
					return fmt.Errorf("item %q: expected name:tags", arg)
				}
				row, err := store.NewRow(name, tags)
				if err != nil {
					return fmt.Errorf("item %q: %w", arg, err)
				}
				rows = append(rows, row)
			}

			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.CreateList(cmd.Context(), args[0], rows); err != nil {
				return fmt.Errorf("failed to create list: %w", err)
			}
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{"file": args[0], "items": rows})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d item(s).\n", args[0], len(rows))
			return nil
		},
	}
}

func newListsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file> <name> <tags>",
		Short: "Append an item to a list",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := store.NewRow(args[1], args[2])
			if err != nil {
				return err
			}
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.AddItem(cmd.Context(), args[0], row); err != nil {
				return fmt.Errorf("failed to add item: %w", err)
			}
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{"file": args[0], "added": row})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added '%s' to %s.\n", row.Name, args[0])
			return nil
		},
	}
}

func newListsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <file> <index>",
		Short: "Remove an item by its 1-based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil || idx < 1 {
				return fmt.Errorf("invalid index %q: must be a positive number", args[1])
			}
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.engine.RemoveItem(cmd.Context(), args[0], idx-1)
			if err != nil {
				return fmt.Errorf("failed to remove item: %w", err)
			}
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{"file": args[0], "removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed '%s' from %s.\n", removed.Name, args[0])
			return nil
		},
	}
}
