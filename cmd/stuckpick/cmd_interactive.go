package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nvandessel/stuckpick/internal/interactive"
)

// runMenu starts the interactive file menu on stdin and stdout.
func runMenu(cmd *cobra.Command) error {
	return runInteractive(cmd, func(s *interactive.Session) error {
		return s.Run(cmd.Context())
	})
}

func newBrowseTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse-tag <tag>",
		Short: "Browse and rate the items of one tag interactively",
		Long: `Browse the items of one tag with their scores.

Type an item name to like or dislike just that item, 'pick' for a
suggestion from the tag, or 'back' to leave. Ratings here do not
propagate to other items.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, func(s *interactive.Session) error {
				return s.BrowseTag(cmd.Context(), args[0])
			})
		},
	}
}

// runInteractive opens the app with history, watches the data directory
// for outside edits and hands a Session to run. Interrupts cancel the
// command context.
func runInteractive(cmd *cobra.Command, run func(*interactive.Session) error) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	cmd.SetContext(ctx)

	a, err := openApp(cmd, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.Close()
	a.watchLists(ctx)

	s := interactive.New(a.engine, cmd.InOrStdin(), cmd.OutOrStdout(), interactive.Options{
		Metrics: a.metrics,
		Logger:  a.logger,
	})
	if err := run(s); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
