package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/stuckpick/internal/engine"
	"github.com/nvandessel/stuckpick/internal/session"
	"github.com/nvandessel/stuckpick/internal/store"
)

// addScopeFlags registers the mutually exclusive --file and --tag flags.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().String("file", "", "Limit to one list file")
	cmd.Flags().String("tag", "", "Limit to items carrying this tag")
	cmd.MarkFlagsMutuallyExclusive("file", "tag")
}

// scopeFromFlags reads --file or --tag. With required set, one of them must
// be given.
func scopeFromFlags(cmd *cobra.Command, required bool) (session.Scope, bool, error) {
	file, _ := cmd.Flags().GetString("file")
	tag, _ := cmd.Flags().GetString("tag")
	switch {
	case file != "":
		return session.FileScope(file), true, nil
	case tag != "":
		return session.TagScope(tag), true, nil
	case required:
		return session.Scope{}, false, fmt.Errorf("one of --file or --tag is required")
	default:
		return session.Scope{}, false, nil
	}
}

// likedFromFlags reads --like or --dislike; exactly one must be set.
func likedFromFlags(cmd *cobra.Command) (bool, error) {
	like, _ := cmd.Flags().GetBool("like")
	dislike, _ := cmd.Flags().GetBool("dislike")
	if like == dislike {
		return false, fmt.Errorf("exactly one of --like or --dislike is required")
	}
	return like, nil
}

func addSignalFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("like", false, "Record a like")
	cmd.Flags().Bool("dislike", false, "Record a dislike")
	cmd.MarkFlagsMutuallyExclusive("like", "dislike")
}

func newPickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Suggest an item from a file or tag",
		Long: `Suggest one item, weighted by preference score.

Items skipped with 'stuckpick skip' are left out until --reset is given.
React to the suggestion with 'stuckpick feedback'.

Examples:
  stuckpick pick --file food.csv
  stuckpick pick --tag Italian --reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, _, err := scopeFromFlags(cmd, true)
			if err != nil {
				return err
			}
			reset, _ := cmd.Flags().GetBool("reset")

			a, err := openApp(cmd, appOptions{persistSession: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if reset {
				a.engine.Session().Reset(scope)
			}
			it, err := a.engine.Pick(scope)
			if errors.Is(err, engine.ErrNoOptions) {
				if jsonFlag(cmd) {
					return printJSON(cmd, map[string]interface{}{"found": false, "scope": scope})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No more options available.")
				return nil
			}
			if err != nil {
				return err
			}

			candidates := len(a.engine.Session().Eligible(scope, a.engine.ItemsFor(scope)))
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{
					"found":      true,
					"item":       it.Name,
					"tags":       it.Tags,
					"score":      it.Score,
					"file":       it.Source.FileID,
					"candidates": candidates,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Suggestion: %s (score=%s)\n", it.Name, store.FormatScore(it.Score))
			return nil
		},
	}
	addScopeFlags(cmd)
	cmd.Flags().Bool("reset", false, "Clear skipped items for this scope first")
	return cmd
}

func newSkipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skip [name]",
		Short: "Leave an item out of later picks",
		Long: `Leave an item out of later picks for a file or tag.

Without a name, the last suggestion for the scope is skipped. Use --reset
to clear every skipped item of the scope instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, _, err := scopeFromFlags(cmd, true)
			if err != nil {
				return err
			}
			reset, _ := cmd.Flags().GetBool("reset")

			a, err := openApp(cmd, appOptions{persistSession: true})
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.engine.Session()
			out := cmd.OutOrStdout()
			if reset {
				sess.Reset(scope)
				if jsonFlag(cmd) {
					return printJSON(cmd, map[string]interface{}{"reset": true, "scope": scope})
				}
				fmt.Fprintf(out, "Cleared skipped items for %s.\n", scope.Name)
				return nil
			}

			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				last, ok := sess.LastPick(scope)
				if !ok {
					return fmt.Errorf("nothing to skip: no recent suggestion for %s", scope.Name)
				}
				name = last
			}
			a.engine.Skip(scope, name)
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{
					"skipped": name,
					"scope":   scope,
					"count":   sess.SkippedCount(scope),
				})
			}
			fmt.Fprintf(out, "Skipped '%s'.\n", name)
			return nil
		},
	}
	addScopeFlags(cmd)
	cmd.Flags().Bool("reset", false, "Clear every skipped item of the scope")
	return cmd
}

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <name>",
		Short: "Like or dislike an item",
		Long: `Like or dislike an item by exact name.

A like adds 1 to the item's score and 0.2 to every item sharing a tag with it.
A dislike takes those amounts away, never going below -0.9. Changed lists are
rewritten on disk.

Examples:
  stuckpick feedback Pizza --like
  stuckpick feedback Sushi --dislike --tag Japanese`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			liked, err := likedFromFlags(cmd)
			if err != nil {
				return err
			}
			tag, _ := cmd.Flags().GetString("tag")
			scope := session.Scope{}
			if tag != "" {
				scope = session.TagScope(tag)
			}

			a, err := openApp(cmd, appOptions{persistSession: true, history: true})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Feedback(cmd.Context(), scope, args[0], liked)
			return printResult(cmd, res, err, liked)
		},
	}
	addSignalFlags(cmd)
	cmd.Flags().String("tag", "", "Tag the suggestion came from, for history")
	return cmd
}

func newRateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate <tag> <name>",
		Short: "Like or dislike one item within a tag",
		Long: `Like or dislike one item of a tag without touching its peers.

The name is matched case-insensitively among the items carrying the tag.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			liked, err := likedFromFlags(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(cmd, appOptions{history: true})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.CategoryFeedback(cmd.Context(), args[0], args[1], liked)
			if !res.Found && err == nil {
				return fmt.Errorf("no item named '%s' in %s", args[1], args[0])
			}
			return printResult(cmd, res, err, liked)
		},
	}
	addSignalFlags(cmd)
	return cmd
}

// printResult reports a feedback result. A save error is returned after the
// changes are printed.
func printResult(cmd *cobra.Command, res engine.Result, saveErr error, liked bool) error {
	if jsonFlag(cmd) {
		out := map[string]interface{}{"result": res}
		if saveErr != nil {
			out["error"] = saveErr.Error()
		}
		if err := printJSON(cmd, out); err != nil {
			return err
		}
		return saveErr
	}

	out := cmd.OutOrStdout()
	if !res.Found {
		fmt.Fprintf(out, "No item named '%s'; nothing changed.\n", res.Item)
		return nil
	}
	verb := "Disliked"
	if liked {
		verb = "Liked"
	}
	fmt.Fprintf(out, "%s '%s'.\n", verb, res.Item)
	for _, c := range res.Changes {
		fmt.Fprintf(out, "  %s: %s -> %s\n", c.Name, store.FormatScore(c.Before), store.FormatScore(c.After))
	}
	return saveErr
}
