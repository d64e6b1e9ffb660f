package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvandessel/stuckpick/internal/config"
	"github.com/nvandessel/stuckpick/internal/history"
	"github.com/nvandessel/stuckpick/internal/metrics"
	"github.com/nvandessel/stuckpick/internal/session"
	"github.com/nvandessel/stuckpick/internal/store"
)

const historyTimeFormat = "2006-01-02 15:04"

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded likes and dislikes",
		Long: `Show the feedback history kept in the data directory.

By default the most recent events are listed. Use --item to show one item's
events, or --summary for like and dislike counts per item.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			item, _ := cmd.Flags().GetString("item")
			limit, _ := cmd.Flags().GetInt("limit")
			summary, _ := cmd.Flags().GetBool("summary")

			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			hist, err := openHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer hist.Close()

			out := cmd.OutOrStdout()
			if summary {
				sums, err := hist.Summary(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("failed to read history: %w", err)
				}
				if jsonFlag(cmd) {
					return printJSON(cmd, map[string]interface{}{"items": sums})
				}
				if len(sums) == 0 {
					fmt.Fprintln(out, "No feedback recorded yet.")
					return nil
				}
				printTable(out, []string{"ITEM", "LIKES", "DISLIKES", "LAST"}, summaryRows(sums))
				return nil
			}

			events, err := hist.Recent(cmd.Context(), item, limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{"events": events, "count": len(events)})
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No feedback recorded yet.")
				return nil
			}
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				signal := "dislike"
				if ev.Liked {
					signal = "like"
				}
				rows = append(rows, []string{
					ev.CreatedAt.Local().Format(historyTimeFormat),
					ev.Item,
					signal,
					ev.Mode,
					ev.Scope,
					strconv.Itoa(ev.Changed),
				})
			}
			printTable(out, []string{"TIME", "ITEM", "SIGNAL", "MODE", "SCOPE", "CHANGED"}, rows)
			return nil
		},
	}
	cmd.Flags().String("item", "", "Only show events for this item")
	cmd.Flags().Int("limit", 20, "Maximum number of rows")
	cmd.Flags().Bool("summary", false, "Show counts per item instead of events")
	return cmd
}

func summaryRows(sums []history.ItemSummary) [][]string {
	rows := make([][]string, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, []string{
			s.Item,
			strconv.Itoa(s.Likes),
			strconv.Itoa(s.Dislikes),
			s.Last.Local().Format(historyTimeFormat),
		})
	}
	return rows
}

// fileStats summarises one loaded list.
type fileStats struct {
	File      string  `json:"file"`
	Items     int     `json:"items"`
	MeanScore float64 `json:"mean_score"`
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show list, score and feedback statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			var files []fileStats
			for _, f := range a.engine.Files() {
				items := a.engine.ItemsFor(session.FileScope(f))
				fs := fileStats{File: f, Items: len(items)}
				for _, it := range items {
					fs.MeanScore += it.Score
				}
				if len(items) > 0 {
					fs.MeanScore /= float64(len(items))
				}
				files = append(files, fs)
			}
			loadErrors := a.engine.LoadErrors()
			samples, err := a.metrics.Snapshot()
			if err != nil {
				return fmt.Errorf("failed to gather metrics: %w", err)
			}

			events, top, err := historyStats(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}

			if jsonFlag(cmd) {
				return printJSON(cmd, map[string]interface{}{
					"data_dir":       a.dataDir,
					"files":          files,
					"items":          len(a.engine.Items()),
					"tags":           len(a.engine.Tags()),
					"load_errors":    loadErrors,
					"metrics":        samples,
					"history_events": events,
					"top_items":      top,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Data directory: %s\n", a.dataDir)
			fmt.Fprintf(out, "Items: %d in %d file(s), %d tag(s)\n\n", len(a.engine.Items()), len(files), len(a.engine.Tags()))
			if len(files) > 0 {
				rows := make([][]string, 0, len(files))
				for _, fs := range files {
					rows = append(rows, []string{fs.File, strconv.Itoa(fs.Items), store.FormatScore(roundScore(fs.MeanScore))})
				}
				printTable(out, []string{"FILE", "ITEMS", "MEAN SCORE"}, rows)
				fmt.Fprintln(out)
			}
			if len(loadErrors) > 0 {
				fmt.Fprintf(out, "Skipped rows: %d\n", len(loadErrors))
				for _, le := range loadErrors {
					fmt.Fprintf(out, "  %s:%d: %s\n", le.File, le.Line, le.Error)
				}
				fmt.Fprintln(out)
			}
			printSamples(out, samples)
			if events > 0 {
				fmt.Fprintf(out, "\nFeedback events: %d\n", events)
				printTable(out, []string{"ITEM", "LIKES", "DISLIKES", "LAST"}, summaryRows(top))
			}
			return nil
		},
	}
}

// historyStats counts feedback events and summarises the top items. A
// missing history file yields zero events.
func historyStats(ctx context.Context, cfg *config.StuckpickConfig) (int, []history.ItemSummary, error) {
	if _, err := os.Stat(historyPath(cfg)); err != nil {
		return 0, nil, nil
	}
	hist, err := openHistory(ctx, cfg)
	if err != nil {
		return 0, nil, err
	}
	defer hist.Close()

	events, err := hist.Count(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count feedback events: %w", err)
	}
	top, err := hist.Summary(ctx, 5)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to summarise feedback: %w", err)
	}
	return events, top, nil
}

func printSamples(out io.Writer, samples []metrics.Sample) {
	for _, s := range samples {
		if s.Value == 0 {
			continue
		}
		fmt.Fprintf(out, "%s %s\n", s.Name, strconv.FormatFloat(s.Value, 'f', -1, 64))
	}
}

// roundScore keeps display values to two decimals.
func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
