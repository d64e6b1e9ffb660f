package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/stuckpick/internal/config"
	"github.com/nvandessel/stuckpick/internal/engine"
	"github.com/nvandessel/stuckpick/internal/history"
	"github.com/nvandessel/stuckpick/internal/logging"
	"github.com/nvandessel/stuckpick/internal/metrics"
	"github.com/nvandessel/stuckpick/internal/selection"
	"github.com/nvandessel/stuckpick/internal/session"
	"github.com/nvandessel/stuckpick/internal/watch"
)

// stateDirName is the per-data-directory folder for history, the decision
// trace, saved skip sets and the MCP audit log.
const stateDirName = ".stuckpick"

// app bundles what a command needs: configuration, logger and engine.
type app struct {
	cfg      *config.StuckpickConfig
	dataDir  string
	stateDir string
	logger   *slog.Logger
	metrics  *metrics.Recorder
	engine   *engine.Engine

	persistSession bool
}

type appOptions struct {
	// history opens the feedback log when enabled in config.
	history bool

	// persistSession loads skip sets from disk and saves them on Close, so
	// separate pick and skip invocations share them.
	persistSession bool
}

// loadConfig reads --config (or the default file), then applies the
// --data-dir and --log-level flags.
func loadConfig(cmd *cobra.Command) (*config.StuckpickConfig, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

func stateDir(dataDir string) string {
	return filepath.Join(dataDir, stateDirName)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// openApp loads config and builds the engine.
func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a := &app{
		cfg:            cfg,
		dataDir:        cfg.DataDir,
		stateDir:       stateDir(cfg.DataDir),
		logger:         logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		metrics:        metrics.New(),
		persistSession: opts.persistSession,
	}
	haveData := dirExists(a.dataDir)

	// Nothing is written under a data directory that does not exist.
	var hist *history.Log
	if opts.history && cfg.History.Enabled && haveData {
		hist, err = history.Open(ctx, historyPath(cfg))
		if err != nil {
			a.logger.Warn("feedback history disabled", "error", err)
			hist = nil
		}
	}

	sess := session.NewState()
	if opts.persistSession && haveData {
		sess, err = session.LoadState(a.stateDir)
		if err != nil {
			a.logger.Warn("ignoring saved session", "error", err)
			sess = session.NewState()
		}
	}

	var decisions *logging.DecisionLogger
	if haveData {
		decisions = logging.NewDecisionLogger(a.stateDir, cfg.Logging.Level)
	}

	a.engine, err = engine.New(ctx, engine.Options{
		DataDir:   a.dataDir,
		Source:    selection.NewSource(cfg.Selection.Seed),
		Session:   sess,
		History:   hist,
		Metrics:   a.metrics,
		Decisions: decisions,
		Logger:    a.logger,
	})
	if err != nil {
		if hist != nil {
			hist.Close()
		}
		decisions.Close()
		return nil, err
	}
	return a, nil
}

// historyPath returns the configured feedback log path.
func historyPath(cfg *config.StuckpickConfig) string {
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	return filepath.Join(stateDir(cfg.DataDir), history.DefaultFile)
}

// openHistory opens an existing feedback log for the query commands.
func openHistory(ctx context.Context, cfg *config.StuckpickConfig) (*history.Log, error) {
	path := historyPath(cfg)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no feedback history at %s", path)
	}
	return history.Open(ctx, path)
}

// watchLists reloads the engine when list files change on disk, until ctx
// is done. It is a no-op when watching is disabled or the data directory
// is missing.
func (a *app) watchLists(ctx context.Context) {
	if !a.cfg.Watch.Enabled || !dirExists(a.dataDir) {
		return
	}
	w, err := watch.New(watch.Config{
		Dir:      a.dataDir,
		Debounce: a.cfg.Watch.Debounce,
		OnChange: a.engine.Reload,
		Ignore:   a.engine.RecentlyWrote,
		Logger:   a.logger,
	})
	if err != nil {
		a.logger.Warn("list watching disabled", "error", err)
		return
	}
	go func() {
		defer w.Close()
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("list watcher stopped", "error", err)
		}
	}()
}

// Close saves the session when requested and releases the engine.
func (a *app) Close() error {
	if a.persistSession && dirExists(a.dataDir) {
		err := os.MkdirAll(a.stateDir, 0700)
		if err == nil {
			err = session.SaveState(a.engine.Session(), a.stateDir)
		}
		if err != nil {
			a.logger.Warn("saving session failed", "error", err)
		}
	}
	return a.engine.Close()
}

// signalContext returns a context cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
