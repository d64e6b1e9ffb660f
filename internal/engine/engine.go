// Package engine ties the preference store to the list files on disk.
//
// An Engine loads every list from the data directory, answers pick requests
// for a file or a tag through the weighted selector, applies feedback and
// writes the changed scores back. Picks, feedback, persistence and reloads
// are serialised by one mutex so the MCP server and the file watcher can share
// an Engine with an interactive session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/nvandessel/stuckpick/internal/history"
	"github.com/nvandessel/stuckpick/internal/logging"
	"github.com/nvandessel/stuckpick/internal/metrics"
	"github.com/nvandessel/stuckpick/internal/models"
	"github.com/nvandessel/stuckpick/internal/preference"
	"github.com/nvandessel/stuckpick/internal/selection"
	"github.com/nvandessel/stuckpick/internal/session"
	"github.com/nvandessel/stuckpick/internal/store"
)

// Feedback modes as recorded in history, metrics and the decision trace.
const (
	ModeFile     = "file"
	ModeTag      = "tag"
	ModeCategory = "category"
)

// selfWriteWindow is how long after a write the engine reports a file as
// recently written, so watchers can ignore their own echo.
const selfWriteWindow = 2 * time.Second

var (
	// ErrNoOptions is returned by Pick when every item in scope was skipped
	// or the scope is empty.
	ErrNoOptions = errors.New("no more options available")

	// ErrUnknownScope is returned by Pick for a file or tag that is not loaded.
	ErrUnknownScope = errors.New("unknown file or tag")
)

// Options configures New. Only DataDir is required.
type Options struct {
	DataDir string

	// Source drives selection. Defaults to a time-seeded source.
	Source selection.Source

	// Session holds the skip sets. Defaults to a fresh session.
	Session *session.State

	// History, Metrics and Decisions are optional sinks.
	History   *history.Log
	Metrics   *metrics.Recorder
	Decisions *logging.DecisionLogger

	Logger *slog.Logger
}

// Engine is the application facade. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	prefs   *preference.Store
	lists   *store.ListStore
	sel     *selection.Selector
	session *session.State

	history   *history.Log
	metrics   *metrics.Recorder
	decisions *logging.DecisionLogger
	logger    *slog.Logger

	writesMu sync.Mutex
	writes   map[string]time.Time
	now      func() time.Time
}

// New builds an Engine and loads the data directory. A missing data
// directory is logged and leaves the engine empty; lists created later are
// picked up by Reload.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("engine: data directory not set")
	}
	src := opts.Source
	if src == nil {
		src = selection.NewSource(0)
	}
	sess := opts.Session
	if sess == nil {
		sess = session.NewState()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	e := &Engine{
		prefs:     preference.NewStore(),
		lists:     store.NewListStore(opts.DataDir),
		sel:       selection.New(src),
		session:   sess,
		history:   opts.History,
		metrics:   opts.Metrics,
		decisions: opts.Decisions,
		logger:    logger,
		writes:    make(map[string]time.Time),
		now:       time.Now,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx, false); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload clears every item and re-reads the data directory.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.load(ctx, true)
}

func (e *Engine) load(ctx context.Context, reload bool) error {
	records, err := e.lists.Load(ctx)
	if err != nil && !errors.Is(err, store.ErrNoDataDir) {
		return fmt.Errorf("loading lists: %w", err)
	}
	if err != nil {
		e.logger.Warn("data directory not found", "dir", e.lists.Dir())
	} else if len(e.lists.Files()) == 0 {
		e.logger.Info("no list files found", "dir", e.lists.Dir())
	}

	n := e.prefs.Reload(records)
	for _, le := range e.lists.LoadErrors {
		e.logger.Warn("skipped list row", "file", le.File, "line", le.Line, "error", le.Error)
	}
	e.metrics.Loaded(n, len(e.lists.LoadErrors), reload)
	e.logger.Debug("lists loaded", "files", len(e.lists.Files()), "items", n, "reload", reload)
	return nil
}

// DataDir returns the directory the lists are read from.
func (e *Engine) DataDir() string {
	return e.lists.Dir()
}

// Session returns the skip-set state.
func (e *Engine) Session() *session.State {
	return e.session
}

// Files returns the loaded list file names in sorted order, including lists
// without any usable rows.
func (e *Engine) Files() []string {
	return e.lists.Files()
}

// Tags returns every tag in sorted order.
func (e *Engine) Tags() []string {
	return e.prefs.Tags()
}

// Items returns every item in load order.
func (e *Engine) Items() []*models.Item {
	return e.prefs.Items()
}

// ItemsFor returns the items of a scope in load order.
func (e *Engine) ItemsFor(scope session.Scope) []*models.Item {
	if scope.Kind == "tag" {
		return e.prefs.ItemsForTag(scope.Name)
	}
	return e.prefs.ItemsForFile(scope.Name)
}

// Lookup finds an item by exact name.
func (e *Engine) Lookup(name string) (*models.Item, bool) {
	return e.prefs.Lookup(name)
}

// LoadErrors returns the rows skipped or repaired by the last load.
func (e *Engine) LoadErrors() []store.LoadError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]store.LoadError(nil), e.lists.LoadErrors...)
}

// Snapshot returns a copy of every item.
func (e *Engine) Snapshot() []models.Item {
	return e.prefs.Snapshot()
}

// HasScope reports whether the file or tag is loaded.
func (e *Engine) HasScope(scope session.Scope) bool {
	switch scope.Kind {
	case "file":
		for _, f := range e.lists.Files() {
			if f == scope.Name {
				return true
			}
		}
		return false
	case "tag":
		_, ok := e.prefs.Group(scope.Name)
		return ok
	default:
		return false
	}
}

// Pick suggests one item of scope that has not been skipped this session.
// The returned item is a copy; later feedback does not change it.
func (e *Engine) Pick(scope session.Scope) (*models.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.HasScope(scope) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, scope.Key())
	}

	eligible := e.session.Eligible(scope, e.ItemsFor(scope))
	it, err := e.sel.Select(eligible)
	if errors.Is(err, selection.ErrEmptyInput) {
		e.metrics.Pick(scope.Kind, false)
		return nil, ErrNoOptions
	}
	if err != nil {
		return nil, err
	}

	picked := *it
	picked.Tags = slices.Clone(it.Tags)

	e.session.RecordPick(scope, picked.Name)
	e.metrics.Pick(scope.Kind, true)
	e.logger.Debug("picked", "scope", scope.Key(), "item", picked.Name, "score", picked.Score, "candidates", len(eligible))
	return &picked, nil
}

// Skip leaves name out of future picks in scope for this session.
func (e *Engine) Skip(scope session.Scope, name string) {
	e.session.Skip(scope, name)
}

// Result describes what a feedback call changed.
type Result struct {
	Item    string                `json:"item"`
	Found   bool                  `json:"found"`
	Liked   bool                  `json:"liked"`
	Changes []logging.ScoreChange `json:"changes"`
	Files   []string              `json:"files,omitempty"`
}

// Feedback applies a like or dislike to the item named name (exact match)
// and to every item sharing a tag with it, then rewrites the affected list
// files. An unknown name returns a Result with Found false and no error.
// A persistence error is returned alongside the Result; in-memory scores
// keep their new values.
func (e *Engine) Feedback(ctx context.Context, scope session.Scope, name string, liked bool) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.scores()
	changed := e.prefs.ApplyFeedback(name, liked)
	mode := ModeFile
	if scope.Kind == "tag" {
		mode = ModeTag
	}
	return e.settle(ctx, mode, scope, name, liked, changed, before)
}

// CategoryFeedback applies a like or dislike to the single item of tag's
// group whose name matches ignoring case. Nothing else changes.
func (e *Engine) CategoryFeedback(ctx context.Context, tag, name string, liked bool) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.scores()
	var changed []*models.Item
	if it, ok := e.prefs.ApplyCategoryFeedback(tag, name, liked); ok {
		changed = []*models.Item{it}
		name = it.Name
	}
	return e.settle(ctx, ModeCategory, session.TagScope(tag), name, liked, changed, before)
}

// scores captures every score by item identity. Callers hold e.mu, and all
// score writes go through e.mu, so the values cannot move underneath.
func (e *Engine) scores() map[*models.Item]float64 {
	items := e.prefs.Items()
	out := make(map[*models.Item]float64, len(items))
	for _, it := range items {
		out[it] = it.Score
	}
	return out
}

// settle persists changed items and reports to every sink.
func (e *Engine) settle(ctx context.Context, mode string, scope session.Scope, name string, liked bool, changed []*models.Item, before map[*models.Item]float64) (Result, error) {
	res := Result{Item: name, Found: len(changed) > 0, Liked: liked}
	for _, it := range changed {
		res.Changes = append(res.Changes, logging.ScoreChange{Name: it.Name, Before: before[it], After: it.Score})
	}

	var persistErr error
	if res.Found {
		res.Files, persistErr = e.lists.Persist(changed)
		e.markWritten(res.Files)
		e.metrics.Persisted(len(res.Files), persistErr != nil)
		if persistErr != nil {
			e.logger.Error("saving scores failed", "error", persistErr)
			persistErr = fmt.Errorf("saving scores: %w", persistErr)
		}
	}
	e.metrics.Feedback(mode, liked, len(changed))

	for _, c := range res.Changes {
		e.logger.Log(ctx, logging.LevelTrace, "score changed", "item", c.Name, "before", c.Before, "after", c.After)
	}
	if res.Found {
		e.logger.Debug("feedback applied", "mode", mode, "item", name, "liked", liked, "changed", len(changed), "files", len(res.Files))
	} else {
		e.logger.Debug("feedback for unknown item ignored", "mode", mode, "item", name)
	}

	d := logging.Decision{
		Session: e.session.ID(),
		Mode:    mode,
		Item:    name,
		Liked:   liked,
		Changes: res.Changes,
		Files:   res.Files,
	}
	if mode != ModeFile {
		d.Tag = scope.Name
	}
	if persistErr != nil {
		d.Error = persistErr.Error()
	}
	e.decisions.Log(d)

	if res.Found && e.history != nil {
		_, err := e.history.Record(ctx, history.Event{
			SessionID: e.session.ID(),
			Mode:      mode,
			Scope:     scope.Name,
			Item:      name,
			Liked:     liked,
			Changed:   len(changed),
		})
		if err != nil {
			e.logger.Warn("recording history failed", "error", err)
		}
	}
	return res, persistErr
}

// SetScores overwrites the score of every named item (exact match) and
// writes the affected files. Names that are not loaded are returned in
// missing, sorted. Scores are taken as given, without the feedback floor.
func (e *Engine) SetScores(ctx context.Context, scores map[string]float64) (applied int, missing []string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var changed []*models.Item
	for name, score := range scores {
		it, ok := e.prefs.SetScore(name, score)
		if !ok {
			missing = append(missing, name)
			continue
		}
		changed = append(changed, it)
	}
	sort.Strings(missing)
	if len(changed) == 0 {
		return 0, missing, nil
	}

	files, err := e.lists.Persist(changed)
	e.markWritten(files)
	e.metrics.Persisted(len(files), err != nil)
	if err != nil {
		return len(changed), missing, fmt.Errorf("saving scores: %w", err)
	}
	e.logger.Debug("scores set", "items", len(changed), "files", len(files))
	return len(changed), missing, nil
}

// CreateList writes a new list file and reloads.
func (e *Engine) CreateList(ctx context.Context, name string, rows []store.Row) error {
	return e.editList(ctx, name, func() error {
		return e.lists.CreateList(name, rows)
	})
}

// ReadList reads a list straight from disk for editing.
func (e *Engine) ReadList(name string) (*store.ListFile, error) {
	return e.lists.ReadList(name)
}

// AddItem appends a row to a list file and reloads.
func (e *Engine) AddItem(ctx context.Context, name string, row store.Row) error {
	return e.editList(ctx, name, func() error {
		return e.lists.AddItem(name, row)
	})
}

// RemoveItem deletes the row at index (0-based) from a list file and reloads.
func (e *Engine) RemoveItem(ctx context.Context, name string, index int) (store.Row, error) {
	var removed store.Row
	err := e.editList(ctx, name, func() error {
		var err error
		removed, err = e.lists.RemoveItem(name, index)
		return err
	})
	return removed, err
}

// SaveList replaces a list file with an edited copy and reloads.
func (e *Engine) SaveList(ctx context.Context, lf *store.ListFile) error {
	return e.editList(ctx, lf.Name, func() error {
		return e.lists.SaveList(lf)
	})
}

// editList runs one list change under the engine lock, then reloads so
// pick and feedback see the new rows.
func (e *Engine) editList(ctx context.Context, name string, change func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := change(); err != nil {
		return err
	}
	e.markWritten([]string{name})
	e.logger.Info("list changed", "file", name)
	return e.load(ctx, true)
}

// markWritten remembers when the engine last wrote each file.
func (e *Engine) markWritten(files []string) {
	e.writesMu.Lock()
	defer e.writesMu.Unlock()
	now := e.now()
	for _, f := range files {
		e.writes[f] = now
	}
}

// RecentlyWrote reports whether the engine itself wrote the named file
// (base name) within the last couple of seconds.
func (e *Engine) RecentlyWrote(name string) bool {
	e.writesMu.Lock()
	defer e.writesMu.Unlock()
	at, ok := e.writes[filepath.Base(name)]
	return ok && e.now().Sub(at) < selfWriteWindow
}

// Close releases the history database and the decision trace.
func (e *Engine) Close() error {
	e.decisions.Close()
	if e.history != nil {
		return e.history.Close()
	}
	return nil
}
