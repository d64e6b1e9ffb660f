package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/stuckpick/internal/history"
	"github.com/nvandessel/stuckpick/internal/logging"
	"github.com/nvandessel/stuckpick/internal/metrics"
	"github.com/nvandessel/stuckpick/internal/selection"
	"github.com/nvandessel/stuckpick/internal/session"
	"github.com/nvandessel/stuckpick/internal/store"
)

const foodCSV = "name,tags,score\nA,Food;Italian,0\nB,Food,0\n"
const filmsCSV = "C,Movies\nD,Movies;Italian,-0.5\n"

func writeLists(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func readList(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func newTestEngine(t *testing.T, dir string, draws ...float64) (*Engine, *metrics.Recorder) {
	t.Helper()
	if len(draws) == 0 {
		draws = []float64{0}
	}
	rec := metrics.New()
	e, err := New(context.Background(), Options{
		DataDir: dir,
		Source:  selection.NewSequence(draws...),
		Metrics: rec,
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, rec
}

func TestNew_Loads(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV, "films.csv": filmsCSV})
	e, rec := newTestEngine(t, dir)

	assert.Equal(t, []string{"films.csv", "food.csv"}, e.Files())
	assert.Equal(t, []string{"Food", "Italian", "Movies"}, e.Tags())
	assert.Len(t, e.Items(), 4)
	assert.Equal(t, dir, e.DataDir())
	assert.Equal(t, float64(4), rec.Total("stuckpick_items_loaded"))
}

func TestNew_MissingDataDir(t *testing.T) {
	e, _ := newTestEngine(t, filepath.Join(t.TempDir(), "missing"))
	assert.Empty(t, e.Files())
	assert.Empty(t, e.Items())
}

func TestNew_RequiresDataDir(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}

func TestPick(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV, "films.csv": filmsCSV})
	e, rec := newTestEngine(t, dir, 0)

	it, err := e.Pick(session.FileScope("food.csv"))
	require.NoError(t, err)
	assert.Equal(t, "A", it.Name)

	last, ok := e.Session().LastPick(session.FileScope("food.csv"))
	assert.True(t, ok)
	assert.Equal(t, "A", last)

	it, err = e.Pick(session.TagScope("Italian"))
	require.NoError(t, err)
	assert.Equal(t, "D", it.Name, "films.csv loads before food.csv")

	assert.Equal(t, float64(2), rec.Total("stuckpick_picks_total"))
}

func TestPick_SkipsUntilExhausted(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, rec := newTestEngine(t, dir, 0)
	scope := session.FileScope("food.csv")

	e.Skip(scope, "A")
	it, err := e.Pick(scope)
	require.NoError(t, err)
	assert.Equal(t, "B", it.Name)

	e.Skip(scope, "B")
	_, err = e.Pick(scope)
	assert.ErrorIs(t, err, ErrNoOptions)
	assert.Equal(t, float64(1), rec.Total("stuckpick_empty_picks_total"))

	e.Session().Reset(scope)
	_, err = e.Pick(scope)
	assert.NoError(t, err)
}

func TestPick_UnknownScope(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, _ := newTestEngine(t, dir)

	_, err := e.Pick(session.FileScope("nope.csv"))
	assert.ErrorIs(t, err, ErrUnknownScope)
	_, err = e.Pick(session.TagScope("food"))
	assert.ErrorIs(t, err, ErrUnknownScope, "tags are case-sensitive")
	_, err = e.Pick(session.Scope{Kind: "other", Name: "x"})
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestPick_EmptyFile(t *testing.T) {
	dir := writeLists(t, map[string]string{"empty.csv": "name,tags,score\n"})
	e, _ := newTestEngine(t, dir)

	assert.Equal(t, []string{"empty.csv"}, e.Files())
	_, err := e.Pick(session.FileScope("empty.csv"))
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestPick_ReturnsCopy(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, _ := newTestEngine(t, dir, 0)

	it, err := e.Pick(session.FileScope("food.csv"))
	require.NoError(t, err)
	require.Equal(t, "A", it.Name)

	_, err = e.Feedback(context.Background(), session.FileScope("food.csv"), "A", true)
	require.NoError(t, err)

	assert.Equal(t, 0.0, it.Score, "picked item keeps the score it was drawn with")
	live, _ := e.Lookup("A")
	assert.Equal(t, 1.0, live.Score)
}

// Run with -race: picks read scores while feedback writes them.
func TestPick_ConcurrentWithFeedback(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, _ := newTestEngine(t, dir, 0.1, 0.5, 0.9)
	ctx := context.Background()
	scope := session.TagScope("Food")

	const rounds = 200
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := e.Pick(scope); err != nil {
				errs <- err
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := e.Feedback(ctx, scope, "A", i%2 == 0); err != nil {
				errs <- err
			}
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	a, _ := e.Lookup("A")
	b, _ := e.Lookup("B")
	assert.InDelta(t, 0.0, a.Score, 1e-9, "alternating like and dislike from 0 ends at 0")
	assert.InDelta(t, 0.0, b.Score, 1e-9)
}

func TestFeedback_LikePropagatesAndPersists(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV, "films.csv": filmsCSV})
	e, rec := newTestEngine(t, dir)

	res, err := e.Feedback(context.Background(), session.FileScope("food.csv"), "A", true)
	require.NoError(t, err)

	assert.True(t, res.Found)
	require.Len(t, res.Changes, 3)
	assert.Equal(t, logging.ScoreChange{Name: "A", Before: 0, After: 1}, res.Changes[0])
	assert.Equal(t, "D", res.Changes[1].Name, "peers follow load order: films.csv before food.csv")
	assert.InDelta(t, -0.3, res.Changes[1].After, 1e-9)
	assert.Equal(t, logging.ScoreChange{Name: "B", Before: 0, After: 0.2}, res.Changes[2])
	assert.Equal(t, []string{"films.csv", "food.csv"}, res.Files)

	assert.Equal(t, "name,tags,score\nA,Food;Italian,1.0\nB,Food,0.2\n", readList(t, dir, "food.csv"))
	assert.Equal(t, "C,Movies,0.0\nD,Movies;Italian,-0.3\n", readList(t, dir, "films.csv"))

	assert.Equal(t, float64(3), rec.Total("stuckpick_changed_items_total"))
	assert.Equal(t, float64(2), rec.Total("stuckpick_files_persisted_total"))
	assert.True(t, e.RecentlyWrote(filepath.Join(dir, "food.csv")))
	assert.False(t, e.RecentlyWrote("other.csv"))
}

func TestFeedback_DislikeClamps(t *testing.T) {
	dir := writeLists(t, map[string]string{"x.csv": "A,t,-1.0\nB,t,-1.0\n"})
	e, _ := newTestEngine(t, dir)

	res, err := e.Feedback(context.Background(), session.FileScope("x.csv"), "A", false)
	require.NoError(t, err)
	require.Len(t, res.Changes, 2)
	assert.Equal(t, -0.9, res.Changes[0].After)
	assert.Equal(t, -0.9, res.Changes[1].After)
	assert.Equal(t, "A,t,-0.9\nB,t,-0.9\n", readList(t, dir, "x.csv"))
}

func TestFeedback_UnknownItem(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, rec := newTestEngine(t, dir)

	res, err := e.Feedback(context.Background(), session.FileScope("food.csv"), "a", true)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Changes)
	assert.Empty(t, res.Files)
	assert.Equal(t, foodCSV, readList(t, dir, "food.csv"), "file must not be rewritten")
	assert.Equal(t, float64(0), rec.Total("stuckpick_files_persisted_total"))
}

func TestFeedback_PersistFailureKeepsScores(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, rec := newTestEngine(t, dir)

	// A directory where the temp file should go makes the write fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "food.csv.tmp"), 0755))

	res, err := e.Feedback(context.Background(), session.FileScope("food.csv"), "A", true)
	assert.Error(t, err)
	assert.True(t, res.Found)

	it, ok := e.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, 1.0, it.Score)
	assert.Equal(t, float64(1), rec.Total("stuckpick_persist_errors_total"))
}

func TestCategoryFeedback(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, rec := newTestEngine(t, dir)

	res, err := e.CategoryFeedback(context.Background(), "Food", "b", true)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "B", res.Item)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, 1.0, res.Changes[0].After)

	a, _ := e.Lookup("A")
	assert.Equal(t, 0.0, a.Score, "category feedback does not propagate")
	assert.Equal(t, "name,tags,score\nA,Food;Italian,0.0\nB,Food,1.0\n", readList(t, dir, "food.csv"))

	res, err = e.CategoryFeedback(context.Background(), "Italian", "B", true)
	require.NoError(t, err)
	assert.False(t, res.Found, "B is not in the Italian group")

	res, err = e.CategoryFeedback(context.Background(), "food", "A", true)
	require.NoError(t, err)
	assert.False(t, res.Found, "tag lookup stays exact")
	assert.Equal(t, float64(1), rec.Total("stuckpick_changed_items_total"))
}

func TestFeedback_RecordsHistoryAndDecisions(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	stateDir := t.TempDir()
	ctx := context.Background()

	log, err := history.Open(ctx, filepath.Join(stateDir, history.DefaultFile))
	require.NoError(t, err)
	dl := logging.NewDecisionLogger(stateDir, "debug")
	require.NotNil(t, dl)

	sess := session.NewState()
	e, err := New(ctx, Options{DataDir: dir, Session: sess, History: log, Decisions: dl})
	require.NoError(t, err)

	_, err = e.Feedback(ctx, session.TagScope("Food"), "B", false)
	require.NoError(t, err)
	_, err = e.Feedback(ctx, session.TagScope("Food"), "missing", true)
	require.NoError(t, err)

	events, err := log.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, events, 1, "unknown items are not recorded")
	assert.Equal(t, sess.ID(), events[0].SessionID)
	assert.Equal(t, ModeTag, events[0].Mode)
	assert.Equal(t, "Food", events[0].Scope)
	assert.Equal(t, 2, events[0].Changed)
	assert.False(t, events[0].Liked)

	require.NoError(t, e.Close())

	trace := readList(t, stateDir, logging.DecisionsFile)
	assert.Contains(t, trace, `"item":"B"`)
	assert.Contains(t, trace, `"item":"missing"`)
	assert.Contains(t, trace, `"tag":"Food"`)
}

func TestReload(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, rec := newTestEngine(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "more.csv"), []byte("E,New\n"), 0644))
	require.NoError(t, e.Reload(context.Background()))

	assert.Equal(t, []string{"food.csv", "more.csv"}, e.Files())
	_, ok := e.Lookup("E")
	assert.True(t, ok)
	assert.Equal(t, float64(1), rec.Total("stuckpick_reloads_total"))
}

func TestLoadErrors(t *testing.T) {
	dir := writeLists(t, map[string]string{"x.csv": "A,t\nbroken\n"})
	e, rec := newTestEngine(t, dir)

	errs := e.LoadErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Line)
	assert.Equal(t, float64(1), rec.Total("stuckpick_load_errors"))
}

func TestSetScores(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, _ := newTestEngine(t, dir)

	applied, missing, err := e.SetScores(context.Background(), map[string]float64{"A": 3.5, "B": -2, "Z": 1})
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, []string{"Z"}, missing)

	b, _ := e.Lookup("B")
	assert.Equal(t, -2.0, b.Score, "restored scores bypass the floor")
	assert.Equal(t, "name,tags,score\nA,Food;Italian,3.5\nB,Food,-2.0\n", readList(t, dir, "food.csv"))
}

func TestRecentlyWrote_Expires(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, _ := newTestEngine(t, dir)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	e.markWritten([]string{"food.csv"})
	assert.True(t, e.RecentlyWrote("food.csv"))

	now = now.Add(selfWriteWindow)
	assert.False(t, e.RecentlyWrote("food.csv"))
}

func TestHasScope(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, _ := newTestEngine(t, dir)

	assert.True(t, e.HasScope(session.FileScope("food.csv")))
	assert.True(t, e.HasScope(session.TagScope("Italian")))
	assert.False(t, e.HasScope(session.FileScope("FOOD.csv")))
	assert.Len(t, e.ItemsFor(session.TagScope("Food")), 2)
	assert.Len(t, e.ItemsFor(session.FileScope("food.csv")), 2)
}

func TestListManagement_Reloads(t *testing.T) {
	dir := writeLists(t, map[string]string{"food.csv": foodCSV})
	e, _ := newTestEngine(t, dir)
	ctx := context.Background()

	row, err := store.NewRow("Heat", "Movies")
	require.NoError(t, err)
	require.NoError(t, e.CreateList(ctx, "films.csv", []store.Row{row}))
	assert.Equal(t, []string{"films.csv", "food.csv"}, e.Files())
	assert.True(t, e.HasScope(session.TagScope("Movies")))
	assert.True(t, e.RecentlyWrote("films.csv"))

	err = e.CreateList(ctx, "films.csv", []store.Row{row})
	assert.ErrorIs(t, err, store.ErrListExists)

	extra, err := store.NewRow("Alien", "Movies;SciFi")
	require.NoError(t, err)
	require.NoError(t, e.AddItem(ctx, "films.csv", extra))
	_, ok := e.Lookup("Alien")
	assert.True(t, ok)

	removed, err := e.RemoveItem(ctx, "films.csv", 0)
	require.NoError(t, err)
	assert.Equal(t, "Heat", removed.Name)
	_, ok = e.Lookup("Heat")
	assert.False(t, ok)

	lf, err := e.ReadList("food.csv")
	require.NoError(t, err)
	lf.Rows = lf.Rows[:1]
	require.NoError(t, e.SaveList(ctx, lf))
	assert.Len(t, e.ItemsFor(session.FileScope("food.csv")), 1)
	assert.Equal(t, "name,tags,score\nA,Food;Italian,0.0\n", readList(t, dir, "food.csv"))
}
