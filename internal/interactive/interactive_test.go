package interactive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/stuckpick/internal/engine"
	"github.com/nvandessel/stuckpick/internal/metrics"
	"github.com/nvandessel/stuckpick/internal/selection"
)

const (
	foodCSV  = "name,tags,score\nA,Food;Italian,0\nB,Food,0\n"
	filmsCSV = "C,Movies\nD,Movies;Italian,-0.5\n"
)

type harness struct {
	dir string
	eng *engine.Engine
	rec *metrics.Recorder
	out *bytes.Buffer
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	rec := metrics.New()
	eng, err := engine.New(context.Background(), engine.Options{
		DataDir: dir,
		Source:  selection.NewSequence(0),
		Metrics: rec,
	})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return &harness{dir: dir, eng: eng, rec: rec, out: &bytes.Buffer{}}
}

func (h *harness) session(input ...string) *Session {
	plain := PlainStyles()
	return New(h.eng, strings.NewReader(strings.Join(input, "\n")+"\n"), h.out, Options{
		Styles:  &plain,
		Metrics: h.rec,
	})
}

func (h *harness) run(t *testing.T, input ...string) string {
	t.Helper()
	require.NoError(t, h.session(input...).Run(context.Background()))
	return h.out.String()
}

func (h *harness) file(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.dir, name))
	require.NoError(t, err)
	return string(data)
}

func defaultLists() map[string]string {
	return map[string]string{"food.csv": foodCSV, "films.csv": filmsCSV}
}

func TestRun_MenuAndExit(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "7", "nope.csv", "exit")

	assert.Contains(t, out, "=== Stuck-Picker App ===")
	assert.Contains(t, out, "  [1] films.csv\n  [2] food.csv\n")
	assert.Equal(t, 2, strings.Count(out, "→ Invalid selection. Please enter a number or filename."))
	assert.Contains(t, out, "Goodbye!")
}

func TestRun_EndOfInputExitsCleanly(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "2")

	assert.Contains(t, out, "Suggested: A")
	assert.NotContains(t, out, "Goodbye!")
}

func TestRun_LikeAndAccept(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "food.csv", "y", "accept", "exit")

	assert.Contains(t, out, "You selected file: food.csv")
	assert.Contains(t, out, "Suggested: A")
	assert.Contains(t, out, "You liked it. Accept or skip?")
	assert.Contains(t, out, "Great! Enjoy: A")
	assert.Equal(t, "name,tags,score\nA,Food;Italian,1.0\nB,Food,0.2\n", h.file(t, "food.csv"))
	assert.Equal(t, "C,Movies,0.0\nD,Movies;Italian,-0.3\n", h.file(t, "films.csv"))
	assert.Contains(t, out, "Session: 1 suggestions, 1 liked, 0 disliked.")
}

func TestRun_SkipUntilExhausted(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "2", "s", "s", "exit")

	assert.Contains(t, out, "Skipping 'A'. Picking another...")
	assert.Contains(t, out, "Suggested: B")
	assert.Contains(t, out, "Skipping 'B'. Picking another...")
	assert.Contains(t, out, "No more options available in this file.")
}

func TestRun_SkipsResetOnReentry(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "2", "s", "back", "2", "back", "exit")

	assert.Equal(t, 2, strings.Count(out, "Suggested: A"), "A is offered again after leaving the file")
}

func TestRun_DislikeKeepsPicking(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "2", "n", "back", "exit")

	assert.Contains(t, out, "Marked 'A' as disliked. Picking another...")
	a, ok := h.eng.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, -0.9, a.Score)
	// A stays eligible; with weight 0.1 it still wins a zero draw.
	assert.Equal(t, 2, strings.Count(out, "Suggested: A"))
}

func TestRun_LikeThenSkip(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "2", "y", "skip", "y", "maybe", "back", "exit")

	assert.Contains(t, out, "Skipping 'A' after liking. Picking another...")
	assert.Contains(t, out, "Suggested: B")
	assert.Contains(t, out, "→ Please type 'accept', 'skip', or 'back'.")
}

func TestRun_InvalidFeedback(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "2", "maybe", "back", "exit")

	assert.Contains(t, out, "→ Please type 'y', 'n', 's', or 'back'.")
	assert.Equal(t, "name,tags,score\nA,Food;Italian,0\nB,Food,0\n", h.file(t, "food.csv"), "no write without feedback")
}

func TestRun_EmptyFile(t *testing.T) {
	h := newHarness(t, map[string]string{"empty.csv": "name,tags,score\n"})
	out := h.run(t, "1", "exit")

	assert.Contains(t, out, "→ No items in this file.")
}

func TestPickTag(t *testing.T) {
	h := newHarness(t, defaultLists())
	s := h.session("n", "back")
	require.NoError(t, s.PickTag(context.Background(), "Italian"))

	out := h.out.String()
	assert.Contains(t, out, "You selected tag: Italian")
	assert.Contains(t, out, "Suggested: D")
	d, _ := h.eng.Lookup("D")
	assert.Equal(t, -0.9, d.Score)
}

func TestChooseFile(t *testing.T) {
	files := []string{"films.csv", "food.csv"}
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1", "films.csv", true},
		{"2", "food.csv", true},
		{"0", "", false},
		{"3", "", false},
		{"food.csv", "food.csv", true},
		{"FOOD.csv", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := chooseFile(files, tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	h := newHarness(t, defaultLists())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.session("exit").Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummary_NoPicks(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "exit")
	assert.NotContains(t, out, "Session:")
}
