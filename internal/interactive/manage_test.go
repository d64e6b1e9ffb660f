package interactive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManage_CreateList(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "manage", "1", "new.csv", "Heat", "Movies; Crime", "Alien", "", "", "3", "3", "back", "exit")

	assert.Contains(t, out, "=== Manage Lists ===")
	assert.Contains(t, out, "→ Must enter at least one tag. Skipping item.")
	assert.Contains(t, out, "Created new.csv with 1 items.")
	assert.Equal(t, "name,tags,score\nHeat,Movies;Crime,0\n", h.file(t, "new.csv"))
	// The engine reloaded, so new.csv is listed and pickable.
	assert.Contains(t, out, "  [3] new.csv")
	assert.Contains(t, out, "You selected file: new.csv")
	assert.Contains(t, out, "Suggested: Heat")
}

func TestManage_CreateListRejected(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"not csv", []string{"list.txt"}, "→ Filename must end with .csv. Aborting."},
		{"exists", []string{"food.csv"}, "→ File already exists. Aborting."},
		{"no items", []string{"x.csv", ""}, "→ No items entered. Aborting file creation."},
		{"path", []string{"../x.csv", "A", "t", ""}, "→ Invalid filename. Aborting."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, defaultLists())
			input := append([]string{"manage", "1"}, tt.input...)
			input = append(input, "3", "exit")
			out := h.run(t, input...)
			assert.Contains(t, out, tt.want)
			_, err := os.Stat(filepath.Join(h.dir, "x.csv"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestManage_EditList(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t,
		"manage", "2", "2",
		"3",
		"1", "C", "Food",
		"2", "1",
		"1", "", // blank name
		"9",
		"4",
		"3", "exit",
	)

	assert.Contains(t, out, "Editing: food.csv")
	assert.Contains(t, out, "Current items:\n  - A (tags=Food;Italian, score=0.0)\n  - B (tags=Food, score=0.0)\n")
	assert.Contains(t, out, "Added: C")
	assert.Contains(t, out, "  [1] A (tags=Food;Italian, score=0.0)")
	assert.Contains(t, out, "Removed: A")
	assert.Contains(t, out, "→ Name cannot be blank.")
	assert.Contains(t, out, "→ Please enter 1, 2, 3, or 4.")
	assert.Contains(t, out, "Saved changes to food.csv")
	assert.Equal(t, "name,tags,score\nB,Food,0.0\nC,Food,0\n", h.file(t, "food.csv"))

	_, ok := h.eng.Lookup("A")
	assert.False(t, ok, "engine reloaded after save")
	_, ok = h.eng.Lookup("C")
	assert.True(t, ok)
}

func TestManage_EditCancelledKeepsFile(t *testing.T) {
	h := newHarness(t, defaultLists())
	out := h.run(t, "manage", "2", "x", "2", "5", "2", "", "9", "3", "exit")

	assert.Contains(t, out, "→ Invalid input. Aborting edit.")
	assert.Contains(t, out, "→ Index out of range. Aborting edit.")
	assert.Contains(t, out, "→ Invalid option. Enter 1, 2, or 3.")
	assert.Equal(t, foodCSV, h.file(t, "food.csv"))
}

func TestManage_EditEmptyList(t *testing.T) {
	h := newHarness(t, map[string]string{"empty.csv": "name,tags,score\n"})
	out := h.run(t, "manage", "2", "1", "2", "3", "4", "3", "exit")

	assert.Contains(t, out, "→ No items to remove.")
	assert.Contains(t, out, "→ No items in this list.")
	assert.Equal(t, "name,tags,score\n", h.file(t, "empty.csv"))
}

func TestManage_NoFiles(t *testing.T) {
	h := newHarness(t, nil)
	out := h.run(t, "manage", "2", "3", "exit")
	assert.Contains(t, out, "→ No CSV files found to edit.")
}
