package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/stuckpick/internal/models"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func readTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

func TestListStore_Load(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "b.csv", "name,tags,score\nPizza,Food;Italian,1.0\n")
	writeTestFile(t, dir, "A.CSV", "Pasta,Italian\n")
	writeTestFile(t, dir, "notes.txt", "ignored,tag,1\n")
	if err := os.Mkdir(filepath.Join(dir, "nested.csv"), 0755); err != nil {
		t.Fatal(err)
	}

	s := NewListStore(dir)
	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	files := s.Files()
	if len(files) != 2 || files[0] != "A.CSV" || files[1] != "b.csv" {
		t.Errorf("Files() = %v, want [A.CSV b.csv]", files)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Name != "Pasta" || records[0].Source != (models.Location{FileID: "A.CSV", Row: 0}) {
		t.Errorf("records[0] = %+v", records[0])
	}
	if records[1].Name != "Pizza" || records[1].Score != 1.0 || len(records[1].Tags) != 2 {
		t.Errorf("records[1] = %+v", records[1])
	}
	if len(s.LoadErrors) != 0 {
		t.Errorf("LoadErrors = %v, want none", s.LoadErrors)
	}
}

func TestListStore_LoadMissingDir(t *testing.T) {
	s := NewListStore(filepath.Join(t.TempDir(), "missing"))
	_, err := s.Load(context.Background())
	if !errors.Is(err, ErrNoDataDir) {
		t.Fatalf("Load() error = %v, want ErrNoDataDir", err)
	}
	if len(s.Files()) != 0 {
		t.Error("Files() should be empty after a failed load")
	}
}

func TestListStore_LoadRecordsBadRows(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "x.csv", "Good,t,1\n,t,1\nNoTags\n")

	s := NewListStore(dir)
	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len(records) = %d, want 1", len(records))
	}
	if len(s.LoadErrors) != 2 {
		t.Errorf("len(LoadErrors) = %d, want 2", len(s.LoadErrors))
	}
}

func TestListStore_LoadCancelled(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "x.csv", "A,t\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewListStore(dir).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestListStore_Persist(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "food.csv", "Name,Tags\nPizza,Food;Italian\nBurger,Food,2\n")
	writeTestFile(t, dir, "films.csv", "Alien,Horror,0.5\n")

	s := NewListStore(dir)
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	changed := []*models.Item{
		{Name: "Burger", Score: 2.2, Source: models.Location{FileID: "food.csv", Row: 1}},
		{Name: "Ghost", Score: 9, Source: models.Location{FileID: "gone.csv", Row: 0}},
	}
	written, err := s.Persist(changed)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if len(written) != 1 || written[0] != "food.csv" {
		t.Errorf("Persist() wrote %v, want [food.csv]", written)
	}

	want := "Name,Tags,score\nPizza,Food;Italian,0.0\nBurger,Food,2.2\n"
	if got := readTestFile(t, dir, "food.csv"); got != want {
		t.Errorf("food.csv = %q, want %q", got, want)
	}
	if got := readTestFile(t, dir, "films.csv"); got != "Alien,Horror,0.5\n" {
		t.Errorf("films.csv was rewritten: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "food.csv.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestListStore_PersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "x.csv", "A,t,0.1\n")

	s := NewListStore(dir)
	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	item := models.NewItem(records[0].Name, records[0].Tags, records[0].Score)
	item.Source = records[0].Source
	item.Nudge(0.2)
	if _, err := s.Persist([]*models.Item{item}); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewListStore(dir).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if reloaded[0].Score != item.Score {
		t.Errorf("reloaded score = %v, want %v", reloaded[0].Score, item.Score)
	}
}

func TestListStore_Rows(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "x.csv", "A,t\nB,t\n")

	s := NewListStore(dir)
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	rows, ok := s.Rows("x.csv")
	if !ok || len(rows) != 2 {
		t.Fatalf("Rows() = %v, %v", rows, ok)
	}
	rows[0].Name = "mutated"
	again, _ := s.Rows("x.csv")
	if again[0].Name != "A" {
		t.Error("Rows() should return a copy")
	}
	if _, ok := s.Rows("missing.csv"); ok {
		t.Error("Rows() found a list that was never loaded")
	}
}

func TestTruncateForError(t *testing.T) {
	long := strings.Repeat("x", 150)
	if got := truncateForError(long); len(got) != 103 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateForError() = %q", got)
	}
	if got := truncateForError("short"); got != "short" {
		t.Errorf("truncateForError(short) = %q", got)
	}
}
