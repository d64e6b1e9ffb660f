// Package store reads and writes the CSV lists in the data directory.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/stuckpick/internal/models"
	"github.com/nvandessel/stuckpick/internal/preference"
)

// ErrNoDataDir is returned when the data directory does not exist.
var ErrNoDataDir = errors.New("data directory not found")

// maxParallelParse bounds how many list files are parsed at once.
const maxParallelParse = 4

// ListStore keeps every *.csv file of a data directory in memory and writes
// files back whole when item scores change.
// Thread-safe for concurrent access.
type ListStore struct {
	mu    sync.RWMutex
	dir   string
	files map[string]*ListFile

	// LoadErrors tracks rows skipped or repaired during the last Load.
	LoadErrors []LoadError
}

// LoadError represents a problem found while reading a list file.
type LoadError struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
	Error   string `json:"error"`
}

func newLoadError(file string, line int, content, msg string) LoadError {
	return LoadError{File: file, Line: line, Content: truncateForError(content), Error: msg}
}

// NewListStore creates a ListStore over dir. Nothing is read until Load.
func NewListStore(dir string) *ListStore {
	return &ListStore{
		dir:   dir,
		files: make(map[string]*ListFile),
	}
}

// Dir returns the data directory.
func (s *ListStore) Dir() string {
	return s.dir
}

// Load scans the data directory (non-recursively) for files ending in .csv,
// any case, parses them and returns one record per item row in file name
// order, then row order. Previously loaded files are discarded. A file that
// cannot be read is skipped and reported in LoadErrors.
func (s *ListStore) Load(ctx context.Context) ([]preference.Record, error) {
	names, err := s.scan()
	if err != nil {
		s.mu.Lock()
		s.files = make(map[string]*ListFile)
		s.LoadErrors = nil
		s.mu.Unlock()
		return nil, err
	}

	type parsed struct {
		file *ListFile
		errs []LoadError
	}
	results := make([]parsed, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelParse)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lf, errs, err := s.readFile(name)
			if err != nil {
				errs = append(errs, newLoadError(name, 0, "", err.Error()))
			}
			results[i] = parsed{file: lf, errs: errs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading lists: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[string]*ListFile, len(names))
	s.LoadErrors = make([]LoadError, 0)
	var records []preference.Record
	for _, res := range results {
		s.LoadErrors = append(s.LoadErrors, res.errs...)
		if res.file == nil {
			continue
		}
		s.files[res.file.Name] = res.file
		for i, row := range res.file.Rows {
			records = append(records, preference.Record{
				Name:   row.Name,
				Tags:   row.TagList(),
				Score:  row.ScoreValue(),
				Source: models.Location{FileID: res.file.Name, Row: i},
			})
		}
	}
	return records, nil
}

// scan lists the candidate file names in sorted order.
func (s *ListStore) scan() ([]string, error) {
	info, err := os.Stat(s.dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoDataDir, s.dir)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsListName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// IsListName reports whether name looks like a list file.
func IsListName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}

func (s *ListStore) readFile(name string) (*ListFile, []LoadError, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ParseList(name, f)
}

// Files returns the names of the loaded list files in sorted order.
func (s *ListStore) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for name := range s.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Rows returns a copy of the rows of a loaded list.
func (s *ListStore) Rows(name string) ([]Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lf, ok := s.files[name]
	if !ok {
		return nil, false
	}
	return append([]Row(nil), lf.Rows...), true
}

// Persist writes the current score of every changed item into its row and
// rewrites each affected file in full. Items without a known source are
// ignored. It returns the names of the files written, sorted. Write failures
// for individual files are joined into the returned error; the other files
// are still written.
func (s *ListStore) Persist(changed []*models.Item) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]bool)
	for _, it := range changed {
		lf, ok := s.files[it.Source.FileID]
		if !ok || it.Source.Row < 0 || it.Source.Row >= len(lf.Rows) {
			continue
		}
		lf.Rows[it.Source.Row].Score = FormatScore(it.Score)
		touched[lf.Name] = true
	}

	names := make([]string, 0, len(touched))
	for name := range touched {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	written := make([]string, 0, len(names))
	for _, name := range names {
		if err := s.writeFile(s.files[name]); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", name, err))
			continue
		}
		written = append(written, name)
	}
	return written, errors.Join(errs...)
}

// writeFile replaces the file on disk atomically via a temp file and rename.
func (s *ListStore) writeFile(lf *ListFile) error {
	path := filepath.Join(s.dir, lf.Name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WriteList(f, lf); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// truncateForError truncates a string for error reporting to avoid huge messages.
func truncateForError(s string) string {
	const maxLen = 100
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
