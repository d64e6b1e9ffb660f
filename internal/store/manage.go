package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/stuckpick/internal/pathutil"
	"github.com/nvandessel/stuckpick/internal/sanitize"
)

var (
	// ErrInvalidListName is returned for names that are not plain *.csv file names.
	ErrInvalidListName = errors.New("list name must be a plain file name ending in .csv")

	// ErrListExists is returned when creating a list whose file already exists.
	ErrListExists = errors.New("list already exists")

	// ErrUnknownList is returned when editing a list that does not exist.
	ErrUnknownList = errors.New("list not found")

	// ErrNoItems is returned when creating a list without any items.
	ErrNoItems = errors.New("list needs at least one item")

	// ErrInvalidItem is returned for an item with a blank name or no tags.
	ErrInvalidItem = errors.New("item needs a name and at least one tag")

	// ErrRowOutOfRange is returned when removing a row that does not exist.
	ErrRowOutOfRange = errors.New("row index out of range")
)

// NewRow builds a fresh row with score 0 from user input. The name and tags
// are cleaned so the row survives a write and reload unchanged.
func NewRow(name, tags string) (Row, error) {
	cleanName := sanitize.ItemName(name)
	cleanTags := sanitize.Tags(SplitTags(tags))
	if cleanName == "" || len(cleanTags) == 0 {
		return Row{}, ErrInvalidItem
	}
	return Row{Name: cleanName, Tags: strings.Join(cleanTags, TagSeparator), Score: "0"}, nil
}

// listPath validates name and returns its path inside the data directory.
func (s *ListStore) listPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !IsListName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidListName, name)
	}
	path := filepath.Join(s.dir, name)
	if err := pathutil.ValidatePath(path, []string{s.dir}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidListName, err)
	}
	return path, nil
}

// CreateList writes a new list with a name,tags,score header. The data
// directory is created if needed. Call Load afterwards to pick it up.
func (s *ListStore) CreateList(name string, rows []Row) error {
	path, err := s.listPath(name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNoItems
	}
	for _, r := range rows {
		if strings.TrimSpace(r.Name) == "" || len(SplitTags(r.Tags)) == 0 {
			return ErrInvalidItem
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrListExists, name)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(&ListFile{
		Name:      name,
		HasHeader: true,
		Header:    DefaultHeader,
		Rows:      rows,
	})
}

// ReadList parses a list straight from disk, ignoring the loaded copy.
func (s *ListStore) ReadList(name string) (*ListFile, error) {
	if _, err := s.listPath(name); err != nil {
		return nil, err
	}
	lf, _, err := s.readFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownList, name)
		}
		return nil, err
	}
	return lf, nil
}

// AddItem appends a row to an existing list on disk.
func (s *ListStore) AddItem(name string, row Row) error {
	lf, err := s.ReadList(name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(row.Name) == "" || len(SplitTags(row.Tags)) == 0 {
		return ErrInvalidItem
	}
	lf.Rows = append(lf.Rows, row)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(lf)
}

// RemoveItem deletes the row at index (0-based) from a list on disk and
// returns it.
func (s *ListStore) RemoveItem(name string, index int) (Row, error) {
	lf, err := s.ReadList(name)
	if err != nil {
		return Row{}, err
	}
	if index < 0 || index >= len(lf.Rows) {
		return Row{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, index+1)
	}
	removed := lf.Rows[index]
	lf.Rows = append(lf.Rows[:index], lf.Rows[index+1:]...)

	s.mu.Lock()
	defer s.mu.Unlock()
	return removed, s.writeFile(lf)
}

// SaveList replaces a list on disk with lf. The list must already exist.
// A list without a header gets the default one.
func (s *ListStore) SaveList(lf *ListFile) error {
	path, err := s.listPath(lf.Name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownList, lf.Name)
	}
	if !lf.HasHeader {
		lf.HasHeader = true
		lf.Header = DefaultHeader
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(lf)
}
