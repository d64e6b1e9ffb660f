package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// stateFile is the default session state filename.
const stateFile = "session-state.json"

// persistedState is the on-disk representation of session state. It lets
// separate CLI invocations share one skip set.
type persistedState struct {
	ID        string              `json:"id"`
	StartedAt time.Time           `json:"started_at"`
	Skipped   map[string][]string `json:"skipped"`
	LastPick  map[string]string   `json:"last_pick,omitempty"`
}

// SaveState persists the session state to a JSON file in the given directory.
// The directory must already exist.
func SaveState(s *State, dir string) error {
	s.mu.RLock()
	ps := persistedState{
		ID:        s.id,
		StartedAt: s.startedAt,
		Skipped:   make(map[string][]string, len(s.skipped)),
		LastPick:  make(map[string]string, len(s.lastPick)),
	}
	for key, set := range s.skipped {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		ps.Skipped[key] = names
	}
	for key, name := range s.lastPick {
		ps.LastPick[key] = name
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	path := filepath.Join(dir, stateFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing session state temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming session state file: %w", err)
	}
	return nil
}

// LoadState reads session state from a JSON file in the given directory.
// If the file does not exist, it returns a new State.
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("unmarshaling session state: %w", err)
	}

	s := NewState()
	if ps.ID != "" {
		s.id = ps.ID
	}
	if !ps.StartedAt.IsZero() {
		s.startedAt = ps.StartedAt
	}
	for key, names := range ps.Skipped {
		set := make(map[string]bool, len(names))
		for _, name := range names {
			set[name] = true
		}
		s.skipped[key] = set
	}
	for key, name := range ps.LastPick {
		s.lastPick[key] = name
	}
	return s, nil
}

// StateFilePath returns the expected path for the session state file in the given directory.
func StateFilePath(dir string) string {
	return filepath.Join(dir, stateFile)
}

// RemoveState removes the session state file from the given directory.
// It is not an error if the file does not exist.
func RemoveState(dir string) error {
	if err := os.Remove(filepath.Join(dir, stateFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session state: %w", err)
	}
	return nil
}
