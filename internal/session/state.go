// Package session tracks what the user has already passed over while picking.
//
// A skip set is kept per scope, where a scope is one list file or one tag.
// Skipped names are left out of the candidate set until the scope is reset,
// so repeated picks walk through the remaining options. Every session has a
// random ID that the feedback history uses to group events.
//
// All public methods are safe for concurrent use.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/stuckpick/internal/models"
)

// Scope names a candidate set.
type Scope struct {
	Kind string `json:"kind"` // "file" or "tag"
	Name string `json:"name"`
}

// FileScope returns the scope of one list file.
func FileScope(name string) Scope { return Scope{Kind: "file", Name: name} }

// TagScope returns the scope of one tag group.
func TagScope(tag string) Scope { return Scope{Kind: "tag", Name: tag} }

// Key is the scope's map key, e.g. "file:food.csv".
func (s Scope) Key() string { return s.Kind + ":" + s.Name }

// State holds the skip sets of one session.
type State struct {
	mu        sync.RWMutex
	id        string
	startedAt time.Time
	skipped   map[string]map[string]bool
	lastPick  map[string]string
}

// NewState starts a session with a fresh ID.
func NewState() *State {
	return &State{
		id:        uuid.NewString(),
		startedAt: time.Now().UTC(),
		skipped:   make(map[string]map[string]bool),
		lastPick:  make(map[string]string),
	}
}

// ID returns the session identifier.
func (s *State) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// StartedAt returns when the session began.
func (s *State) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Skip excludes name from future picks in scope.
func (s *State) Skip(scope Scope, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.skipped[scope.Key()]
	if !ok {
		set = make(map[string]bool)
		s.skipped[scope.Key()] = set
	}
	set[name] = true
}

// IsSkipped reports whether name was skipped in scope.
func (s *State) IsSkipped(scope Scope, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped[scope.Key()][name]
}

// SkippedCount returns how many names are skipped in scope.
func (s *State) SkippedCount(scope Scope) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.skipped[scope.Key()])
}

// Eligible returns the items of a scope that have not been skipped, in the
// order given. An empty result means the scope has no more options.
func (s *State) Eligible(scope Scope, items []*models.Item) []*models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.skipped[scope.Key()]
	out := make([]*models.Item, 0, len(items))
	for _, it := range items {
		if !set[it.Name] {
			out = append(out, it)
		}
	}
	return out
}

// RecordPick remembers the last suggestion made in scope.
func (s *State) RecordPick(scope Scope, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPick[scope.Key()] = name
}

// LastPick returns the last suggestion made in scope.
func (s *State) LastPick(scope Scope) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.lastPick[scope.Key()]
	return name, ok
}

// Reset clears the skip set and last pick of one scope.
func (s *State) Reset(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.skipped, scope.Key())
	delete(s.lastPick, scope.Key())
}

// ResetAll clears every scope. The session ID is kept.
func (s *State) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped = make(map[string]map[string]bool)
	s.lastPick = make(map[string]string)
}
