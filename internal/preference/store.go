// Package preference owns the loaded items and applies like/dislike feedback.
//
// A Store holds every item exactly once in load order. The name, tag and file
// indices point at the same *models.Item values, so a score written through
// any path is visible through all of them.
//
// Two feedback modes exist and are deliberately separate operations:
//   - ApplyFeedback looks the item up store-wide by exact name and propagates
//     a smaller delta to every item sharing a tag with it.
//   - ApplyCategoryFeedback looks the item up inside one tag group, ignoring
//     case, and changes that single item only.
//
// All methods are safe for concurrent use; feedback calls are serialised.
package preference

import (
	"sort"
	"sync"

	"github.com/nvandessel/stuckpick/internal/constants"
	"github.com/nvandessel/stuckpick/internal/models"
)

// Record is one loaded row as supplied by the list store.
type Record struct {
	Name   string
	Tags   []string
	Score  float64
	Source models.Location
}

// Store is the in-memory preference model.
type Store struct {
	mu sync.RWMutex

	items  []*models.Item
	byName map[string]*models.Item
	byTag  map[string]*TagGroup
	byFile map[string][]*models.Item
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.items = nil
	s.byName = make(map[string]*models.Item)
	s.byTag = make(map[string]*TagGroup)
	s.byFile = make(map[string][]*models.Item)
}

// Load adds records to the store and indexes them. Records without tags are
// skipped. A later record whose name matches an earlier one replaces it in the
// name index; both stay in the flat collection and in their groups.
// It returns the number of items added.
func (s *Store) Load(records []Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(records)
}

// Reload clears every item and index, then loads records.
func (s *Store) Reload(records []Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return s.load(records)
}

func (s *Store) load(records []Record) int {
	added := 0
	for _, rec := range records {
		if len(rec.Tags) == 0 {
			continue
		}
		it := models.NewItem(rec.Name, rec.Tags, rec.Score)
		it.Source = rec.Source

		s.items = append(s.items, it)
		s.byName[it.Name] = it
		if rec.Source.FileID != "" {
			s.byFile[rec.Source.FileID] = append(s.byFile[rec.Source.FileID], it)
		}
		for _, tag := range uniqueTags(it.Tags) {
			g, ok := s.byTag[tag]
			if !ok {
				g = &TagGroup{Tag: tag}
				s.byTag[tag] = g
			}
			g.Members = append(g.Members, it)
		}
		added++
	}
	return added
}

// uniqueTags drops repeated tags so an item joins each group once.
func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Len returns the number of items in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns every item in load order.
func (s *Store) Items() []*models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Item(nil), s.items...)
}

// Lookup finds an item by exact, case-sensitive name.
func (s *Store) Lookup(name string) (*models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.byName[name]
	return it, ok
}

// LookupInCategory finds an item inside the tag group for tag, comparing
// names case-insensitively.
func (s *Store) LookupInCategory(tag, name string) (*models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.byTag[tag]
	if !ok {
		return nil, false
	}
	return g.Find(name)
}

// Tags returns every tag in sorted order.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byTag))
	for t := range s.byTag {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Group returns the tag group for tag.
func (s *Store) Group(tag string) (*TagGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.byTag[tag]
	return g, ok
}

// ItemsForTag returns the members of the tag group, or nil if the tag is unknown.
func (s *Store) ItemsForTag(tag string) []*models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.byTag[tag]
	if !ok {
		return nil
	}
	return append([]*models.Item(nil), g.Members...)
}

// Files returns every file id in sorted order.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byFile))
	for f := range s.byFile {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ItemsForFile returns the items loaded from file in row order, or nil.
func (s *Store) ItemsForFile(file string) []*models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Item(nil), s.byFile[file]...)
}

// ApplyFeedback records a like or dislike for the item named primaryName
// (exact match) and propagates to its tag-sharing peers.
//
// The primary item gets Like or Dislike. Every item with a different name
// sharing at least one tag is nudged by +/-constants.PeerDelta and clamped at
// constants.ScoreFloor. The returned slice holds the primary item first, then
// every peer that was written, in load order, whether or not the clamp left
// its value unchanged. An unknown name changes nothing and returns nil.
func (s *Store) ApplyFeedback(primaryName string, liked bool) []*models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	primary, ok := s.byName[primaryName]
	if !ok {
		return nil
	}

	if liked {
		primary.Like()
	} else {
		primary.Dislike()
	}

	delta := constants.PeerDelta
	if !liked {
		delta = -delta
	}

	changed := []*models.Item{primary}
	for _, other := range s.items {
		if other.Name == primary.Name || !other.SharesTag(primary) {
			continue
		}
		other.Nudge(delta)
		changed = append(changed, other)
	}
	return changed
}

// ApplyCategoryFeedback records a like or dislike for a single item found in
// the tag group for tag by case-insensitive name. No other item changes.
// It returns the item and true, or nil and false if tag or name is unknown.
func (s *Store) ApplyCategoryFeedback(tag, itemName string, liked bool) (*models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.byTag[tag]
	if !ok {
		return nil, false
	}
	it, ok := g.Find(itemName)
	if !ok {
		return nil, false
	}
	if liked {
		it.Like()
	} else {
		it.Dislike()
	}
	return it, true
}

// SetScore overwrites the score of the item named name (exact match).
// It is used when restoring a backup and bypasses the floor like a load does.
func (s *Store) SetScore(name string, score float64) (*models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	it.Score = score
	return it, true
}

// Snapshot returns a copy of every item, safe to read after the lock is released.
func (s *Store) Snapshot() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
		out[i].Tags = append([]string(nil), it.Tags...)
	}
	return out
}
