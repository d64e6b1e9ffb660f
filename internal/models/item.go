// Package models defines the data types shared by the picker packages.
package models

import (
	"slices"

	"github.com/nvandessel/stuckpick/internal/constants"
)

// Location identifies where an item came from in the list store.
// FileID is opaque to the scoring packages.
type Location struct {
	FileID string `json:"file" yaml:"file"`
	Row    int    `json:"row" yaml:"row"`
}

// Item is a recommendable entry with a tag set and a mutable preference score.
type Item struct {
	Name  string   `json:"name" yaml:"name"`
	Tags  []string `json:"tags" yaml:"tags"`
	Score float64  `json:"score" yaml:"score"`

	// Source is the row the item was loaded from. Zero value when the
	// item was not loaded from a list file.
	Source Location `json:"source" yaml:"source"`
}

// NewItem builds an item with the given initial score. The score is taken
// as-is; only the feedback paths enforce the floor.
func NewItem(name string, tags []string, score float64) *Item {
	return &Item{
		Name:  name,
		Tags:  slices.Clone(tags),
		Score: score,
	}
}

// Like raises the score by one. There is no upper bound.
func (it *Item) Like() {
	it.Score += constants.PrimaryDelta
}

// Dislike lowers the score by one, never below constants.ScoreFloor.
func (it *Item) Dislike() {
	it.Score = max(it.Score-constants.PrimaryDelta, constants.ScoreFloor)
}

// Nudge adds delta to the score and clamps the result at constants.ScoreFloor.
func (it *Item) Nudge(delta float64) {
	it.Score = max(it.Score+delta, constants.ScoreFloor)
}

// HasTag reports whether the item carries tag (exact match).
func (it *Item) HasTag(tag string) bool {
	return slices.Contains(it.Tags, tag)
}

// SharesTag reports whether the two items have at least one tag in common.
func (it *Item) SharesTag(other *Item) bool {
	for _, t := range other.Tags {
		if it.HasTag(t) {
			return true
		}
	}
	return false
}
