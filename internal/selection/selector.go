// Package selection implements weighted random selection over scored items.
//
// Each candidate's weight is max(score + 1.0, 0.1): a neutral item weighs 1
// and even the most disliked item keeps a small chance of being picked.
// Exactly one uniform draw is consumed per Select call.
package selection

import (
	"errors"

	"github.com/nvandessel/stuckpick/internal/constants"
	"github.com/nvandessel/stuckpick/internal/models"
)

// ErrEmptyInput is returned when Select is called with no candidates.
// Callers should fall back to their "no options" path rather than retry.
var ErrEmptyInput = errors.New("selection: no candidates to choose from")

// Weight returns the selection weight for an item.
func Weight(item *models.Item) float64 {
	return max(item.Score+constants.WeightOffset, constants.MinWeight)
}

// TotalWeight sums Weight over items.
func TotalWeight(items []*models.Item) float64 {
	total := 0.0
	for _, it := range items {
		total += Weight(it)
	}
	return total
}

// Selector picks items proportionally to their weight.
// It holds no state besides the random source.
type Selector struct {
	src Source
}

// New creates a Selector drawing from src. A nil src uses a time-seeded source.
func New(src Source) *Selector {
	if src == nil {
		src = NewSource(0)
	}
	return &Selector{src: src}
}

// Select returns one of candidates, chosen with probability
// Weight(item) / TotalWeight(candidates). Candidates are walked in the order
// given. If rounding leaves the walk unsatisfied the last candidate is
// returned.
func (s *Selector) Select(candidates []*models.Item) (*models.Item, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyInput
	}

	total := TotalWeight(candidates)
	u := s.src.Float64()

	// Only reachable if every weight is non-positive, which MinWeight rules out.
	if total <= 0 {
		idx := int(u * float64(len(candidates)))
		if idx >= len(candidates) {
			idx = len(candidates) - 1
		}
		return candidates[idx], nil
	}

	r := u * total
	cumulative := 0.0
	for _, it := range candidates {
		cumulative += Weight(it)
		if r <= cumulative {
			return it, nil
		}
	}

	return candidates[len(candidates)-1], nil
}

// Probabilities returns the selection probability of each candidate, in order.
// It returns nil for an empty slice.
func Probabilities(candidates []*models.Item) []float64 {
	if len(candidates) == 0 {
		return nil
	}
	total := TotalWeight(candidates)
	out := make([]float64, len(candidates))
	for i, it := range candidates {
		out[i] = Weight(it) / total
	}
	return out
}
