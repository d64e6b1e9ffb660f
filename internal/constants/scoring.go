// Package constants holds the preference scoring parameters.
package constants

// Preference scoring constants.
const (
	// PrimaryDelta is applied to the item the user reacted to.
	PrimaryDelta = 1.0

	// PeerDelta is applied to every other item sharing at least one tag
	// with the primary item.
	PeerDelta = 0.2

	// ScoreFloor is the lowest score any feedback path may write.
	// With WeightOffset = 1.0 this keeps (score + offset) positive.
	ScoreFloor = -0.9

	// WeightOffset shifts the score so a neutral item has weight 1.
	WeightOffset = 1.0

	// MinWeight is the weight floor; no item ever has zero probability.
	MinWeight = 0.1
)
