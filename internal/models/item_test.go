package models

import (
	"testing"
)

func TestNewItem_CopiesTags(t *testing.T) {
	tags := []string{"Food", "Italian"}
	it := NewItem("Pizza", tags, 0.5)
	tags[0] = "Changed"

	if it.Tags[0] != "Food" {
		t.Errorf("Tags[0] = %q, want %q", it.Tags[0], "Food")
	}
	if it.Score != 0.5 {
		t.Errorf("Score = %v, want 0.5", it.Score)
	}
}

func TestNewItem_KeepsScoreBelowFloor(t *testing.T) {
	it := NewItem("Old", []string{"x"}, -3.0)
	if it.Score != -3.0 {
		t.Errorf("Score = %v, want -3.0 (load-time scores are not clamped)", it.Score)
	}
}

func TestItem_LikeHasNoUpperBound(t *testing.T) {
	it := NewItem("A", []string{"x"}, 0.0)
	for i := 0; i < 100; i++ {
		it.Like()
	}
	if it.Score != 100.0 {
		t.Errorf("Score after 100 likes = %v, want 100.0", it.Score)
	}
}

func TestItem_DislikeFloor(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		times int
		want  float64
	}{
		{"single from zero", 0.0, 1, -0.9},
		{"from two", 2.0, 1, 1.0},
		{"repeated", 3.0, 50, -0.9},
		{"already below floor", -5.0, 1, -0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewItem("A", []string{"x"}, tt.start)
			for i := 0; i < tt.times; i++ {
				it.Dislike()
				if it.Score < -0.9 {
					t.Fatalf("Score = %v dropped below -0.9", it.Score)
				}
			}
			if it.Score != tt.want {
				t.Errorf("Score = %v, want %v", it.Score, tt.want)
			}
		})
	}
}

func TestItem_Nudge(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		delta float64
		want  float64
	}{
		{"up", 0.0, 0.2, 0.2},
		{"down", 0.0, -0.2, -0.2},
		{"clamped down", -0.8, -0.2, -0.9},
		{"below floor pulled up on dislike", -1.0, -0.2, -0.9},
		{"below floor pulled up on like", -2.0, 0.2, -0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewItem("A", []string{"x"}, tt.start)
			it.Nudge(tt.delta)
			if it.Score != tt.want {
				t.Errorf("Nudge(%v) from %v = %v, want %v", tt.delta, tt.start, it.Score, tt.want)
			}
		})
	}
}

func TestItem_SharesTag(t *testing.T) {
	a := NewItem("A", []string{"Food", "Italian"}, 0)
	b := NewItem("B", []string{"Food"}, 0)
	c := NewItem("C", []string{"Drink"}, 0)
	d := NewItem("D", []string{"food"}, 0)

	if !a.SharesTag(b) || !b.SharesTag(a) {
		t.Error("A and B should share the Food tag")
	}
	if a.SharesTag(c) {
		t.Error("A and C should not share a tag")
	}
	if a.SharesTag(d) {
		t.Error("tag matching is case-sensitive; A and D should not share a tag")
	}
}
