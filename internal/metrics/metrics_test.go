package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// getCounterValue extracts the value from a Prometheus counter
func getCounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func TestPick(t *testing.T) {
	r := New()
	r.Pick("file", true)
	r.Pick("file", true)
	r.Pick("tag", false)

	if got := getCounterValue(r.picks.WithLabelValues("file")); got != 2 {
		t.Errorf("picks{file} = %v, want 2", got)
	}
	if got := getCounterValue(r.emptyPicks.WithLabelValues("tag")); got != 1 {
		t.Errorf("empty_picks{tag} = %v, want 1", got)
	}
	if got := r.Total("stuckpick_picks_total"); got != 2 {
		t.Errorf("Total(picks) = %v, want 2", got)
	}
}

func TestFeedback(t *testing.T) {
	r := New()
	r.Feedback("file", true, 3)
	r.Feedback("file", false, 2)
	r.Feedback("category", true, 1)
	r.Feedback("file", true, 0)

	tests := []struct {
		mode, outcome string
		want          float64
	}{
		{"file", "like", 1},
		{"file", "dislike", 1},
		{"file", "unknown", 1},
		{"category", "like", 1},
	}
	for _, tt := range tests {
		if got := getCounterValue(r.feedback.WithLabelValues(tt.mode, tt.outcome)); got != tt.want {
			t.Errorf("feedback{%s,%s} = %v, want %v", tt.mode, tt.outcome, got, tt.want)
		}
	}
	if got := getCounterValue(r.changedItems); got != 6 {
		t.Errorf("changed_items = %v, want 6", got)
	}
}

func TestPersistedAndLoaded(t *testing.T) {
	r := New()
	r.Persisted(2, false)
	r.Persisted(1, true)
	r.Loaded(10, 2, false)
	r.Loaded(12, 0, true)

	if got := getCounterValue(r.filesPersisted); got != 3 {
		t.Errorf("files_persisted = %v, want 3", got)
	}
	if got := getCounterValue(r.persistErrors); got != 1 {
		t.Errorf("persist_errors = %v, want 1", got)
	}
	if got := getCounterValue(r.reloads); got != 1 {
		t.Errorf("reloads = %v, want 1", got)
	}
	if got := r.Total("stuckpick_items_loaded"); got != 12 {
		t.Errorf("items_loaded = %v, want 12", got)
	}
	if got := r.Total("stuckpick_load_errors"); got != 0 {
		t.Errorf("load_errors = %v, want 0", got)
	}
}

func TestSnapshot(t *testing.T) {
	r := New()
	r.Pick("tag", true)
	r.Loaded(4, 1, false)

	samples, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	var sawPick, sawItems bool
	for i, s := range samples {
		if i > 0 && samples[i-1].Name > s.Name {
			t.Errorf("samples not sorted: %q before %q", samples[i-1].Name, s.Name)
		}
		switch s.Name {
		case "stuckpick_picks_total":
			sawPick = true
			if s.Labels["mode"] != "tag" || s.Value != 1 {
				t.Errorf("picks sample = %+v", s)
			}
		case "stuckpick_items_loaded":
			sawItems = true
			if s.Value != 4 {
				t.Errorf("items_loaded = %v, want 4", s.Value)
			}
		}
	}
	if !sawPick || !sawItems {
		t.Errorf("Snapshot() missing series: %+v", samples)
	}
}

func TestRecorders_AreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Pick("file", true)
	if got := b.Total("stuckpick_picks_total"); got != 0 {
		t.Errorf("second recorder saw %v picks", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Pick("file", true)
	r.Feedback("file", true, 1)
	r.Persisted(1, false)
	r.Loaded(1, 0, true)
	if r.Registry() != nil {
		t.Error("nil recorder should have no registry")
	}
	if samples, err := r.Snapshot(); err != nil || samples != nil {
		t.Errorf("Snapshot() = %v, %v", samples, err)
	}
	if r.Total("x") != 0 {
		t.Error("Total() on nil recorder should be 0")
	}
}

func TestSum_FiltersLabels(t *testing.T) {
	r := New()
	r.Feedback("file", true, 3)
	r.Feedback("tag", true, 1)
	r.Feedback("file", false, 2)

	if got := r.Sum("stuckpick_feedback_total", map[string]string{"outcome": "like"}); got != 2 {
		t.Errorf("likes = %v, want 2", got)
	}
	if got := r.Sum("stuckpick_feedback_total", map[string]string{"mode": "file", "outcome": "dislike"}); got != 1 {
		t.Errorf("file dislikes = %v, want 1", got)
	}
	if got := r.Sum("stuckpick_feedback_total", map[string]string{"outcome": "unknown"}); got != 0 {
		t.Errorf("unknown = %v, want 0", got)
	}
}
