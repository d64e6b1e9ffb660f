// Package metrics counts picks, feedback and persistence activity with
// Prometheus collectors on a private registry. The interactive session
// summary and the stats command read the values back through Snapshot.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "stuckpick"

// Recorder owns the collectors. A nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	picks          *prometheus.CounterVec
	emptyPicks     *prometheus.CounterVec
	feedback       *prometheus.CounterVec
	changedItems   prometheus.Counter
	filesPersisted prometheus.Counter
	persistErrors  prometheus.Counter
	reloads        prometheus.Counter
	loadErrors     prometheus.Gauge
	itemsLoaded    prometheus.Gauge
}

// New registers a fresh set of collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		picks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "picks_total",
			Help:      "Suggestions made, by scope kind.",
		}, []string{"mode"}),
		emptyPicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_picks_total",
			Help:      "Pick requests that found no eligible option.",
		}, []string{"mode"}),
		feedback: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Feedback calls, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		changedItems: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changed_items_total",
			Help:      "Item scores written by feedback, primary and peers.",
		}),
		filesPersisted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_persisted_total",
			Help:      "List files rewritten after a score change.",
		}),
		persistErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Failed list file rewrites.",
		}),
		reloads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Full reloads of the data directory.",
		}),
		loadErrors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_errors",
			Help:      "Rows skipped or repaired by the last load.",
		}),
		itemsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_loaded",
			Help:      "Items held by the preference store.",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Pick counts a suggestion. found is false when the scope had no options.
func (r *Recorder) Pick(mode string, found bool) {
	if r == nil {
		return
	}
	if found {
		r.picks.WithLabelValues(mode).Inc()
		return
	}
	r.emptyPicks.WithLabelValues(mode).Inc()
}

// Feedback counts one feedback call and the number of items it changed.
// An unknown item is counted with outcome "unknown".
func (r *Recorder) Feedback(mode string, liked bool, changed int) {
	if r == nil {
		return
	}
	outcome := "dislike"
	switch {
	case changed == 0:
		outcome = "unknown"
	case liked:
		outcome = "like"
	}
	r.feedback.WithLabelValues(mode, outcome).Inc()
	r.changedItems.Add(float64(changed))
}

// Persisted counts rewritten files and failed writes.
func (r *Recorder) Persisted(files int, failed bool) {
	if r == nil {
		return
	}
	r.filesPersisted.Add(float64(files))
	if failed {
		r.persistErrors.Inc()
	}
}

// Loaded records the outcome of a (re)load.
func (r *Recorder) Loaded(items, loadErrors int, reload bool) {
	if r == nil {
		return
	}
	r.itemsLoaded.Set(float64(items))
	r.loadErrors.Set(float64(loadErrors))
	if reload {
		r.reloads.Inc()
	}
}

// Sample is one series of a snapshot.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Snapshot gathers every series, sorted by name then labels.
func (r *Recorder) Snapshot() ([]Sample, error) {
	if r == nil {
		return nil, nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := Sample{Name: mf.GetName(), Value: metricValue(mf.GetType(), m)}
			if pairs := m.GetLabel(); len(pairs) > 0 {
				s.Labels = make(map[string]string, len(pairs))
				for _, lp := range pairs {
					s.Labels[lp.GetName()] = lp.GetValue()
				}
			}
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Total sums every series of the named metric, e.g. "stuckpick_picks_total".
func (r *Recorder) Total(name string) float64 {
	return r.Sum(name, nil)
}

// Sum totals the series of name whose labels include every pair in match.
func (r *Recorder) Sum(name string, match map[string]string) float64 {
	samples, err := r.Snapshot()
	if err != nil {
		return 0
	}
	var sum float64
next:
	for _, s := range samples {
		if s.Name != name {
			continue
		}
		for k, v := range match {
			if s.Labels[k] != v {
				continue next
			}
		}
		sum += s.Value
	}
	return sum
}

func metricValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue()
	default:
		return 0
	}
}
