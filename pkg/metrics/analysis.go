package metrics

import "time"

// Analysis bundles the metrics the connection analyzer emits. One instance
// is shared between the worker loop and the ops endpoint.
type Analysis struct {
	registry *Registry

	Warnings *Counter
	TooLarge *Counter
	Duration *Histogram

	completed func(outcome string) *Counter
}

// NewAnalysis registers the analyzer metric set on a fresh registry.
func NewAnalysis() *Analysis {
	r := New()
	return &Analysis{
		registry: r,
		Warnings: r.Counter("carbonlens_data_quality_warnings_total", "Degraded-data warnings emitted by analyses"),
		TooLarge: r.Counter("carbonlens_graphs_too_large_total", "Analyses refused because the graph exceeded the node limit"),
		Duration: r.Histogram("carbonlens_analysis_duration_seconds", "End-to-end analysis time", nil),
		completed: func(outcome string) *Counter {
			return r.Counter(WithLabels("carbonlens_analyses_total", "outcome", outcome),
				"Completed analyses by outcome")
		},
	}
}

// Completed counts one finished analysis with the given outcome
// ("ok", "error", "too_large", "not_found").
func (a *Analysis) Completed(outcome string) {
	a.completed(outcome).Inc()
}

// Observe records one analysis run: its duration, outcome and warning count.
func (a *Analysis) Observe(start time.Time, outcome string, warnings int) {
	a.Duration.Since(start)
	a.Completed(outcome)
	if warnings > 0 {
		a.Warnings.Add(int64(warnings))
	}
}

// Registry exposes the underlying registry for the ops endpoint.
func (a *Analysis) Registry() *Registry { return a.registry }
