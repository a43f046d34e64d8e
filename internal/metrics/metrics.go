// Package metrics counts what a dependency check run inspected and found.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xab-mack/jvmdeps/internal/model"
)

// Recorder owns a private registry so runs never share counters. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	artifactsInspected prometheus.Counter
	archivesIndexed    prometheus.Counter
	problems           *prometheus.CounterVec
	diagnostics        *prometheus.CounterVec
	computeDuration    prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		artifactsInspected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jvmdeps_artifacts_inspected_total",
			Help: "Class files read and parsed for references",
		}),
		archivesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jvmdeps_archives_indexed_total",
			Help: "Package archives whose entries were listed",
		}),
		problems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jvmdeps_problems_total",
			Help: "Recovered indexing failures by kind",
		}, []string{"kind"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jvmdeps_diagnostics_total",
			Help: "Diagnostics emitted by kind and severity",
		}, []string{"kind", "severity"}),
		computeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jvmdeps_compute_duration_seconds",
			Help:    "Time to build the computed dependency graph",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	r.reg.MustRegister(r.artifactsInspected, r.archivesIndexed, r.problems, r.diagnostics, r.computeDuration)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) ArtifactInspected() {
	if r != nil {
		r.artifactsInspected.Inc()
	}
}

func (r *Recorder) ArchiveIndexed() {
	if r != nil {
		r.archivesIndexed.Inc()
	}
}

func (r *Recorder) Problem(kind model.ProblemKind) {
	if r != nil {
		r.problems.WithLabelValues(string(kind)).Inc()
	}
}

func (r *Recorder) Diagnostic(d model.Diagnostic) {
	if r != nil {
		r.diagnostics.WithLabelValues(string(d.Kind), string(d.Severity)).Inc()
	}
}

func (r *Recorder) ComputeDuration(d time.Duration) {
	if r != nil {
		r.computeDuration.Observe(d.Seconds())
	}
}

// WriteTextfile writes the registry in the Prometheus text format, suitable
// for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
