// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records pipeline counters and stage latencies in a
// private Prometheus registry. A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/research-agent/pkg/types"
)

const namespace = "research"

// Stage outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder owns one registry and the collectors registered in it.
type Recorder struct {
	reg *prometheus.Registry

	runs           *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	parseFallbacks *prometheus.CounterVec
	claims         *prometheus.CounterVec
	searchRequests *prometheus.CounterVec
}

// New returns a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,

		// Labels: status (complete, error)
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Research runs by terminal status",
		}, []string{"status"}),

		// Labels: stage, outcome (ok, error)
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"stage", "outcome"}),

		// Labels: stage (plan, extract, compile)
		parseFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_fallbacks_total",
			Help:      "Malformed model outputs replaced by a degraded fallback",
		}, []string{"stage"}),

		// Labels: status (confirmed, mixed, insufficient)
		claims: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Verified claims by status",
		}, []string{"status"}),

		// Labels: provider, outcome (ok, error)
		searchRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search gateway calls by provider and outcome",
		}, []string{"provider", "outcome"}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// RunFinished counts a run that reached a terminal status.
func (r *Recorder) RunFinished(status types.Status) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(string(status)).Inc()
}

// StageObserved records one stage execution.
func (r *Recorder) StageObserved(stage string, err error, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage, Outcome(err)).Observe(d.Seconds())
}

// ParseFallback counts a degraded parse in stage.
func (r *Recorder) ParseFallback(stage string) {
	if r == nil {
		return
	}
	r.parseFallbacks.WithLabelValues(stage).Inc()
}

// ClaimResolved counts a resolved claim.
func (r *Recorder) ClaimResolved(status types.ClaimStatus) {
	if r == nil {
		return
	}
	r.claims.WithLabelValues(string(status)).Inc()
}

// SearchRequest counts one provider call.
func (r *Recorder) SearchRequest(provider string, err error) {
	if r == nil {
		return
	}
	r.searchRequests.WithLabelValues(provider, Outcome(err)).Inc()
}

// WriteTextfile writes the registry in the text exposition format to path,
// suitable for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
