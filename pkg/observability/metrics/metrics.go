// Package metrics implements observability.SearchHooks with Prometheus
// collectors on a private registry.
//
// A tuning run is a batch job, so nothing is served over HTTP: the collected
// metrics are written once at the end in the node-exporter textfile format.
//
//	h := metrics.NewHooks()
//	observability.SetSearchHooks(h)
//	// ... run the search
//	_ = h.WriteTextfile("/var/lib/node_exporter/layouttune.prom")
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/layouttune/pkg/geometry"
	"github.com/matzehuels/layouttune/pkg/observability"
)

const namespace = "layouttune"

// Hooks records search events as Prometheus metrics.
type Hooks struct {
	reg *prometheus.Registry

	runInfo       *prometheus.GaugeVec
	candidates    prometheus.Gauge
	evaluated     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	candidateDur  prometheus.Histogram
	scores        prometheus.Histogram
	bestScore     prometheus.Gauge
	bestIndex     prometheus.Gauge
	improvements  prometheus.Counter
	runDuration   prometheus.Gauge
}

// NewHooks creates hooks with all collectors registered on a fresh registry.
func NewHooks() *Hooks {
	h := &Hooks{
		reg: prometheus.NewRegistry(),
		runInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_info",
			Help:      "Identifier of the tuning run; always 1.",
		}, []string{"run_id"}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grid_candidates",
			Help:      "Number of parameter sets in the search grid.",
		}),
		evaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Evaluated candidates by outcome and failing stage.",
		}, []string{"outcome", "stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each evaluation stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage", "outcome"}),
		candidateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidate_duration_seconds",
			Help:      "Wall time to evaluate one candidate.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 3, 8),
		}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_rmse",
			Help:      "Distribution of finite candidate scores.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_score_rmse",
			Help:      "Lowest score seen so far.",
		}),
		bestIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_candidate_index",
			Help:      "One-based grid index of the best candidate; 0 when none succeeded.",
		}),
		improvements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_improvements_total",
			Help:      "Number of times the best candidate was replaced.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the whole search.",
		}),
	}

	h.reg.MustRegister(
		h.runInfo, h.candidates, h.evaluated, h.stageDuration, h.candidateDur,
		h.scores, h.bestScore, h.bestIndex, h.improvements, h.runDuration,
	)
	return h
}

// Registry exposes the underlying registry, e.g. for tests or an exporter.
func (h *Hooks) Registry() *prometheus.Registry {
	return h.reg
}

// WriteTextfile writes the current metrics to path in text exposition format.
func (h *Hooks) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, h.reg)
}

func (h *Hooks) OnRunStart(_ context.Context, runID string, total int) {
	h.runInfo.WithLabelValues(runID).Set(1)
	h.candidates.Set(float64(total))
}

func (h *Hooks) OnCandidateStart(context.Context, int, int) {}

func (h *Hooks) OnStageComplete(_ context.Context, stage observability.Stage, d time.Duration, err error) {
	h.stageDuration.WithLabelValues(string(stage), outcome(err)).Observe(d.Seconds())
}

func (h *Hooks) OnCandidateComplete(_ context.Context, _ int, score float64, d time.Duration, err error) {
	h.candidateDur.Observe(d.Seconds())
	switch {
	case err != nil:
		h.evaluated.WithLabelValues("failed", string(observability.StageOf(err))).Inc()
	case !geometry.Comparable(score):
		h.evaluated.WithLabelValues("incomparable", "").Inc()
	default:
		h.evaluated.WithLabelValues("scored", "").Inc()
		h.scores.Observe(score)
	}
}

func (h *Hooks) OnNewBest(_ context.Context, index int, score float64) {
	h.bestScore.Set(score)
	h.bestIndex.Set(float64(index))
	h.improvements.Inc()
}

func (h *Hooks) OnRunComplete(_ context.Context, _, _ int, d time.Duration) {
	h.runDuration.Set(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ observability.SearchHooks = (*Hooks)(nil)
