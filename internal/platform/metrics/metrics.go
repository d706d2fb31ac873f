// Package metrics exposes process measurements in the Prometheus text format.
// Each bounded context reports through its own Observer port; Recorder
// implements all of them against one registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "civic"

type Recorder struct {
	registry *prometheus.Registry

	scoreDuration   prometheus.Histogram
	skippedSources  prometheus.Counter
	externalTier    *prometheus.CounterVec
	scoreCache      *prometheus.CounterVec
	issued          *prometheus.CounterVec
	relayed         *prometheus.CounterVec
	swept           prometheus.Counter
	ledgerRecords   *prometheus.CounterVec
	ledgerEntries   prometheus.Gauge
	ledgerAdmin     *prometheus.CounterVec
	pollResponses   *prometheus.CounterVec
	pollAnalytics   *prometheus.CounterVec
	invalidResponse prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "score_duration_seconds",
			Help:      "Time spent computing a reputation score.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .15, .2, .3, .5},
		}),
		skippedSources: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "skipped_sources_total",
			Help:      "Credential sources skipped because they failed or timed out.",
		}),
		externalTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "external_tier_total",
			Help:      "External tier answers by acceptance.",
		}, []string{"accepted"}),
		scoreCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "score_cache_total",
			Help:      "Score cache lookups by result.",
		}, []string{"result"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "requests_total",
			Help:      "Vote token issuance requests by outcome kind.",
		}, []string{"kind"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "relay_total",
			Help:      "Outbox tokens delivered to the ledger by outcome.",
		}, []string{"outcome"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "reservations_swept_total",
			Help:      "Expired reservations pruned by the sweeper.",
		}),
		ledgerRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "record_total",
			Help:      "Ledger append attempts by outcome.",
		}, []string{"outcome"}),
		ledgerEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries",
			Help:      "Entries currently held by the ledger.",
		}),
		ledgerAdmin: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "admin_total",
			Help:      "Administrative ledger actions by action and authorization.",
		}, []string{"action", "allowed"}),
		pollResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "polling",
			Name:      "responses_total",
			Help:      "Poll response submissions by outcome.",
		}, []string{"outcome"}),
		pollAnalytics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "polling",
			Name:      "analytics_total",
			Help:      "Poll analytics requests by view and outcome.",
		}, []string{"view", "outcome"}),
		invalidResponse: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "polling",
			Name:      "invalid_signatures_total",
			Help:      "Stored responses excluded because their signature did not verify.",
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.scoreDuration,
		r.skippedSources,
		r.externalTier,
		r.scoreCache,
		r.issued,
		r.relayed,
		r.swept,
		r.ledgerRecords,
		r.ledgerEntries,
		r.ledgerAdmin,
		r.pollResponses,
		r.pollAnalytics,
		r.invalidResponse,
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// reputation-engine

func (r *Recorder) ObserveScoreComputed(elapsed time.Duration, skippedSources int) {
	r.scoreDuration.Observe(elapsed.Seconds())
	if skippedSources > 0 {
		r.skippedSources.Add(float64(skippedSources))
	}
}

func (r *Recorder) ObserveExternalTier(accepted bool) {
	r.externalTier.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

func (r *Recorder) ObserveScoreCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.scoreCache.WithLabelValues(result).Inc()
}

// vote-issuance

func (r *Recorder) ObserveIssue(kind string) {
	r.issued.WithLabelValues(kind).Inc()
}

func (r *Recorder) ObserveRelay(outcome string) {
	r.relayed.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveSweep(pruned int) {
	if pruned > 0 {
		r.swept.Add(float64(pruned))
	}
}

// ballot-ledger

func (r *Recorder) ObserveRecord(outcome string) {
	r.ledgerRecords.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveEntries(total int) {
	r.ledgerEntries.Set(float64(total))
}

func (r *Recorder) ObserveAdmin(action string, allowed bool) {
	r.ledgerAdmin.WithLabelValues(action, strconv.FormatBool(allowed)).Inc()
}

// response-aggregator

func (r *Recorder) ObserveResponse(outcome string) {
	r.pollResponses.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveAnalytics(view string, outcome string) {
	r.pollAnalytics.WithLabelValues(view, outcome).Inc()
}

func (r *Recorder) ObserveInvalidResponses(count int) {
	if count > 0 {
		r.invalidResponse.Add(float64(count))
	}
}
