// Package metrics exposes the store's Prometheus counters.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Retrieval outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
	OutcomeDenied   = "denied"
	OutcomeCorrupt  = "corrupt"
	OutcomeError    = "error"
)

// Metrics counts core store events.
type Metrics interface {
	IncIngested(policy string)
	IncIngestFailed()
	IncRetrieval(outcome string)
	IncSwept(result string)
	ObserveSweep(durationSeconds float64)
}

// RequestMetrics captures adapter request metrics.
type RequestMetrics interface {
	ObserveRequest(transport, route, status string, durationSeconds float64)
}

// Noop implements Metrics and RequestMetrics without emitting anything.
type Noop struct{}

func (Noop) IncIngested(string)                             {}
func (Noop) IncIngestFailed()                               {}
func (Noop) IncRetrieval(string)                            {}
func (Noop) IncSwept(string)                                {}
func (Noop) ObserveSweep(float64)                           {}
func (Noop) ObserveRequest(string, string, string, float64) {}

// Prom implements Metrics and RequestMetrics with Prometheus collectors
// registered on the default registerer.
type Prom struct {
	ingested     *prometheus.CounterVec
	ingestFailed prometheus.Counter
	retrievals   *prometheus.CounterVec
	swept        *prometheus.CounterVec
	sweepSeconds prometheus.Histogram
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_ingested_total",
			Help:      "Artifacts stored, by access policy",
		}, []string{"policy"}),
		ingestFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_ingest_failed_total",
			Help:      "Ingestions rolled back after a storage failure",
		}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_retrievals_total",
			Help:      "Retrieval attempts by outcome",
		}, []string{"outcome"}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_swept_total",
			Help:      "Expired artifacts handled by the sweeper, by result",
		}, []string{"result"}),
		sweepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one sweep cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Adapter requests by transport/route/status",
		}, []string{"transport", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Adapter request latency by transport/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "route"}),
	}

	p.ingested = register(p.ingested)
	p.ingestFailed = register(p.ingestFailed)
	p.retrievals = register(p.retrievals)
	p.swept = register(p.swept)
	p.sweepSeconds = register(p.sweepSeconds)
	p.requests = register(p.requests)
	p.latency = register(p.latency)
	return p
}

// register adds c to the default registerer, reusing an identical collector
// that is already registered.
func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (p *Prom) IncIngested(policy string) {
	p.ingested.WithLabelValues(policy).Inc()
}

func (p *Prom) IncIngestFailed() {
	p.ingestFailed.Inc()
}

func (p *Prom) IncRetrieval(outcome string) {
	p.retrievals.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncSwept(result string) {
	p.swept.WithLabelValues(result).Inc()
}

func (p *Prom) ObserveSweep(durationSeconds float64) {
	p.sweepSeconds.Observe(durationSeconds)
}

func (p *Prom) ObserveRequest(transport, route, status string, durationSeconds float64) {
	p.requests.WithLabelValues(transport, route, status).Inc()
	p.latency.WithLabelValues(transport, route).Observe(durationSeconds)
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
