// Package telemetry exports Prometheus metrics for tagging runs and the
// HTTP API.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matchtag"

// Article outcomes.
const (
	OutcomeProcessed    = "processed"
	OutcomeSkipped      = "skipped"
	OutcomeFailed       = "failed"
	OutcomeDeadLettered = "dead_lettered"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Run metrics
	Articles      *prometheus.CounterVec
	TagDuration   prometheus.Histogram
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	LedgerEntries prometheus.Gauge

	// Transfer metrics
	Uploads       *prometheus.CounterVec
	CorpusRefresh prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// Provider owns a registry and the metrics registered in it. A nil
// *Provider is valid and records nothing.
type Provider struct {
	Metrics  *Metrics
	registry *prometheus.Registry
}

// NewProvider creates metrics in a fresh registry that also carries the
// Go runtime and process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Provider{Metrics: initMetrics(promauto.With(reg)), registry: reg}
}

// Handler returns the Prometheus HTTP handler for /metrics.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mainly for tests.
func (p *Provider) Gatherer() prometheus.Gatherer {
	return p.registry
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}
	initRunMetrics(f, m)
	initTransferMetrics(f, m)
	initHTTPMetrics(f, m)
	return m
}

func initRunMetrics(f promauto.Factory, m *Metrics) {
	m.Articles = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "articles_total",
		Help:      "Articles seen by tagging runs, by outcome",
	}, []string{"outcome"})

	m.TagDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tag_duration_seconds",
		Help:      "Time to tag a single article",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	})

	m.Runs = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Tagging runs, by status",
	}, []string{"status"})

	m.RunDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full tagging run",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
	})

	m.LedgerEntries = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_entries",
		Help:      "Articles recorded as processed",
	})
}

func initTransferMetrics(f promauto.Factory, m *Metrics) {
	m.Uploads = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Output log uploads, by status",
	}, []string{"status"})

	m.CorpusRefresh = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "corpus_refresh_total",
		Help:      "Corpus downloads from the object store",
	})
}

func initHTTPMetrics(f promauto.Factory, m *Metrics) {
	m.HTTPRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by route and status code",
	}, []string{"route", "code"})

	m.HTTPDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
}

// RecordArticle counts one article outcome.
func (p *Provider) RecordArticle(outcome string, tagDuration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.Articles.WithLabelValues(outcome).Inc()
	if outcome == OutcomeProcessed {
		p.Metrics.TagDuration.Observe(tagDuration.Seconds())
	}
}

// RecordRun records the end of a run.
func (p *Provider) RecordRun(err error, duration time.Duration, ledgerEntries int) {
	if p == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.Metrics.Runs.WithLabelValues(status).Inc()
	p.Metrics.RunDuration.Observe(duration.Seconds())
	if ledgerEntries >= 0 {
		p.Metrics.LedgerEntries.Set(float64(ledgerEntries))
	}
}

// RecordUpload records an output log upload attempt.
func (p *Provider) RecordUpload(err error) {
	if p == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.Metrics.Uploads.WithLabelValues(status).Inc()
}

// RecordRefresh counts a corpus download.
func (p *Provider) RecordRefresh() {
	if p == nil {
		return
	}
	p.Metrics.CorpusRefresh.Inc()
}

// RecordHTTP records one served request.
func (p *Provider) RecordHTTP(route string, code int, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	p.Metrics.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}
