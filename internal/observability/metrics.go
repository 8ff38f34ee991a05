package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/matching"
)

// Metrics holds the dashboard's Prometheus collectors on a private
// registry. It satisfies matching.Observer and requestflow.Observer.
type Metrics struct {
	reg *prometheus.Registry

	matchesTotal    *prometheus.CounterVec
	matchDuration   prometheus.Histogram
	matchedDatasets *prometheus.CounterVec
	warningsTotal   *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	requestsTotal   prometheus.Counter
	requestDatasets prometheus.Histogram
	approvalsTotal  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		matchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dcm_matches_total",
			Help: "Matching passes, by whether the memo served them.",
		}, []string{"cached"}),
		matchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dcm_match_duration_seconds",
			Help:    "Time spent producing a matching result.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		matchedDatasets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dcm_matched_datasets_total",
			Help: "Datasets classified, by access category.",
		}, []string{"category"}),
		warningsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dcm_intent_warnings_total",
			Help: "Intent warnings emitted, by intent field.",
		}, []string{"field"}),
		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "dcm_sessions_active",
			Help: "Open request-flow sessions.",
		}),
		requestsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "dcm_requests_submitted_total",
			Help: "Access requests submitted.",
		}),
		requestDatasets: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dcm_request_datasets",
			Help:    "Datasets per submitted request.",
			Buckets: prometheus.LinearBuckets(1, 2, 8),
		}),
		approvalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dcm_approval_actions_total",
			Help: "Reviewer decisions recorded, by decision.",
		}, []string{"decision"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dcm_http_requests_total",
			Help: "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dcm_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveMatch(d time.Duration, res *matching.Result, cached bool) {
	m.matchesTotal.WithLabelValues(strconv.FormatBool(cached)).Inc()
	m.matchDuration.Observe(d.Seconds())
	if res == nil || cached {
		return
	}
	for _, c := range matching.Categories {
		if n := len(res.Bucket(c)); n > 0 {
			m.matchedDatasets.WithLabelValues(string(c)).Add(float64(n))
		}
	}
	for _, w := range res.Warnings {
		m.warningsTotal.WithLabelValues(string(w.Field)).Inc()
	}
}

func (m *Metrics) SessionOpened() { m.sessionsActive.Inc() }

func (m *Metrics) SessionClosed() { m.sessionsActive.Dec() }

func (m *Metrics) RequestSubmitted(datasets int) {
	m.requestsTotal.Inc()
	m.requestDatasets.Observe(float64(datasets))
}

func (m *Metrics) ApprovalRecorded(decision string) {
	m.approvalsTotal.WithLabelValues(decision).Inc()
}

// ObserveHTTP records one served request. Route should be the registered
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
