package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Suggestion metrics
	suggestionsTotal   *prometheus.CounterVec
	suggestionDuration prometheus.Histogram
	exclusionsTotal    *prometheus.CounterVec
	holdingsSuggested  prometheus.Histogram
	cacheRequests      *prometheus.CounterVec
	cachePruned        prometheus.Counter
	commentaryTotal    *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Suggestion metrics
	r.suggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_suggestions_total",
			Help: "Total number of portfolio suggestions by outcome code",
		},
		[]string{"status"},
	)
	r.suggestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_suggestion_duration_seconds",
			Help:    "Portfolio suggestion duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	r.exclusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_exclusions_total",
			Help: "Total number of tickers left out of a suggestion",
		},
		[]string{"reason"},
	)
	r.holdingsSuggested = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_holdings_suggested",
			Help:    "Number of tickers with at least one share per suggestion",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
	)
	r.cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_cache_requests_total",
			Help: "Market data cache lookups",
		},
		[]string{"kind", "result"},
	)
	r.cachePruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_cache_pruned_total",
			Help: "Expired cache entries removed",
		},
	)
	r.commentaryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_commentary_total",
			Help: "LLM commentary requests",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.suggestionsTotal)
	reg.MustRegister(r.suggestionDuration)
	reg.MustRegister(r.exclusionsTotal)
	reg.MustRegister(r.holdingsSuggested)
	reg.MustRegister(r.cacheRequests)
	reg.MustRegister(r.cachePruned)
	reg.MustRegister(r.commentaryTotal)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSuggestion records a finished suggestion. status is "ok" or an
// error code.
func (r *Registry) RecordSuggestion(status string, duration float64) {
	r.suggestionsTotal.WithLabelValues(status).Inc()
	r.suggestionDuration.Observe(duration)
}

// RecordHoldings records how many tickers a suggestion bought.
func (r *Registry) RecordHoldings(n int) {
	r.holdingsSuggested.Observe(float64(n))
}

// RecordExclusion records a ticker left out for reason.
func (r *Registry) RecordExclusion(reason string) {
	r.exclusionsTotal.WithLabelValues(reason).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (r *Registry) RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(kind, result).Inc()
}

// RecordCachePrune records entries removed by a prune run.
func (r *Registry) RecordCachePrune(removed int) {
	r.cachePruned.Add(float64(removed))
}

// RecordCommentary records an LLM commentary attempt.
func (r *Registry) RecordCommentary(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.commentaryTotal.WithLabelValues(status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
