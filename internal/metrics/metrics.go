package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider collects bridge instrumentation. It satisfies the observer
// interfaces of the API client and the update coordinator.
type Provider interface {
	ObserveRequest(endpoint string, status int, took time.Duration)
	ObserveRefresh(took time.Duration, err error)
	ObserveResourceFailure(resource string)
	ObserveHTTP(route string, status int, took time.Duration)
	IncCacheHits()
	IncCacheMisses()
	SetEntries(n int)
	Handler() http.Handler
}

type prometheusProvider struct {
	registry *prometheus.Registry

	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	refreshes        *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	resourceFailures *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	entries          prometheus.Gauge
}

// New returns a Prometheus provider backed by its own registry, or a no-op
// provider when disabled.
func New(enabled bool) Provider {
	if !enabled {
		return noopProvider{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &prometheusProvider{
		registry: reg,

		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fiftyone_api_requests_total",
			Help: "Total number of requests to the FiftyOne API",
		}, []string{"endpoint", "status"}),

		apiDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fiftyone_api_request_duration_seconds",
			Help:    "FiftyOne API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fiftyone_refresh_total",
			Help: "Total number of refresh cycles by result",
		}, []string{"result"}),

		refreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fiftyone_refresh_duration_seconds",
			Help:    "Refresh cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		resourceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fiftyone_resource_failures_total",
			Help: "Total number of resource fetches replaced by their default",
		}, []string{"resource"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fiftyone_http_requests_total",
			Help: "Total number of HTTP requests served",
		}, []string{"route", "status"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fiftyone_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "fiftyone_response_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "fiftyone_response_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		entries: f.NewGauge(prometheus.GaugeOpts{
			Name: "fiftyone_entries",
			Help: "Number of configuration entries set up",
		}),
	}
}

func (m *prometheusProvider) ObserveRequest(endpoint string, status int, took time.Duration) {
	m.apiRequests.WithLabelValues(endpoint, statusLabel(status)).Inc()
	m.apiDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

func (m *prometheusProvider) ObserveRefresh(took time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.refreshes.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(took.Seconds())
}

func (m *prometheusProvider) ObserveResourceFailure(resource string) {
	m.resourceFailures.WithLabelValues(resource).Inc()
}

func (m *prometheusProvider) ObserveHTTP(route string, status int, took time.Duration) {
	m.httpRequests.WithLabelValues(route, httpStatusBucket(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(took.Seconds())
}

func (m *prometheusProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *prometheusProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *prometheusProvider) SetEntries(n int) {
	m.entries.Set(float64(n))
}

func (m *prometheusProvider) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// statusLabel buckets API statuses; 0 marks a transport failure.
func statusLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return httpStatusBucket(code)
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// noopProvider is used when metrics are disabled.
type noopProvider struct{}

func (noopProvider) ObserveRequest(string, int, time.Duration) {}
func (noopProvider) ObserveRefresh(time.Duration, error)       {}
func (noopProvider) ObserveResourceFailure(string)             {}
func (noopProvider) ObserveHTTP(string, int, time.Duration)    {}
func (noopProvider) IncCacheHits()                             {}
func (noopProvider) IncCacheMisses()                           {}
func (noopProvider) SetEntries(int)                            {}
func (noopProvider) Handler() http.Handler                     { return http.NotFoundHandler() }
