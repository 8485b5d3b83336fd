// package metrics defines the per-service Prometheus collectors and the
// exposition endpoint handler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider holds the collectors for one service. Each service carries its own
// registry so running several services in one process never double-registers.
type Provider struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	injectedFaults  prometheus.Counter
	rateLimited     prometheus.Counter
}

// NewProvider creates the collectors for the named service, including the
// standard Go and process collectors.
func NewProvider(service string) *Provider {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)
	labels := prometheus.Labels{"service": service}

	return &Provider{
		registry: registry,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "spotistats_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "spotistats_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"endpoint"}),

		injectedFaults: factory.NewCounter(prometheus.CounterOpts{
			Name:        "spotistats_injected_faults_total",
			Help:        "Total number of requests short-circuited by fault injection",
			ConstLabels: labels,
		}),

		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name:        "spotistats_rate_limited_total",
			Help:        "Total number of requests rejected by the rate limiter",
			ConstLabels: labels,
		}),
	}
}

func (p *Provider) IncRequestsTotal(endpoint string, status int) {
	p.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (p *Provider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	p.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (p *Provider) IncInjectedFaults() {
	p.injectedFaults.Inc()
}

func (p *Provider) IncRateLimited() {
	p.rateLimited.Inc()
}

// Handler returns the exposition endpoint for this service's registry.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
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
