package middleware

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	fberrors "github.com/vango-dev/filebridge/internal/errors"
	"github.com/vango-dev/filebridge/pkg/bridge"
)

// MetricsConfig configures the Prometheus metrics observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "filebridge").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for decode duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// SizeBuckets are the histogram buckets for per-request upload size.
	// Default: 1KB to 1GB.
	SizeBuckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the decode duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithSizeBuckets sets the upload size histogram buckets.
func WithSizeBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.SizeBuckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "filebridge",
		Buckets:     prometheus.DefBuckets,
		SizeBuckets: prometheus.ExponentialBuckets(1024, 8, 8), // 1KB to 2GB
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Metrics records bridge requests as Prometheus metrics. It implements
// bridge.Observer.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	decodeDuration *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	filesTotal     *prometheus.CounterVec
	spooledBytes   *prometheus.CounterVec
	uploadSize     *prometheus.HistogramVec
}

// Prometheus creates an observer that collects metrics for bridge requests.
//
// Metrics collected:
//   - filebridge_requests_total: Counter of requests by route, mode and status
//   - filebridge_decode_duration_seconds: Histogram of multipart decode time
//   - filebridge_errors_total: Counter of rejected requests by route, code and category
//   - filebridge_files_total: Counter of spooled file parts
//   - filebridge_spooled_bytes_total: Counter of spooled file bytes
//   - filebridge_upload_size_bytes: Histogram of spooled bytes per request
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	b := bridge.New(cfg, store,
//	    bridge.WithObserver(middleware.Prometheus(middleware.WithRegistry(reg))),
//	)
//
//	// Expose metrics endpoint
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Each call registers a fresh set of collectors, so use a separate registry
// per Metrics.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests seen by the upload bridge",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "mode", "status"}),

		decodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "decode_duration_seconds",
			Help:        "Multipart parse and rebuild duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of rejected upload requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "code", "category"}),

		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "files_total",
			Help:        "Total number of file parts spooled",
			ConstLabels: config.ConstLabels,
		}, []string{"route"}),

		spooledBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "spooled_bytes_total",
			Help:        "Total number of file bytes written to the spool",
			ConstLabels: config.ConstLabels,
		}, []string{"route"}),

		uploadSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "upload_size_bytes",
			Help:        "File bytes spooled per accepted request",
			ConstLabels: config.ConstLabels,
			Buckets:     config.SizeBuckets,
		}, []string{"route"}),
	}
}

// ObserveRequest implements bridge.Observer.
func (m *Metrics) ObserveRequest(_ context.Context, ev bridge.RequestEvent) {
	route := ev.Route
	if route == "" {
		route = "/"
	}

	if !ev.Multipart {
		m.requestsTotal.WithLabelValues(route, "passthrough", "success").Inc()
		return
	}

	m.decodeDuration.WithLabelValues(route).Observe(ev.Duration.Seconds())

	if ev.Err != nil {
		m.requestsTotal.WithLabelValues(route, "multipart", "error").Inc()
		m.errorsTotal.WithLabelValues(route, ev.Code, categorize(ev.Code)).Inc()
		return
	}

	m.requestsTotal.WithLabelValues(route, "multipart", "success").Inc()
	m.filesTotal.WithLabelValues(route).Add(float64(ev.Files))
	m.spooledBytes.WithLabelValues(route).Add(float64(ev.Bytes))
	m.uploadSize.WithLabelValues(route).Observe(float64(ev.Bytes))
}

// categorize maps a catalog code to its category so dashboards can group
// errors without a label per message.
func categorize(code string) string {
	if t, ok := fberrors.GetTemplate(code); ok {
		return string(t.Category)
	}
	return string(fberrors.CategoryInternal)
}
