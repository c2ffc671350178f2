package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/filebridge/pkg/bridge"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogram(t *testing.T, o prometheus.Observer) *dto.Histogram {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram()
}

func TestPrometheus_RecordsRequests(t *testing.T) {
	t.Run("accepted multipart request", func(t *testing.T) {
		m := Prometheus(WithRegistry(prometheus.NewRegistry()))

		m.ObserveRequest(context.Background(), bridge.RequestEvent{
			Route:     "/graphql",
			Multipart: true,
			Files:     2,
			Bytes:     3072,
			Duration:  5 * time.Millisecond,
		})

		if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("/graphql", "multipart", "success")); got != 1 {
			t.Fatalf("requests_total(success)=%v, want 1", got)
		}
		if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("/graphql", "multipart", "error")); got != 0 {
			t.Fatalf("requests_total(error)=%v, want 0", got)
		}
		if got := metricCounterValue(t, m.filesTotal.WithLabelValues("/graphql")); got != 2 {
			t.Fatalf("files_total=%v, want 2", got)
		}
		if got := metricCounterValue(t, m.spooledBytes.WithLabelValues("/graphql")); got != 3072 {
			t.Fatalf("spooled_bytes_total=%v, want 3072", got)
		}
		if got := metricHistogram(t, m.decodeDuration.WithLabelValues("/graphql")).GetSampleCount(); got != 1 {
			t.Fatalf("decode_duration_seconds count=%v, want 1", got)
		}
		if got := metricHistogram(t, m.uploadSize.WithLabelValues("/graphql")).GetSampleSum(); got != 3072 {
			t.Fatalf("upload_size_bytes sum=%v, want 3072", got)
		}
	})

	t.Run("rejected request counts code and category", func(t *testing.T) {
		m := Prometheus(WithRegistry(prometheus.NewRegistry()))

		m.ObserveRequest(context.Background(), bridge.RequestEvent{
			Route:     "/graphql",
			Multipart: true,
			Err:       errors.New("duplicate field"),
			Code:      "FB111",
		})

		if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("/graphql", "multipart", "error")); got != 1 {
			t.Fatalf("requests_total(error)=%v, want 1", got)
		}
		if got := metricCounterValue(t, m.errorsTotal.WithLabelValues("/graphql", "FB111", "path")); got != 1 {
			t.Fatalf("errors_total(FB111)=%v, want 1", got)
		}
		if got := metricCounterValue(t, m.filesTotal.WithLabelValues("/graphql")); got != 0 {
			t.Fatalf("files_total=%v, want 0 for a rejected request", got)
		}
	})

	t.Run("pass-through request", func(t *testing.T) {
		m := Prometheus(WithRegistry(prometheus.NewRegistry()))

		m.ObserveRequest(context.Background(), bridge.RequestEvent{Route: "/graphql"})

		if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("/graphql", "passthrough", "success")); got != 1 {
			t.Fatalf("requests_total(passthrough)=%v, want 1", got)
		}
		if got := metricHistogram(t, m.decodeDuration.WithLabelValues("/graphql")).GetSampleCount(); got != 0 {
			t.Fatalf("decode_duration_seconds count=%v, want 0", got)
		}
	})
}

func TestPrometheus_EmptyRouteNormalizesToSlash(t *testing.T) {
	m := Prometheus(WithRegistry(prometheus.NewRegistry()))

	m.ObserveRequest(context.Background(), bridge.RequestEvent{})

	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("/", "passthrough", "success")); got != 1 {
		t.Fatalf("requests_total(/)=%v, want 1", got)
	}
}

func TestPrometheus_NamespaceAndConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := Prometheus(
		WithRegistry(reg),
		WithNamespace("uploads"),
		WithSubsystem("edge"),
		WithConstLabels(prometheus.Labels{"region": "eu"}),
	)
	m.ObserveRequest(context.Background(), bridge.RequestEvent{Route: "/q"})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() != "uploads_edge_requests_total" {
			continue
		}
		found = true
		labels := map[string]string{}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		if labels["region"] != "eu" {
			t.Fatalf("const label region=%q, want eu", labels["region"])
		}
	}
	if !found {
		t.Fatal("expected uploads_edge_requests_total to be registered")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"FB100", "transport"},
		{"FB111", "path"},
		{"FB130", "schema"},
		{"NOPE", "internal"},
	}
	for _, tt := range tests {
		if got := categorize(tt.code); got != tt.want {
			t.Errorf("categorize(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
