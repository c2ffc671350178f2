// Package middleware provides observability for the upload bridge.
//
// This package includes:
//
//   - OpenTelemetry HTTP middleware with a server span per request
//   - A tracing observer that records decode results on that span
//   - A Prometheus observer for request, error and spool metrics
//
// # OpenTelemetry Middleware
//
// The HTTP middleware starts the span; the bridge observer fills it in:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("uploads"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
//	b := bridge.New(cfg, store, bridge.WithObserver(middleware.Tracing()))
//	bridge.Mount(r, "/graphql", b, handler)
//
// # Prometheus Metrics
//
// Metrics is a bridge.Observer:
//
//   - filebridge_requests_total: Requests by route, mode and status
//   - filebridge_decode_duration_seconds: Multipart decode duration histogram
//   - filebridge_errors_total: Rejections by route, catalog code and category
//   - filebridge_files_total and filebridge_spooled_bytes_total: Spool volume
//
//	reg := prometheus.NewRegistry()
//	b := bridge.New(cfg, store,
//	    bridge.WithObserver(middleware.Prometheus(middleware.WithRegistry(reg))),
//	)
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
