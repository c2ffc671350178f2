package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/filebridge/internal/config"
	fberrors "github.com/vango-dev/filebridge/internal/errors"
	"github.com/vango-dev/filebridge/pkg/bridge"
	"github.com/vango-dev/filebridge/pkg/middleware"
	"github.com/vango-dev/filebridge/pkg/scalar"
	"github.com/vango-dev/filebridge/pkg/upload"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
		spoolDir   string
		fileArgs   []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload bridge in front of an echo handler",
		Long: `Run an HTTP server with the upload bridge mounted on the protocol route.

Multipart requests are decoded and handed to a built-in echo handler
that reads every file and answers with what it received. JSON requests
pass through untouched.

Configuration is read from filebridge.json in the working directory or
a parent; without one the defaults are used.

Examples:
  filebridge serve
  filebridge serve --port=9090 --spool-dir=/tmp/spool
  filebridge serve --file-arg=upload.file --file-arg=@attach.file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if spoolDir != "" {
				cfg.Spool.Dir = spoolDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, fileArgs)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to filebridge.json")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from filebridge.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from filebridge.json)")
	cmd.Flags().StringVar(&spoolDir, "spool-dir", "", "Spool directory (default from filebridge.json)")
	cmd.Flags().StringArrayVar(&fileArgs, "file-arg", nil, "Reject inline literals for a File argument (field.arg or @directive.arg)")

	return cmd
}

// loadConfig loads path, or filebridge.json from the working directory,
// falling back to defaults when there is none.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		var be *fberrors.BridgeError
		if errors.As(err, &be) && be.Code == "FB151" {
			return config.New(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config, fileArgs []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := newServer(cfg, store, registry, fileArgs, logger)

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go cleanupLoop(ctx, store, cfg.CleanupInterval(), cfg.MaxAge(), logger)

	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	success("Listening on http://%s%s", cfg.Address(), cfg.Server.Route)
	info("Spool:   %s", describeStore(cfg))
	if cfg.MetricsEnabled() {
		info("Metrics: http://%s%s", cfg.Address(), cfg.Observability.MetricsPath)
	}
	fmt.Println()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	fmt.Println("\n\n  Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		warn("Shutdown: %v", err)
		return err
	}
	return nil
}

// newServer wires the router: tracing, body limit, the bridge on the
// protocol route, health and metrics endpoints.
func newServer(cfg *config.Config, store upload.Store, registry *prometheus.Registry, fileArgs []string, logger *slog.Logger) http.Handler {
	bcfg := bridge.Config{
		PayloadKey:    cfg.Server.PayloadKey,
		MaxFieldBytes: cfg.Server.MaxFieldBytes,
	}
	if len(fileArgs) > 0 {
		checker := &scalar.LiteralChecker{Arguments: map[string]string{}}
		for _, arg := range fileArgs {
			checker.Arguments[arg] = scalar.FileName
		}
		bcfg.Literals = checker
	}

	b := bridge.New(bcfg, store,
		bridge.WithLogger(logger.With("component", "bridge")),
		bridge.WithObserver(middleware.Prometheus(middleware.WithRegistry(registry))),
		bridge.WithObserver(middleware.Tracing()),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.OpenTelemetry(
		middleware.WithTracerName(cfg.Observability.TracerName),
		middleware.WithRequestFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != cfg.Observability.MetricsPath
		}),
	))
	if limit := cfg.Server.MaxBodyBytes; limit > 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
				next.ServeHTTP(w, r)
			})
		})
	}

	bridge.Mount(r, cfg.Server.Route, b, echoHandler(logger.With("component", "echo")))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	if cfg.MetricsEnabled() {
		r.Handle(cfg.Observability.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return r
}

func openStore(ctx context.Context, cfg *config.Config) (upload.Store, error) {
	dir := cfg.SpoolPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fberrors.New("FB150").Wrap(err).WithDetail("Cannot create spool directory " + dir)
	}

	switch cfg.Spool.Backend {
	case config.BackendS3:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Spool.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Spool.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fberrors.New("FB150").Wrap(fmt.Errorf("failed to load AWS config: %w", err))
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if endpoint := os.Getenv("FILEBRIDGE_S3_ENDPOINT"); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true
			}
		})
		return upload.NewS3Store(client, cfg.Spool.Bucket, cfg.Spool.Prefix).WithTempDir(dir), nil
	default:
		store, err := upload.NewDiskStore(dir)
		if err != nil {
			return nil, fberrors.New("FB150").Wrap(err)
		}
		return store, nil
	}
}

func describeStore(cfg *config.Config) string {
	if cfg.Spool.Backend == config.BackendS3 {
		return fmt.Sprintf("s3://%s/%s", cfg.Spool.Bucket, cfg.Spool.Prefix)
	}
	return cfg.SpoolPath()
}

// cleanupLoop removes stale spool entries until ctx is done.
func cleanupLoop(ctx context.Context, store upload.Store, every, maxAge time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx, maxAge); err != nil && ctx.Err() == nil {
				logger.Warn("spool cleanup failed", "error", err)
			}
		}
	}
}
