// Command gardend runs the growth and reward engine behind a JSON HTTP API.
package main

import (
	"context"
	"expvar"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gardencore/internal/blob"
	"gardencore/internal/core"
	"gardencore/internal/token"
	"gardencore/internal/vault"
	"gardencore/pkg/domain"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		admin      = flag.String("admin", "", "admin principal (or GARDENCORE_ADMIN)")
		contentRef = flag.String("content-ref", "", "default collectible content reference (or GARDENCORE_CONTENT_REF)")
		tracePath  = flag.String("trace", "", "append operation trace JSON lines to this file")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	adminPrincipal := *admin
	if adminPrincipal == "" {
		adminPrincipal = os.Getenv("GARDENCORE_ADMIN")
	}
	if adminPrincipal == "" {
		adminPrincipal = "admin"
	}
	defaultContentRef := *contentRef
	if defaultContentRef == "" {
		defaultContentRef = os.Getenv("GARDENCORE_CONTENT_REF")
	}

	ctx, cancel := signalContext()
	defer cancel()

	engine := domain.NewRulesEngine()
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		logger.Error("open persistent store", "err", err)
		os.Exit(1)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	blobs, err := blob.Open(ctx)
	if err != nil {
		logger.Error("open blob store", "err", err)
		os.Exit(1)
	}
	ledger := token.NewLedger().WithBlobStore(blobs)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		logger.Error("register metrics", "err", err)
		os.Exit(1)
	}

	opts := []core.Option{
		core.WithLogger(core.SlogLogger{L: logger}),
		core.WithMetrics(metrics),
		core.WithMetrics(core.NewExpvarRecorder("gardencore")),
	}
	if *tracePath != "" {
		f, err := os.OpenFile(*tracePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Error("open trace file", "err", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}
	pool := vault.New(store)
	garden := core.NewGardenService(store, ledger, adminPrincipal, opts...)
	plots := core.NewPlotService(store, pool, adminPrincipal, opts...)

	api := newAPI(garden, plots, pool, ledger, defaultContentRef, logger)

	mux := http.NewServeMux()
	api.register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /debug/vars", expvar.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", *addr, "admin", adminPrincipal)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
