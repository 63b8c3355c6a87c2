package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/clanpulse/internal/adapters/http/api"
	"github.com/okian/clanpulse/internal/adapters/http/site"
	"github.com/okian/clanpulse/internal/adapters/http/swagger"
	"github.com/okian/clanpulse/internal/adapters/wom"
	service "github.com/okian/clanpulse/internal/app"
	"github.com/okian/clanpulse/internal/config"
	"github.com/okian/clanpulse/pkg/logger"
	"github.com/okian/clanpulse/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	writeTimeoutSlack         = 10 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, client, err := newService(cfg, log)
	if err != nil {
		log.Error(ctx, "invalid configuration", logger.Error(err))
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.RequestTimeout() + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.Int("group_id", cfg.GroupID),
			logger.Float64("rate_limit_per_minute", client.RatePerMinute()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
}

// newService builds the WOM client, its cache and the clan service from cfg.
func newService(cfg *config.Config, log logger.Logger) (*service.Service, *wom.Client, error) {
	client := wom.New(
		wom.WithBaseURL(cfg.WOMBaseURL),
		wom.WithAPIKey(cfg.WOMAPIKey),
		wom.WithUserAgent(cfg.UserAgent),
		wom.WithTimeout(cfg.RequestTimeout()),
		wom.WithRateLimit(cfg.RateLimitPerMinute),
		wom.WithLogger(log.Named("wom")),
	)
	gateway := wom.NewCached(client,
		wom.WithMembersTTL(cfg.MembersTTL()),
		wom.WithGainsTTL(cfg.GainsTTL()),
		wom.WithDetailsTTL(cfg.DetailsTTL()),
	)

	opts, err := service.ConfigOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts,
		service.WithGateway(gateway),
		service.WithRateLimit(client.RatePerMinute()),
		service.WithLogger(log.Named("service")),
	)
	return service.New(opts...), client, nil
}

// newHandler mounts the API, docs and dashboard routes.
func newHandler(ctx context.Context, svc *service.Service) http.Handler {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	return api.RequestIDMiddleware(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
