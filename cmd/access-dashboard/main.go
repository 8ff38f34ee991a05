package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/config"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/httpapi"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/matching"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/observability"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/report"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/requestflow"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("access-dashboard", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to YAML config (overrides DCM_CONFIG)")
	addr := flags.String("addr", "", "listen address (overrides config)")
	dbPath := flags.String("db", "", "SQLite catalog path (overrides config)")
	redisAddr := flags.String("redis", "", "Redis address for shared selections (overrides config)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if flags.Changed("addr") {
		cfg.Addr = *addr
	}
	if flags.Changed("db") {
		cfg.Catalog.DBPath = *dbPath
	}
	if flags.Changed("redis") {
		cfg.Selection.RedisAddr = *redisAddr
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Telemetry.Environment,
		Version:     version,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
	}()

	metrics := observability.NewMetrics()

	cat, closeCatalog, err := catalog.Open(cfg.Catalog.DBPath, cfg.Catalog.FixturePath, log)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer closeCatalog()
	log.Info("catalog loaded", "datasets", len(cat.All()), "db", cfg.Catalog.DBPath, "fixture", cfg.Catalog.FixturePath)

	matcher, err := matching.NewMatcher(matching.Config{
		Catalog:   cat,
		CacheSize: cfg.Matching.CacheSize,
		Observer:  metrics,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	var selection requestflow.SelectionStore = requestflow.NewMemorySelectionStore()
	if cfg.Selection.RedisAddr != "" {
		rs, err := requestflow.NewRedisSelectionStore(ctx, cfg.Selection.RedisAddr, cfg.Selection.TTL.Duration)
		if err != nil {
			return fmt.Errorf("init redis selection store (%s): %w", cfg.Selection.RedisAddr, err)
		}
		defer rs.Close()
		selection = rs
		log.Info("using redis selection store", "addr", cfg.Selection.RedisAddr)
	}

	sessions, err := requestflow.NewSessionStore(requestflow.Config{
		Matcher:        matcher,
		Selection:      selection,
		Requests:       requestflow.NewRequestStore(time.Now, cfg.Flow.ActionLatency.Duration),
		RecomputeDelay: cfg.Flow.RecomputeDelay.Duration,
		SubmitLatency:  cfg.Flow.SubmitLatency.Duration,
		Logger:         log,
		Observer:       metrics,
	})
	if err != nil {
		return err
	}
	go sessions.RunSweeper(ctx, cfg.Flow.SweepInterval.Duration, cfg.Flow.SessionIdle.Duration)

	var style string
	if cfg.Report.StylePath != "" {
		b, err := os.ReadFile(cfg.Report.StylePath)
		if err != nil {
			return fmt.Errorf("read report style: %w", err)
		}
		style = string(b)
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.NewServer(httpapi.Config{
			Sessions:    sessions,
			Matcher:     matcher,
			Metrics:     metrics,
			PDF:         report.NewChromiumPDFRenderer(cfg.Report.ChromePath, cfg.Report.StylePath),
			ReportStyle: style,
			Logger:      log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("access-dashboard listening", "addr", cfg.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
