package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/trace"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	runOnStart := flag.Bool("run-on-start", false, "analyze the watchlist once at startup")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		os.Exit(1)
	}
	logger.Info(ctx, "FX analyzer starting", "version", version, "mode", cfg.Mode, "addr", cfg.Server.Addr)

	rec, err := initializeRecorder(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open recorder", err)
		os.Exit(1)
	}

	analyzer := initializeAnalyzer(ctx, cfg, rec)
	srv := initializeServer(cfg, analyzer, rec)

	sched, err := initializeScheduler(ctx, cfg, analyzer)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize scheduler", err)
		os.Exit(1)
	}
	if sched != nil {
		sched.Start()
		if *runOnStart {
			go sched.RunNow()
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(cfg.Server.Addr) }()

	select {
	case err := <-errc:
		if err != nil {
			logger.ErrorWithErr(ctx, "HTTP server failed", err)
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down...")
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()

	if sched != nil {
		sched.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "HTTP shutdown incomplete", "error", err)
	}
	if err := rec.Close(); err != nil {
		logger.Warn(shutdownCtx, "Recorder close failed", "error", err)
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown tracer: %v\n", err)
	}
	_ = logger.Shutdown(shutdownCtx)
}
