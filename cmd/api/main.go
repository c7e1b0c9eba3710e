package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wcfantasy/backend/internal/app"
	"github.com/wcfantasy/backend/internal/config"
	"github.com/wcfantasy/backend/internal/observability"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)

	logger, flushLogs, err := observability.InitBetterStackLogger(cfg, logger)
	if err != nil {
		logger.Error("init log shipping", "error", err)
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init tracing", "error", err)
		os.Exit(1)
	}

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init profiler", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	exitCode := 0
	if len(os.Args) > 1 && strings.EqualFold(os.Args[1], "seed") {
		exitCode = runSeed(application, logger)
	} else {
		runPoller(application, cfg, logger)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Stop(shutdownCtx); err != nil {
		logger.Error("app shutdown failed", "error", err)
		exitCode = 1
	}
	if err := observability.StopPprofServer(pprofSrv, logger, 5*time.Second); err != nil {
		logger.Error("pprof shutdown failed", "error", err)
	}
	if err := stopProfiler(); err != nil {
		logger.Error("profiler shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", "error", err)
	}
	if err := flushLogs(shutdownCtx); err != nil {
		logger.Error("log flush failed", "error", err)
	}

	os.Exit(exitCode)
}

// runSeed loads teams, squads, fixtures and rounds from the tournament feed
// once, then returns.
func runSeed(application *app.App, logger *logging.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("tournament seeding starting")
	if err := application.Seeder.SeedTournament(ctx); err != nil {
		logger.Error("tournament seeding failed", "error", err)
		return 1
	}
	logger.Info("tournament seeding finished")

	return 0
}

func runPoller(application *app.App, cfg config.Config, logger *logging.Logger) {
	application.Start()
	logger.Info("poll scheduler started", "interval", cfg.PollInterval.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutdown signal received")
}
