// Package main wires together the website change monitor service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/api"
	"github.com/JakeFAU/sitewatch/internal/clock/system"
	"github.com/JakeFAU/sitewatch/internal/config"
	"github.com/JakeFAU/sitewatch/internal/crawler"
	"github.com/JakeFAU/sitewatch/internal/fetch"
	"github.com/JakeFAU/sitewatch/internal/hash/sha256"
	"github.com/JakeFAU/sitewatch/internal/id/uuid"
	"github.com/JakeFAU/sitewatch/internal/logging"
	"github.com/JakeFAU/sitewatch/internal/notify"
	"github.com/JakeFAU/sitewatch/internal/pipeline"
	"github.com/JakeFAU/sitewatch/internal/progress"
	"github.com/JakeFAU/sitewatch/internal/progress/sinks"
	"github.com/JakeFAU/sitewatch/internal/scheduler"
	"github.com/JakeFAU/sitewatch/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()
	hasher := sha256.New()

	st, err := store.New(store.Config{
		DataDir:       cfg.Storage.DataDir,
		RecentChanges: cfg.Storage.RecentChanges,
	}, idGen, clock, logger.Named("store"))
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}

	delayMin, delayMax := cfg.Crawler.DelayBounds()
	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.Crawler.Timeout(),
		DelayMin:  delayMin,
		DelayMax:  delayMax,
	}, logger.Named("fetch"))

	archive := pipeline.NewArchive(cfg.Storage.SnapshotDir, cfg.Storage.AlertDir, cfg.Storage.AttachmentDir)
	pipe := pipeline.New(st, fetcher, hasher, clock, archive, logger.Named("pipeline"))

	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		logger.Fatal("progress metrics init failed", zap.Error(err))
	}
	sink := progress.Multi{
		sinks.NewStoreSink(st),
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	}

	cr := crawler.New(st, pipe, fetcher, archive, clock, sink, logger.Named("crawler"))
	notifier := notify.NewLog(logger.Named("notify"))
	sched := scheduler.New(st, cr, notifier, clock, sink, cfg.Notify.DefaultRecipient, logger.Named("scheduler"))

	if err := sched.Start(cfg.Scheduler.DigestHour); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	apiServer := api.NewServer(st, sched, cr, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
