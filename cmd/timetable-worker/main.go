package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/bootstrap"
	"github.com/noah-isme/timetable-sync/internal/service"
	"github.com/noah-isme/timetable-sync/pkg/config"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
	"github.com/noah-isme/timetable-sync/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	logr = logr.Named("worker")

	container, err := bootstrap.New(cfg, logr)
	if err != nil {
		logr.Fatal("failed to wire dependencies", zap.Error(err))
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronLogger := logger.NewCronLogger(logr)
	scheduler := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := scheduler.AddFunc(cfg.Sync.Cron, func() { runCycle(ctx, container.Sync, logr) }); err != nil {
		logr.Fatal("invalid sync schedule", zap.String("cron", cfg.Sync.Cron), zap.Error(err))
	}

	runCycle(ctx, container.Sync, logr)
	scheduler.Start()
	logr.Info("sync scheduler started", zap.String("cron", cfg.Sync.Cron))

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logr.Info("sync scheduler stopped")
}

func runCycle(ctx context.Context, sync *service.SyncService, logr *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	report, err := sync.RunCycle(ctx)
	if err != nil {
		if errors.Is(err, appErrors.ErrCycleRunning) {
			logr.Info("sync cycle skipped, previous cycle still running")
			return
		}
		logr.Error("sync cycle failed", zap.Error(err))
		return
	}
	logr.Info("sync cycle finished",
		zap.String("cycle_id", report.CycleID),
		zap.Int("documents", report.Documents),
		zap.Int("groups_reconciled", report.GroupsReconciled),
		zap.Int("groups_failed", len(report.GroupsFailed)),
		zap.Int("groups_changed", len(report.GroupsChanged)),
		zap.Duration("duration", report.Duration()),
	)
}
