package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"jangbu/internal/amqp"
	"jangbu/internal/cli"
	"jangbu/internal/export"
	"jangbu/internal/ledger"
	"jangbu/internal/sheets"
	gsheet "jangbu/internal/sheets/google"
	sheetmem "jangbu/internal/sheets/memory"
	"jangbu/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting jangbu-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	st := cli.OpenStore(logger, cfg)
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}
	repo := ledger.NewRepository(st)

	// Without a spreadsheet the worker mirrors into an in-memory sink,
	// which keeps the sync pipeline runnable in local development.
	var writer sheets.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = sheetmem.New()
		logger.Info("Google Sheets disabled - mirroring to in-memory sink")
	}

	syncWorker := worker.NewSyncWorker(st, repo, writer, cfg.SyncBatchSize)
	backups := worker.NewBackupRunner(export.NewService(repo), cfg.BackupDir)

	// AMQP is optional; the periodic backlog scan alone still converges.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, relying on backlog scans only", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - relying on backlog scans only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on anything finalized while the worker was down.
	if err := syncWorker.ProcessBacklog(ctx); err != nil {
		logger.Error("Startup backlog sync failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeSettlementSync(gctx, func(msg *amqp.SettlementSyncMessage) error {
				return syncWorker.HandleSyncMessage(gctx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := syncWorker.ProcessBacklog(gctx); err != nil {
					logger.Error("Periodic backlog sync failed", "error", err)
				}
			}
		}
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.BackupSchedule, func() {
		if err := backups.Run(context.Background()); err != nil {
			logger.Error("Scheduled backup failed", "error", err)
		}
	}); err != nil {
		logger.Error("Invalid backup schedule", "error", err, "schedule", cfg.BackupSchedule)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("Backup schedule registered", "schedule", cfg.BackupSchedule, "dir", cfg.BackupDir)

	if err := g.Wait(); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
