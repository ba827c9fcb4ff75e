package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"jangbu/internal/amqp"
	"jangbu/internal/cli"
	"jangbu/internal/export"
	apphttp "jangbu/internal/http"
	"jangbu/internal/ledger"
	"jangbu/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	st := cli.OpenStore(logger, cfg)
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	ctx := context.Background()
	repo := ledger.NewRepository(st)
	drafts, err := ledger.NewDraftBuilder(ctx, st)
	if err != nil {
		logger.Error("Failed to restore draft checkpoint", "error", err)
		os.Exit(1)
	}
	consolidator := ledger.NewConsolidator(st, repo)

	// Fold any legacy report sources into the canonical set before
	// serving requests.
	merged, err := consolidator.Run(ctx)
	if err != nil {
		logger.Error("Startup consolidation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Ledger consolidated", "reports", len(merged))

	// AMQP is optional; without it settlements stay local and the
	// worker's backlog scan handles mirroring.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without sync publishing", "error", err)
		} else {
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - settlements will not sync to the spreadsheet")
	}

	settlements := services.NewSettlementService(ledger.NewFinalizer(repo, drafts), publisher)
	defer settlements.Close()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Repo:         repo,
		Drafts:       drafts,
		Consolidator: consolidator,
		Settlements:  settlements,
		Backups:      export.NewService(repo),
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting jangbu server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
