package main

import (
	"context"

	"billbook/internal/amqp"
	"billbook/internal/backend"
	"billbook/internal/cli"
	"billbook/internal/config"
	"billbook/internal/log"
	"billbook/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting billbook-worker")

	ctx := context.Background()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	// The worker only reads bills; it never publishes events itself.
	backendCfg.AMQPURL = ""

	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}
	defer res.Cleanup()

	ledger, err := factory.CreateLedger(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize ledger", err)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(res.Store, ledger, logger)
	runner := worker.NewRunner(amqpClient, exporter.HandleBillEvent, logger)

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := runner.Stop(ctx); err != nil {
			logger.Error("Worker stop error", log.FieldError, err)
		}
	})

	if err := runner.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start worker", err)
	}

	select {
	case <-shutdownCtx.Done():
		<-done
	case <-runner.Done():
		if err := runner.Err(); err != nil {
			logger.Error("Bill event consumption stopped", log.FieldError, err)
		}
	}
	logger.Info("billbook-worker stopped")
}
