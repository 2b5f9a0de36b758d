package main

import (
	"context"
	"errors"
	"net/http"

	"billbook/internal/auth"
	"billbook/internal/backend"
	"billbook/internal/cli"
	"billbook/internal/config"
	apphttp "billbook/internal/http"
	"billbook/internal/log"
	"billbook/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize token issuer", err)
	}

	store := res.Store
	svc := apphttp.Services{
		Users:      services.NewUserService(store, auth.NewBcryptHasher(0), tokens, logger),
		Categories: services.NewCategoryService(store, logger),
		Bills:      services.NewBillService(store, store, res.Publisher, logger),
		Budgets:    services.NewBudgetService(store, store, store, logger),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, tokens, store, apphttp.Options{
		CORSAllowedOrigins:     cfg.CORSAllowedOrigins,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
	}, logger)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting billbook server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = res.Cleanup()
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(ctx, done)
	if err := res.Cleanup(); err != nil {
		logger.Warn("Backend cleanup failed", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
