package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ibrahimkeyboad/swiftportal/internal/adapter/handler"
	"github.com/ibrahimkeyboad/swiftportal/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/swiftportal/internal/adapter/storage"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/config"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/prevalidation"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/worker"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/workflow"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("❌ Configuration invalid", "error", err)
		os.Exit(1)
	}

	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}

	// Pre-validation client stack: signer -> token cache -> client.
	signer, err := prevalidation.NewSigner(
		cfg.Prevalidation.ConsumerKey,
		cfg.Prevalidation.SigningKeyPath,
		cfg.Prevalidation.SigningCertPath,
	)
	if err != nil {
		slog.Error("❌ Signing material unavailable", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.Prevalidation.RequestTimeout}
	tokenCache := prevalidation.NewTokenCache(
		cfg.Prevalidation.TokenURL,
		cfg.Prevalidation.RevokeURL,
		cfg.Prevalidation.ConsumerKey,
		cfg.Prevalidation.ConsumerSecret,
		signer,
		httpClient,
	)
	prevalClient := prevalidation.NewClient(cfg.Prevalidation.BaseURL, tokenCache, httpClient)

	txRepo := storage.NewTransactionRepository(dbPool)
	auditRepo := storage.NewAuditRepository(dbPool)
	auditRecorder := worker.StartAuditRecorder(auditRepo)

	flow := workflow.New(txRepo, auditRecorder, prevalClient, cfg.TransactionCeiling, cfg.Prevalidation.SigningIdentity)
	txHandler := &handler.TransactionHandler{Flow: flow}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/v1", middleware.Protected(cfg.SessionSecret))

	api.Post("/transactions", middleware.Idempotency(dbPool), txHandler.Create)
	api.Get("/transactions", txHandler.List)
	api.Get("/transactions/:id", txHandler.Get)

	requireEmployee := middleware.RequireRole(domain.RoleEmployee)
	api.Post("/transactions/:id/verify", requireEmployee, txHandler.Verify)
	api.Post("/transactions/:id/reject", requireEmployee, txHandler.Reject)
	api.Post("/transactions/:id/submit", requireEmployee, txHandler.Submit)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("🛑 Shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	// Best effort: invalidate the external token and flush queued audit
	// entries before the pool goes away.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := tokenCache.Revoke(ctx); err != nil {
		slog.Warn("Token revocation on shutdown failed", "error", err)
	}
	cancel()
	auditRecorder.Close()

	dbPool.Close()
	slog.Info("✅ Database connection closed")

	slog.Info("👋 Server exited successfully")
}
