package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forex-journal-go/internal/config"
	"forex-journal-go/internal/database"
	"forex-journal-go/internal/logger"
	"forex-journal-go/internal/notify"
	"forex-journal-go/internal/service"
	"forex-journal-go/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A local .env is optional; environment variables still override
	// the config file either way.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookClient(&cfg.Notify, log)
		log.Info("Alert webhook enabled", zap.String("url", cfg.Notify.WebhookURL))
	}

	svc := service.New(log, &cfg, store.New(db, log), notifier)
	apiHandler := NewAPIHandler(log, svc)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/trades", apiHandler.SaveTradeHandler)
	mux.HandleFunc("/api/results", apiHandler.LogResultHandler)
	mux.HandleFunc("/api/insights", apiHandler.InsightsHandler)
	mux.HandleFunc("/api/alerts", apiHandler.AlertsHandler)
	mux.HandleFunc("/health", apiHandler.HealthHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting journal server", zap.String("address", addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Server failed", zap.Error(err))
	}
	log.Info("Server has been shut down.")
}
