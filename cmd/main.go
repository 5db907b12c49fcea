package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"cobrazap/internal/config"
	"cobrazap/internal/entities"
	"cobrazap/internal/infrastructure"
	"cobrazap/internal/interfaces"
	api "cobrazap/internal/interfaces/http"
	"cobrazap/internal/logger"
	"cobrazap/internal/metrics"
	"cobrazap/internal/repository"
	"cobrazap/internal/usecases"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("could not load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.Environment)
	log := logger.Get()
	metrics.Init()

	// Connect to PostgreSQL (runs migrations)
	pgClient, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pgClient.Close()
	log.Info("database connection established")

	// Initialize Repositories
	messageLogRepo := repository.NewMessageLogRepository(pgClient.Pool)
	settingsRepo := repository.NewSettingsRepository(pgClient.Pool)
	installmentRepo := repository.NewInstallmentRepository(pgClient.Pool)

	// Session registry with whatsmeow-backed transports, one credential
	// store per tenant under SessionDir
	factory := interfaces.TransportFactory(func(tenantID string) (interfaces.ChatTransport, error) {
		return infrastructure.NewWhatsAppTransport(cfg.SessionDir, tenantID)
	})
	sessions := infrastructure.NewSessionManager(factory, log)

	// Optional operator alert channel
	var alerter *infrastructure.TelegramAlerter
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		alerter, err = infrastructure.NewTelegramAlerter(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Warnf("telegram alerts disabled: %v", err)
			alerter = nil
		}
	}
	if alerter != nil {
		notify := alerter.Notify
		sessions.OnSessionDown = func(tenantID string, snap entities.SessionSnapshot) {
			notify(fmt.Sprintf("cobrazap: session for tenant %s is %s (%s)",
				tenantID, snap.Status, snap.LastError))
		}
	}

	dispatcher := usecases.NewDispatcher(sessions, cfg.SendTimeout, log)
	notifier := usecases.NewNotifier(settingsRepo, installmentRepo, messageLogRepo, dispatcher, log)

	sched := infrastructure.NewScheduler(notifier, log, cfg.CronSpec)
	if alerter != nil {
		sched.Alert = alerter.Notify
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	// Setup HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	handler := api.NewHandler(sessions, dispatcher, notifier, messageLogRepo, log)
	api.SetupRoutes(r, handler, api.NewMiddleware(cfg.APIToken))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	sched.Stop()
	sessions.Shutdown()
	log.Info("shutdown complete")
}
