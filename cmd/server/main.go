package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tribeboard/internal/cloudsync"
	"tribeboard/internal/config"
	"tribeboard/internal/container"
	"tribeboard/internal/handlers"
	"tribeboard/internal/logging"
	"tribeboard/internal/security"
	"tribeboard/internal/service"
)

const (
	// authRateLimit bounds sign-in, join and accept attempts per client per minute
	authRateLimit = 10

	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 15 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Open the store, falling back to local and then in-memory storage
	store, err := container.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.AppleHashKey == "" {
		logger.Warn("APPLE_HASH_KEY is not set; Apple user ids are hashed without a key")
	}

	// Initialize services
	apple := service.NewAppleVerifier(service.AppleConfig{
		ClientID:     cfg.AppleClientID,
		ClientSecret: cfg.AppleClientSecret,
		KeysURL:      cfg.AppleKeysURL,
	}, &http.Client{Timeout: 10 * time.Second})
	authService, err := service.NewAuthService(store.DB, apple, cfg.AppleHashKey, cfg.SessionDuration, logger)
	if err != nil {
		return err
	}
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, logger)
	if err != nil {
		return err
	}
	familyService := service.NewFamilyService(store.DB, emailService, logger)
	engine := cloudsync.NewEngine(store.DB, store.Cloud, logger)
	limiter := security.NewRateLimiter(authRateLimit, time.Minute)

	// Initialize handlers
	handler := handlers.NewRouter(handlers.Handlers{
		Middleware: handlers.NewMiddleware(authService, limiter, logger),
		Auth:       handlers.NewAuthHandler(authService, logger),
		Families:   handlers.NewFamilyHandler(familyService, logger),
		Sync:       handlers.NewSyncHandler(engine, logger),
		Health:     handlers.NewHealthHandler(store.DB, string(store.Mode), store.CloudEnabled(), logger),
	}, logger)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return engine.Run(gctx, cfg.SyncInterval)
	})
	g.Go(func() error {
		return limiter.Run(gctx, time.Hour)
	})
	g.Go(func() error {
		return cleanupExpiredSessions(gctx, authService, logger)
	})
	return g.Wait()
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, logger *zap.Logger) error {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := authService.CleanupExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				logger.Error("failed to clean up expired sessions", zap.Error(err))
			}
		}
	}
}
