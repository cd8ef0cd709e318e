/*
Package main is the entry point for the roomchat server.

It is responsible for loading configuration, initializing the global logging system,
connecting the history and account stores, wiring the room coordinator with the
websocket gateway, setting up the HTTP server, and gracefully handling operating
system interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"roomchat/internal/app/auth"
	"roomchat/internal/app/chat"
	"roomchat/internal/app/db"
	"roomchat/internal/app/history"
	"roomchat/internal/app/storage"
	"roomchat/internal/app/user"
	"roomchat/internal/configs"
	"roomchat/internal/handler"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/pow"
)

const (
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Bool("database", cfg.DatabaseDSN != "").
		Bool("archive", cfg.ArchiveEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancelStartup := context.WithTimeout(ctx, startupTimeout)
	defer cancelStartup()

	// History and accounts live in Postgres when a DSN is configured.
	// Development runs without one fall back to process memory.
	var (
		store    history.Store
		accounts auth.UserRepository
		closeDB  = func() {}
	)
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(startupCtx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect to database")
		}
		closeDB = pool.Close
		store = db.NewMessageRepository(pool)
		accounts = db.NewUserRepository(pool)
	} else {
		logx.Warn("DATABASE_URL not set, using in-memory stores")
		store = history.NewMemoryStore()
		accounts = user.NewMemoryRepository()
	}
	defer closeDB()

	var archive storage.StorageService
	if cfg.ArchiveEnabled() {
		archive, err = storage.NewStorageService(startupCtx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize archive storage")
		}
	}

	powManager := pow.NewPoWManager(cfg.PowDifficulty)
	defer powManager.Stop()

	authService := auth.NewService(accounts, cfg.JWTSecret)

	// Initialize the room coordinator and the websocket gateway on top of it
	manager := chat.NewManager()
	dispatcher := chat.NewDispatcher(manager)
	gateway := chat.NewGateway(manager, dispatcher, store, authService, cfg.AuthTimeout)

	deps := &handler.AppDeps{
		Config:  cfg,
		Manager: manager,
		Gateway: gateway,
		Auth:    authService,
		History: store,
		PoW:     powManager,
		Storage: archive,
	}

	// Setup HTTP server and routes
	router, stopLimiters := handler.Router(deps)
	defer stopLimiters()

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("roomchat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	// Hijacked websocket connections are not tracked by the HTTP server,
	// so the gateway closes them and waits for their sweeps.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "HTTP server shutdown did not complete")
	}

	if err := gateway.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Gateway shutdown did not complete")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
