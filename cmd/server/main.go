package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyhub/internal/server/api"
	"studyhub/internal/server/config"
	"studyhub/internal/server/database"
	"studyhub/internal/server/service"
	"studyhub/internal/server/session"
	"studyhub/internal/server/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"storage_backend", cfg.StorageBackend,
		"session_store", cfg.SessionStore,
		"session_ttl", cfg.SessionTTL,
		"max_file_size", cfg.MaxFileSize,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize blob storage
	store, err := newBlobStore(cfg)
	if err != nil {
		slog.Error("failed to create blob store", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureReady(ctx); err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("blob storage initialized", "backend", cfg.StorageBackend)

	repo := database.NewRepository(db)

	// Sessions
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	var sweeper *session.Sweeper

	var sessionStore session.Store
	switch cfg.SessionStore {
	case config.SessionPostgres:
		sessionStore = session.NewPostgresStore(repo)
		sweeper = session.NewSweeper(repo, cfg.SessionSweepInterval)
		sweeper.Start(sweepCtx)
	default:
		sessionStore = session.NewMemoryStore(cfg.SessionCacheSize, cfg.SessionTTL)
	}
	sessions := session.NewManager(sessionStore, cfg.SessionTTL)

	// Services
	hasher := service.NewHasher(cfg.BcryptCost)
	accounts := service.NewAccountService(repo, hasher, sessions)
	files := service.NewFileService(repo, store)

	// Setup HTTP router
	handler := api.NewHandler(accounts, files, db, cfg)
	e := api.SetupRouter(handler, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop session sweeper
	sweepCancel()
	if sweeper != nil {
		sweeper.Wait()
	}

	slog.Info("server exited cleanly")
}

func newBlobStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageMinio:
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket)
	default:
		return storage.NewFileSystemStore(cfg.StoragePath), nil
	}
}
