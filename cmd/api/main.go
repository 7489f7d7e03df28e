package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pageza/larder/backend/config"
	"github.com/pageza/larder/backend/internal/api"
	"github.com/pageza/larder/backend/internal/cache"
	"github.com/pageza/larder/backend/internal/database"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/middleware"
	"github.com/pageza/larder/backend/internal/observability"
	"github.com/pageza/larder/backend/internal/server"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	shutdownTracing := observability.InitOTel(ctx, log, cfg)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}()

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db, log); err != nil {
			log.Fatal("failed to migrate database", "error", err)
		}
	}

	rdb, err := database.NewRedisClient(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}

	store, mediaRoot, err := newImageStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize image storage", "driver", cfg.StorageDriver, "error", err)
	}

	images := service.NewImageService(store, log)
	validator := service.NewRecipeValidator(db)
	users := service.NewUserService(db, images, log)
	services := api.Services{
		Users:     users,
		Recipes:   service.NewRecipeService(db, validator, images, log),
		Relations: service.NewRelationService(db, validator, log),
		Shopping:  service.NewShoppingService(db, log),
		Reference: service.NewReferenceService(db, cache.New(rdb, cfg.CacheTTL, log), log),
		Images:    images,
	}

	srv, err := server.New(cfg, db, log, server.Deps{
		Services: services,
		Auth:     middleware.NewAuthenticator(service.NewAuthService(cfg.JWTSecret), users),
		Limiters: api.Limiters{
			RecipeCreate: middleware.NewRecipeCreationRateLimiter(rdb, cfg.RecipeCreateLimit, log),
			RecipeUpdate: middleware.NewRecipeModificationRateLimiter(rdb, cfg.RecipeUpdateLimit, log),
		},
		MediaRoot: mediaRoot,
	})
	if err != nil {
		log.Fatal("failed to build server", "error", err)
	}

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-errChan:
		if err != nil {
			log.Error("server error", "error", err)
		}
	case sig := <-quit:
		log.Info("received signal", "signal", sig.String())
	}

	log.Info("shutting down server")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}

// newImageStore returns the configured store and, for local storage, the
// directory the server should expose.
func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, string, error) {
	switch cfg.StorageDriver {
	case config.StorageLocal:
		store, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return nil, "", err
		}
		return store, store.Root(), nil
	case config.StorageS3:
		s3cfg, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		return storage.NewS3Store(s3cfg), "", nil
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
