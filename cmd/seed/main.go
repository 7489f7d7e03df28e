package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pageza/larder/backend/config"
	"github.com/pageza/larder/backend/internal/cache"
	"github.com/pageza/larder/backend/internal/database"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/seed"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/validation"
)

func main() {
	path := flag.String("file", "seed/reference.yaml", "YAML file with tags and ingredients")
	flag.Parse()

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

	if err := run(cfg, log, *path); err != nil {
		log.Error("seeding failed", "file", *path, "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	v, err := validation.New()
	if err != nil {
		return err
	}
	doc, err := seed.Load(f, v)
	if err != nil {
		return err
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db, log); err != nil {
			return err
		}
	}

	rdb, err := database.NewRedisClient(cfg, log)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	ref := service.NewReferenceService(db, cache.New(rdb, cfg.CacheTTL, log), log)
	_, err = seed.Apply(ctx, ref, doc, log)
	return err
}
