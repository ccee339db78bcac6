package main

import (
	"context"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"modaccess/internal/app"
	"modaccess/internal/config"
	"modaccess/internal/http"
	"modaccess/internal/infra/catalog"
	"modaccess/internal/infra/sequence"
	"modaccess/internal/repo/postgres"
	"modaccess/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	store, err := postgres.NewStore(cfg)
	if err != nil {
		logger.Fatal("failed to init store", zap.Error(err))
	}
	defer store.Close()

	migrator, err := app.NewMigrator(store.Pool, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("failed to init migrator", zap.Error(err))
	}
	if err := migrator.Run(context.Background()); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	var catalogSource usecase.Catalog = postgres.NewCatalogRepo(store.Pool)
	if cfg.CatalogMode == "static" {
		catalogSource = catalog.NewStatic(catalog.Seed())
	}

	var sequencer usecase.Sequencer
	if cfg.RedisAddr != "" {
		sequencer, err = sequence.NewRedis(sequence.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.ProtocolPrefix,
		})
		if err != nil {
			logger.Fatal("failed to init redis sequencer", zap.Error(err))
		}
	} else {
		logger.Warn("REDIS_ADDR not set; protocol sequence is per-process only")
		sequencer = sequence.NewMemory(sequence.MemoryConfig{Prefix: cfg.ProtocolPrefix})
	}

	service := usecase.NewAccessService(
		postgres.NewRequestRepo(store.Pool),
		postgres.NewHistoryRepo(store.Pool),
		catalogSource,
		sequencer,
	)

	srv := http.NewServer(cfg, http.ServerDeps{
		Service: service,
		Catalog: catalogSource,
		Logger:  logger,
	})
	if err := srv.Run(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
