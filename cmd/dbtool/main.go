package main

import (
	"context"
	"logistics-route-service/internal/adapters/repositories"
	"logistics-route-service/internal/config"
	"logistics-route-service/internal/platform/db"
	"logistics-route-service/internal/platform/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// dbtool creates the distance cache and reconciliation log tables.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("release").Fatal("load config", zap.Error(err))
	}
	log := logger.Init(cfg.LogMode)
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	log.Info("initializing database schema")
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatal("schema initialization failed", zap.Error(err))
	}
	log.Info("schema ready")
}
