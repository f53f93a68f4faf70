package main

import (
	"context"
	"fmt"

	"github.com/mmynk/profilekeeper/internal/config"
	"github.com/mmynk/profilekeeper/internal/storage"
	"github.com/mmynk/profilekeeper/internal/storage/memory"
	"github.com/mmynk/profilekeeper/internal/storage/postgres"
	"github.com/mmynk/profilekeeper/internal/storage/redisstore"
	"github.com/mmynk/profilekeeper/internal/storage/sqlite"
)

// openStore connects the backend named by storage.driver.
func openStore(ctx context.Context, cfg config.Config) (storage.AccountStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.New(cfg.Storage.SQLite.Path)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.Storage.Postgres.DSN)
	case config.DriverRedis:
		return redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
