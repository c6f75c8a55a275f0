package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/rl1809/catalog/internal/adapter/storage"
	"github.com/rl1809/catalog/internal/config"
	"github.com/rl1809/catalog/internal/core/domain"
	"github.com/rl1809/catalog/internal/core/service"
	"github.com/rl1809/catalog/internal/port"
)

// app holds the wired services and the connections they depend on.
type app struct {
	store   *storage.JSONFileStore
	stats   *service.StatsCache
	catalog *service.CatalogService
	closers []func() error

	// mirror serves listings when store.driver is not "file". It is
	// reloaded from the store file by Warm.
	mirror        *storage.SQLStore
	mirrorMu      sync.Mutex
	mirrorVersion domain.StoreVersion
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{store: storage.NewJSONFileStore(cfg.Store.Path)}

	opts := []service.StatsCacheOption{service.WithDiagnostics(cfg.Cache.Diagnostics)}

	// Initialize Redis
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		log.Info("connected to redis")

		opts = append(opts, service.WithSnapshots(storage.NewRedisAdapter(rdb, absPath(cfg.Store.Path), cfg.SnapshotTTL())))
	}

	var items port.ItemRepository = a.store

	// Initialize SQL mirror
	if cfg.Store.Driver != config.DriverFile {
		db, err := openDB(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		a.mirror = storage.NewSQLStore(db)
		if err := a.mirror.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		items = a.mirror
	}

	a.stats = service.NewStatsCache(a.store, opts...)
	a.catalog = service.NewCatalogService(items, a.stats)
	return a, nil
}

// Warm refreshes the stats cache and brings the SQL mirror, if any, up to
// the store file so listings and stats describe the same catalog.
func (a *app) Warm(ctx context.Context) error {
	if err := a.stats.Warm(ctx); err != nil {
		return err
	}
	if a.mirror == nil {
		return nil
	}
	return a.syncMirror(ctx)
}

func (a *app) syncMirror(ctx context.Context) error {
	a.mirrorMu.Lock()
	defer a.mirrorMu.Unlock()

	current, err := a.store.Version(ctx)
	if err != nil {
		return err
	}
	if current.Equal(a.mirrorVersion) {
		return nil
	}

	items, version, err := a.store.ReadItems(ctx)
	if err != nil {
		return err
	}
	if err := a.mirror.ImportItems(ctx, items); err != nil {
		return fmt.Errorf("sync mirror: %w", err)
	}
	a.mirrorVersion = version

	log.WithFields(log.Fields{
		"items":   len(items),
		"size":    humanize.Bytes(uint64(version.Size)),
		"version": version.String(),
	}).Info("SQL mirror synced from item store")
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("close")
		}
	}
	a.closers = nil
}

func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	log.Infof("connected to %s", driver)
	return db, nil
}
