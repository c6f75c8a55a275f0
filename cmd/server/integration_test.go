package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog/internal/adapter/handler"
	"github.com/rl1809/catalog/internal/config"
	"github.com/rl1809/catalog/internal/core/domain"
	"github.com/rl1809/catalog/internal/seed"
)

type testEnv struct {
	app       *app
	server    *httptest.Server
	storePath string
}

func setupTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	mux := http.NewServeMux()
	handler.NewHTTPHandler(a.catalog).Register(mux)
	srv := httptest.NewServer(handler.Chain(mux, cfg.Server.CORSOrigin))
	t.Cleanup(srv.Close)

	return &testEnv{app: a, server: srv, storePath: cfg.Store.Path}
}

func seededConfig(t *testing.T, count int, rngSeed uint64) (config.Config, []domain.Item) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Store.Path = filepath.Join(t.TempDir(), "items.json")

	items := seed.Generate(count, seed.NewRand(rngSeed))
	_, err := seed.WriteFile(cfg.Store.Path, items)
	require.NoError(t, err)
	return cfg, items
}

func (e *testEnv) stats(t *testing.T) domain.Stats {
	t.Helper()
	resp, err := http.Get(e.server.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats domain.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	return stats
}

func meanPrice(items []domain.Item) float64 {
	var sum float64
	for _, item := range items {
		sum += item.Price
	}
	return sum / float64(len(items))
}

func TestIntegration_SeededCatalog(t *testing.T) {
	cfg, items := seededConfig(t, seed.DefaultCount, 11)
	env := setupTestEnv(t, cfg)

	stats := env.stats(t)
	assert.Equal(t, seed.DefaultCount, stats.Total)
	assert.InDelta(t, meanPrice(items), stats.AveragePrice, 1e-9)

	resp, err := http.Get(env.server.URL + "/api/items?page=250&limit=20")
	require.NoError(t, err)
	defer resp.Body.Close()

	var page domain.ItemPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 250, page.Meta.TotalPages)
	require.Len(t, page.Data, 20)
	assert.Equal(t, int64(4981), page.Data[0].ID)
}

func TestIntegration_ConcurrentStaleTransition(t *testing.T) {
	cfg, _ := seededConfig(t, 1000, 5)
	env := setupTestEnv(t, cfg)

	before := env.stats(t)

	// Same item count, new prices
	next := seed.Generate(1000, seed.NewRand(6))
	_, err := seed.WriteFile(env.storePath, next)
	require.NoError(t, err)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(env.storePath, later, later))

	const callers = 40
	results := make([]domain.Stats, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.stats(t)
		}(i)
	}
	wg.Wait()

	want := domain.Stats{Total: 1000, AveragePrice: meanPrice(next)}
	for _, got := range results {
		assert.Equal(t, want.Total, got.Total)
		assert.InDelta(t, want.AveragePrice, got.AveragePrice, 1e-9)
	}
	assert.NotEqual(t, before.AveragePrice, want.AveragePrice)
	assert.Equal(t, uint64(2), env.app.stats.Metrics().Refreshes)
}

func TestIntegration_RedisSharedSnapshots(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer rdb.Close()

	cfg := config.Defaults()
	cfg.Store.Path = filepath.Join(t.TempDir(), uuid.NewString(), "items.json")
	_, err := seed.WriteFile(cfg.Store.Path, seed.Generate(100, seed.NewRand(9)))
	require.NoError(t, err)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = addr
	cfg.Redis.SnapshotTTLSeconds = 60

	// Two servers over the same store: the second reuses the first's result
	first := setupTestEnv(t, cfg)
	second := setupTestEnv(t, cfg)

	assert.Equal(t, first.stats(t), second.stats(t))
	assert.Equal(t, uint64(1), first.app.stats.Metrics().Refreshes)
	assert.Equal(t, uint64(0), second.app.stats.Metrics().Refreshes)
	assert.Equal(t, uint64(1), second.app.stats.Metrics().SnapshotHits)
}
