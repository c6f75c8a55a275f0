package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog/internal/core/domain"
)

// Mock ItemRepository
type mockItemRepo struct {
	items     []domain.Item
	lastQuery domain.ItemQuery
}

func (m *mockItemRepo) ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error) {
	m.lastQuery = query
	return domain.Paginate(m.items, query), nil
}

func (m *mockItemRepo) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	for _, item := range m.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func TestCatalogService_ListItemsNormalizesQuery(t *testing.T) {
	repo := &mockItemRepo{items: priced(1, 2, 3)}
	svc := NewCatalogService(repo, NewStatsCache(newMockItemSource()))

	page, err := svc.ListItems(context.Background(), domain.ItemQuery{Page: 0, Limit: 500})
	require.NoError(t, err)

	assert.Equal(t, domain.ItemQuery{Page: 1, Limit: domain.MaxPageLimit}, repo.lastQuery)
	assert.Len(t, page.Data, 3)
}

func TestCatalogService_GetItem(t *testing.T) {
	repo := &mockItemRepo{items: priced(9, 19)}
	svc := NewCatalogService(repo, NewStatsCache(newMockItemSource()))
	ctx := context.Background()

	item, err := svc.GetItem(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 19.0, item.Price)

	_, err = svc.GetItem(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = svc.GetItem(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCatalogService_Stats(t *testing.T) {
	source := newMockItemSource(priced(3, 5)...)
	svc := NewCatalogService(&mockItemRepo{}, NewStatsCache(source))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Total: 2, AveragePrice: 4}, stats)
	assert.Equal(t, uint64(1), svc.CacheMetrics().Misses)
}
