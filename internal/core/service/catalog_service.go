package service

import (
	"context"
	"fmt"

	"github.com/rl1809/catalog/internal/core/domain"
	"github.com/rl1809/catalog/internal/port"
)

type CatalogService struct {
	items port.ItemRepository
	stats *StatsCache
}

func NewCatalogService(items port.ItemRepository, stats *StatsCache) *CatalogService {
	return &CatalogService{
		items: items,
		stats: stats,
	}
}

func (s *CatalogService) ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error) {
	query = query.Normalize()

	page, err := s.items.ListItems(ctx, query)
	if err != nil {
		return domain.ItemPage{}, fmt.Errorf("list items: %w", err)
	}

	return page, nil
}

func (s *CatalogService) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	if id <= 0 {
		return domain.Item{}, domain.ErrItemNotFound
	}

	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}

	return *item, nil
}

func (s *CatalogService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.stats.Stats(ctx)
}

func (s *CatalogService) CacheMetrics() CacheMetrics {
	return s.stats.Metrics()
}
