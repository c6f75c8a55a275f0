package port

import (
	"context"

	"github.com/rl1809/catalog/internal/core/domain"
)

type ItemRepository interface {
	// ListItems returns one page of items matching the query
	ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error)

	// GetItem retrieves an item by ID, returns domain.ErrItemNotFound if absent
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
}
