package port

import (
	"context"

	"github.com/rl1809/catalog/internal/core/domain"
)

type ItemSource interface {
	// Version returns the current store version without reading its contents
	Version(ctx context.Context) (domain.StoreVersion, error)

	// ReadItems reads and parses the whole store, returning the version the
	// items were read at
	ReadItems(ctx context.Context) ([]domain.Item, domain.StoreVersion, error)
}
