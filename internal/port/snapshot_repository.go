package port

import (
	"context"

	"github.com/rl1809/catalog/internal/core/domain"
)

type SnapshotRepository interface {
	// GetStats returns stats previously computed for the given store version, ok is false on miss
	GetStats(ctx context.Context, version domain.StoreVersion) (stats domain.Stats, ok bool, err error)

	// SetStats records stats computed for the given store version
	SetStats(ctx context.Context, version domain.StoreVersion, stats domain.Stats) error
}
