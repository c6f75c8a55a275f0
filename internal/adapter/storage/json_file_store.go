package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/rl1809/catalog/internal/core/domain"
)

// JSONFileStore reads the catalog from a JSON array on disk. The store is
// never written by the server.
type JSONFileStore struct {
	path string

	mu       sync.RWMutex
	snapshot *itemSnapshot
}

// itemSnapshot is the parsed catalog at one store version, sorted by ID.
type itemSnapshot struct {
	version domain.StoreVersion
	items   []domain.Item
	byID    map[int64]int
}

func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

func (s *JSONFileStore) Path() string {
	return s.path
}

func (s *JSONFileStore) Version(ctx context.Context) (domain.StoreVersion, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoreVersion{}, err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return domain.StoreVersion{}, s.statError(err)
	}

	return versionOf(info), nil
}

func (s *JSONFileStore) ReadItems(ctx context.Context) ([]domain.Item, domain.StoreVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StoreVersion{}, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, domain.StoreVersion{}, s.statError(err)
	}
	defer f.Close()

	// Stat the open handle so the version matches the bytes read.
	info, err := f.Stat()
	if err != nil {
		return nil, domain.StoreVersion{}, fmt.Errorf("stat %s: %w", s.path, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.StoreVersion{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	items, err := domain.ParseItems(data)
	if err != nil {
		return nil, domain.StoreVersion{}, fmt.Errorf("parse %s: %w", s.path, err)
	}

	return items, versionOf(info), nil
}

func (s *JSONFileStore) ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return domain.ItemPage{}, err
	}

	return domain.Paginate(snap.items, query), nil
}

func (s *JSONFileStore) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	idx, ok := snap.byID[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}

	item := snap.items[idx]
	return &item, nil
}

// load returns the parsed catalog, reparsing only when the store version
// has moved.
func (s *JSONFileStore) load(ctx context.Context) (*itemSnapshot, error) {
	version, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil && snap.version.Equal(version) {
		return snap, nil
	}

	items, version, err := s.ReadItems(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	byID := make(map[int64]int, len(items))
	for i, item := range items {
		byID[item.ID] = i
	}
	snap = &itemSnapshot{version: version, items: items, byID: byID}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"path":  s.path,
		"items": len(snap.items),
		"size":  humanize.Bytes(uint64(version.Size)),
	}).Info("item store loaded")

	return snap, nil
}

func (s *JSONFileStore) statError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrStoreNotFound, s.path)
	}
	return fmt.Errorf("stat %s: %w", s.path, err)
}

func versionOf(info os.FileInfo) domain.StoreVersion {
	return domain.StoreVersion{
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
}
