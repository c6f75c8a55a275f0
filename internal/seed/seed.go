package seed

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/rl1809/catalog/internal/core/domain"
)

const DefaultCount = 5000

var (
	Categories = []string{"Electronics", "Furniture", "Clothing", "Books", "Toys", "Sports", "Garden"}
	adjectives = []string{"Pro", "Ultra", "Super", "Mega", "Compact", "Ergonomic", "Smart", "Noise-Cancelling", "Wireless"}
	nouns      = []string{"Laptop", "Chair", "Desk", "Monitor", "Headphones", "Speaker", "Watch", "Table", "Lamp", "Phone"}
)

const (
	minPrice = 10
	maxPrice = 5000
)

// Generate returns count items with ids 1..count, whole prices in
// [10, 5000] and names like "Smart Lamp 512".
func Generate(count int, rng *rand.Rand) []domain.Item {
	items := make([]domain.Item, 0, count)
	for i := 1; i <= count; i++ {
		items = append(items, domain.Item{
			ID:       int64(i),
			Name:     fmt.Sprintf("%s %s %d", pick(rng, adjectives), pick(rng, nouns), between(rng, 100, 999)),
			Category: pick(rng, Categories),
			Price:    float64(between(rng, minPrice, maxPrice)),
		})
	}
	return items
}

// NewRand returns a generator seeded with seed, or randomly when seed is 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WriteFile writes items as indented JSON. The file is replaced atomically
// so a server reading it never sees a partial document.
func WriteFile(path string, items []domain.Item) (int64, error) {
	if items == nil {
		items = []domain.Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".items-*.json")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("replace %s: %w", path, err)
	}

	return int64(len(data)), nil
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}

func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}
