package seed

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog/internal/core/domain"
)

var nameRe = regexp.MustCompile(`^[A-Za-z-]+ [A-Za-z]+ [1-9][0-9]{2}$`)

func TestGenerate(t *testing.T) {
	items := Generate(500, NewRand(42))

	require.Len(t, items, 500)
	for i, item := range items {
		assert.Equal(t, int64(i+1), item.ID)
		assert.Regexp(t, nameRe, item.Name)
		assert.True(t, slices.Contains(Categories, item.Category), item.Category)
		assert.GreaterOrEqual(t, item.Price, float64(minPrice))
		assert.LessOrEqual(t, item.Price, float64(maxPrice))
		assert.Equal(t, float64(int(item.Price)), item.Price)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	assert.Equal(t, Generate(20, NewRand(7)), Generate(20, NewRand(7)))
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "items.json")
	items := Generate(50, NewRand(1))

	size, err := WriteFile(path, items)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	parsed, err := domain.ParseItems(data)
	require.NoError(t, err)
	assert.Equal(t, items, parsed)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".items-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")

	_, err := WriteFile(path, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
