package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogs(t *testing.T) map[string]CatalogRepo {
	badgerCat, err := NewBadgerCatalog(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { badgerCat.Close() })

	return map[string]CatalogRepo{
		"memory": NewMemoryCatalog(),
		"badger": badgerCat,
	}
}

func TestCatalogPutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, cat := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			entry := RecordEntry{
				Name:    "Level_01_20240101_120000",
				Path:    "tas/Level_01_20240101_120000.tas",
				MapName: "Level_01",
				Frames:  1200,
				Sectors: 3,
				Flags:   1,
				SavedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			}
			require.NoError(t, cat.Put(ctx, entry))

			got, ok, err := cat.Get(ctx, entry.Name)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, entry, got)

			_, ok, err = cat.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, cat.Delete(ctx, entry.Name))
			_, ok, err = cat.Get(ctx, entry.Name)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCatalogListSorted(t *testing.T) {
	ctx := context.Background()
	for name, cat := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []string{"c", "a", "b"} {
				require.NoError(t, cat.Put(ctx, RecordEntry{Name: n}))
			}
			list, err := cat.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, "a", list[0].Name)
			assert.Equal(t, "b", list[1].Name)
			assert.Equal(t, "c", list[2].Name)
		})
	}
}

func TestCatalogRejectsEmptyName(t *testing.T) {
	for name, cat := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cat.Put(context.Background(), RecordEntry{}))
		})
	}
}

func TestBadgerCatalogClosed(t *testing.T) {
	cat, err := NewBadgerCatalog(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, cat.Close())
	require.NoError(t, cat.Close(), "повторное закрытие безопасно")

	assert.Error(t, cat.Put(context.Background(), RecordEntry{Name: "x"}))
}
