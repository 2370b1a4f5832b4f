package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryCatalog реализует CatalogRepo в памяти.
// Используется, когда каталог на диске не настроен, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске!
type MemoryCatalog struct {
	mu   sync.RWMutex
	data map[string]RecordEntry
}

// NewMemoryCatalog создает каталог в памяти
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{data: make(map[string]RecordEntry)}
}

func (c *MemoryCatalog) Put(ctx context.Context, entry RecordEntry) error {
	if entry.Name == "" {
		return fmt.Errorf("пустое имя записи")
	}

	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[entry.Name] = entry
	return nil
}

func (c *MemoryCatalog) Get(ctx context.Context, name string) (RecordEntry, bool, error) {
	select {
	case <-ctx.Done():
		return RecordEntry{}, false, ctx.Err()
	default:
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[name]
	return e, ok, nil
}

func (c *MemoryCatalog) Delete(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, name)
	return nil
}

func (c *MemoryCatalog) List(ctx context.Context) ([]RecordEntry, error) {
	c.mu.RLock()
	out := make([]RecordEntry, 0, len(c.data))
	for _, e := range c.data {
		out = append(out, e)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *MemoryCatalog) Close() error { return nil }
