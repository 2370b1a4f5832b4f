package storage

import (
	"context"
	"time"
)

// RecordEntry метаданные сохранённой записи TAS в каталоге
type RecordEntry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	MapName   string    `json:"map_name"`
	Frames    int       `json:"frames"`
	Sectors   int       `json:"sectors"`
	Flags     uint32    `json:"flags"`
	Legacy    bool      `json:"legacy"`
	SessionID string    `json:"session_id,omitempty"`
	Size      int64     `json:"size"`
	SavedAt   time.Time `json:"saved_at"`
}

// CatalogRepo определяет интерфейс индекса сохранённых записей.
// Записи привязаны к имени файла без расширения.
type CatalogRepo interface {
	// Put сохраняет или заменяет метаданные записи
	Put(ctx context.Context, entry RecordEntry) error

	// Get возвращает метаданные записи; bool == false, если записи нет в каталоге
	Get(ctx context.Context, name string) (RecordEntry, bool, error)

	// Delete удаляет запись из каталога
	Delete(ctx context.Context, name string) error

	// List возвращает все записи, отсортированные по имени
	List(ctx context.Context) ([]RecordEntry, error)

	Close() error
}
