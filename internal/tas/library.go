package tas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/tas-replay/internal/logging"
	"github.com/annel0/tas-replay/internal/record"
	"github.com/annel0/tas-replay/internal/storage"
	"github.com/annel0/tas-replay/internal/tasfile"
	"github.com/fsnotify/fsnotify"
)

// ErrRecordNotFound файла записи нет в каталоге записей
var ErrRecordNotFound = errors.New("запись не найдена")

// LibraryEntry запись в каталоге записей на диске
type LibraryEntry struct {
	Name string
	Path string
	// Meta заполнено, если запись есть в индексе
	Meta *storage.RecordEntry
}

// Library список файлов .tas в каталоге записей
type Library struct {
	dir     string
	legacy  bool
	catalog storage.CatalogRepo
	metrics *Metrics
	logger  *logging.Logger

	mu      sync.RWMutex
	entries []LibraryEntry
}

// NewLibrary создаёт библиотеку записей каталога dir
func NewLibrary(dir string, legacy bool, catalog storage.CatalogRepo, metrics *Metrics, logger *logging.Logger) *Library {
	if logger == nil {
		logger = logging.GetStorageLogger()
	}
	return &Library{dir: dir, legacy: legacy, catalog: catalog, metrics: metrics, logger: logger}
}

// Dir возвращает каталог записей
func (l *Library) Dir() string { return l.dir }

// Refresh перечитывает каталог; записи сортируются по имени
func (l *Library) Refresh(ctx context.Context) error {
	files, err := os.ReadDir(l.dir)
	if errors.Is(err, os.ErrNotExist) {
		files = nil
	} else if err != nil {
		return fmt.Errorf("чтение каталога записей %s: %w", l.dir, err)
	}

	entries := make([]LibraryEntry, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), tasfile.Ext) {
			continue
		}
		name := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		e := LibraryEntry{Name: name, Path: filepath.Join(l.dir, f.Name())}
		if l.catalog != nil {
			if meta, ok, err := l.catalog.Get(ctx, name); err == nil && ok {
				e.Meta = &meta
			}
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}

// Records возвращает последний прочитанный список записей
func (l *Library) Records() []LibraryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]LibraryEntry(nil), l.entries...)
}

// Path возвращает путь файла записи name
func (l *Library) Path(name string) string {
	return filepath.Join(l.dir, name+tasfile.Ext)
}

// Load загружает запись name (без расширения). Ошибки формата логируются
// вместе с началом файла и учитываются в метриках.
func (l *Library) Load(ctx context.Context, name string) (*record.Record, error) {
	path := l.Path(name)
	if _, err := os.Stat(path); err != nil {
		l.metrics.LoadFailed("not_found")
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, path)
	}

	rec := record.New(name, path, l.legacy)
	if err := tasfile.Load(ctx, rec); err != nil {
		l.metrics.LoadFailed(tasfile.Reason(err))
		logging.LogCorruptFile(l.logger, path, err, readHead(path, 64))
		return nil, err
	}
	l.logger.Info("📼 Запись %s загружена: %d кадров, %d секторов", name, rec.FrameCount(), rec.SectorCount())
	return rec, nil
}

func readHead(path string, n int) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, n)
	m, _ := io.ReadFull(f, buf)
	return buf[:m]
}

// Watch перечитывает каталог при изменении файлов .tas, пока ctx не отменён.
// onChange (может быть nil) вызывается после каждого перечитывания.
func (l *Library) Watch(ctx context.Context, debounce time.Duration, onChange func([]LibraryEntry)) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("создание каталога записей: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("создание наблюдателя: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("наблюдение за %s: %w", l.dir, err)
	}

	refresh := func() {
		if err := l.Refresh(ctx); err != nil {
			l.logger.Warn("⚠️ Не удалось перечитать каталог записей: %v", err)
			return
		}
		if onChange != nil {
			onChange(l.Records())
		}
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.EqualFold(filepath.Ext(ev.Name), tasfile.Ext) {
					continue
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(debounce, refresh)
				} else {
					timer.Reset(debounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("⚠️ Ошибка наблюдателя каталога записей: %v", err)
			}
		}
	}()

	l.logger.Info("👀 Наблюдение за каталогом записей %s", l.dir)
	return nil
}
