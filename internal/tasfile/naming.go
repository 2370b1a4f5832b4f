package tasfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName строит имя файла записи: <карта>_YYYYMMDD_HHMMSS.tas
func FileName(mapName string, t time.Time) string {
	return fmt.Sprintf("%s_%s%s", sanitize(mapName), t.Format("20060102_150405"), Ext)
}

func sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "record"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// Namer выдаёт уникальные пути для новых записей. Занятыми считаются
// существующие файлы и пути, зарезервированные ещё не завершёнными сохранениями.
type Namer struct {
	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewNamer создаёт Namer
func NewNamer() *Namer {
	return &Namer{reserved: make(map[string]struct{})}
}

// Reserve возвращает свободный путь в dir; при совпадении добавляет суффикс _1, _2, ...
func (n *Namer) Reserve(dir, mapName string, t time.Time) string {
	base := strings.TrimSuffix(FileName(mapName, t), Ext)

	n.mu.Lock()
	defer n.mu.Unlock()

	path := filepath.Join(dir, base+Ext)
	for i := 1; n.taken(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, Ext))
	}
	n.reserved[path] = struct{}{}
	return path
}

// Release снимает резерв после завершения сохранения
func (n *Namer) Release(path string) {
	n.mu.Lock()
	delete(n.reserved, path)
	n.mu.Unlock()
}

func (n *Namer) taken(path string) bool {
	if _, ok := n.reserved[path]; ok {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}
