// Package hook перехватывает точки входа хоста: сначала всегда выполняется исходная
// реализация, затем один раз за тик вызывается зарегистрированный обработчик.
package hook

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/tas-replay/internal/host"
	"github.com/annel0/tas-replay/internal/logging"
)

var (
	// ErrHookBusy точка входа уже перехвачена другим владельцем
	ErrHookBusy = errors.New("точка входа уже перехвачена")
	// ErrNotOwner снять перехват может только его владелец
	ErrNotOwner = errors.New("перехват принадлежит другому владельцу")
)

type redirection struct {
	owner    string
	slot     host.Slot[host.EntryFunc]
	original host.EntryFunc
}

// Registry хранит активные перехваты. На каждую точку входа допускается
// ровно один владелец во всём процессе.
type Registry struct {
	mu     sync.Mutex
	active map[host.EntryPoint]*redirection
	logger *logging.Logger
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// Default возвращает общий для процесса реестр
func Default() *Registry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry(logging.GetHookLogger())
	})
	return defaultRegistry
}

// NewRegistry создаёт отдельный реестр (для тестов и встраивания)
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		active: make(map[host.EntryPoint]*redirection),
		logger: logger,
	}
}

// Enable перехватывает ep: ячейка slot начинает вызывать исходную функцию,
// затем post. Повторный вызов тем же владельцем ничего не меняет.
func (r *Registry) Enable(owner string, ep host.EntryPoint, slot host.Slot[host.EntryFunc], post func()) error {
	if slot == nil || post == nil {
		return fmt.Errorf("перехват %s: пустая ячейка или обработчик", ep)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.active[ep]; ok {
		if cur.owner == owner {
			return nil
		}
		return fmt.Errorf("%w: %s занята владельцем %q", ErrHookBusy, ep, cur.owner)
	}

	original := slot.Load()
	if original == nil {
		return fmt.Errorf("перехват %s: хост не предоставил реализацию", ep)
	}

	slot.Store(func() error {
		err := original()
		post()
		return err
	})
	r.active[ep] = &redirection{owner: owner, slot: slot, original: original}
	r.logger.Debug("🪝 Перехват %s включён (владелец %s)", ep, owner)
	return nil
}

// Disable возвращает исходную реализацию ep. Вызов без активного перехвата ничего не делает.
func (r *Registry) Disable(owner string, ep host.EntryPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.active[ep]
	if !ok {
		return nil
	}
	if cur.owner != owner {
		return fmt.Errorf("%w: %s принадлежит %q", ErrNotOwner, ep, cur.owner)
	}

	cur.slot.Store(cur.original)
	delete(r.active, ep)
	r.logger.Debug("🪝 Перехват %s снят (владелец %s)", ep, owner)
	return nil
}

// Owner возвращает владельца перехвата ep
func (r *Registry) Owner(ep host.EntryPoint) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.active[ep]; ok {
		return cur.owner, true
	}
	return "", false
}

// Shutdown снимает все перехваты, возвращая исходные реализации
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ep, cur := range r.active {
		cur.slot.Store(cur.original)
		delete(r.active, ep)
	}
}
