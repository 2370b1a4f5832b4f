package determinism

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/tas-replay/internal/logging"
)

// Normalizer закрепляет набор Source и снимает их вместе.
// Если хотя бы один Source не закрепился, уже закреплённые откатываются,
// и нормализатор считается деградированным до следующей успешной установки.
type Normalizer struct {
	mu        sync.Mutex
	installed []Source
	degraded  bool
	reason    error
	logger    *logging.Logger
}

// NewNormalizer создаёт нормализатор
func NewNormalizer(logger *logging.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Install закрепляет все sources. Повторный вызов при установленном нормализаторе ничего не делает.
func (n *Normalizer) Install(sources []Source) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.installed) > 0 {
		return nil
	}

	pinned := make([]Source, 0, len(sources))
	for _, src := range sources {
		if err := src.Pin(); err != nil {
			for i := len(pinned) - 1; i >= 0; i-- {
				_ = pinned[i].Unpin()
			}
			var hie *HookInstallError
			if !errors.As(err, &hie) {
				err = &HookInstallError{Source: src.Name(), Err: err}
			}
			n.markDegradedLocked(err)
			return err
		}
		pinned = append(pinned, src)
	}

	n.installed = pinned
	n.degraded = false
	n.reason = nil
	n.logger.Info("🎲 Нормализатор установлен: %d источников закреплено", len(pinned))
	return nil
}

// MarkDegraded помечает нормализатор деградированным без попытки установки
// (например, сборка физического движка не распознана)
func (n *Normalizer) MarkDegraded(reason error) {
	n.mu.Lock()
	n.markDegradedLocked(reason)
	n.mu.Unlock()
}

func (n *Normalizer) markDegradedLocked(reason error) {
	n.degraded = true
	n.reason = reason
	n.logger.Warn("⚠️ Нормализатор не установлен, воспроизведение может расходиться: %v", reason)
}

// Uninstall возвращает исходные подпрограммы
func (n *Normalizer) Uninstall() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var errs []error
	for i := len(n.installed) - 1; i >= 0; i-- {
		if err := n.installed[i].Unpin(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.installed[i].Name(), err))
		}
	}
	if len(n.installed) > 0 {
		n.logger.Info("🎲 Нормализатор снят")
	}
	n.installed = nil
	n.degraded = false
	n.reason = nil
	return errors.Join(errs...)
}

// Installed сообщает, закреплены ли источники
func (n *Normalizer) Installed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.installed) > 0
}

// Degraded сообщает, что последняя установка не удалась, и возвращает причину
func (n *Normalizer) Degraded() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.degraded, n.reason
}
