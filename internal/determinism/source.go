// Package determinism закрепляет недетерминированные подпрограммы хоста
// (генераторы случайных чисел, троттлинг проверок физики) за фиксированными
// значениями на время работы TAS, чтобы воспроизведение совпадало побитово.
package determinism

import (
	"errors"
	"fmt"

	"github.com/annel0/tas-replay/internal/host"
)

// ErrSourceMissing хост не предоставил ячейку подпрограммы
var ErrSourceMissing = errors.New("хост не предоставляет подпрограмму")

// HookInstallError не удалось подменить подпрограмму Source
type HookInstallError struct {
	Source string
	Err    error
}

func (e *HookInstallError) Error() string {
	return fmt.Sprintf("подмена %s: %v", e.Source, e.Err)
}

func (e *HookInstallError) Unwrap() error { return e.Err }

// Source подпрограмма, которую можно закрепить за детерминированной заменой
type Source interface {
	Name() string
	Pin() error
	Unpin() error
}

type slotSource[F any] struct {
	name     string
	slot     host.Slot[F]
	fixed    F
	original F
	pinned   bool
}

// NewSlotSource создаёт Source, который на время Pin кладёт fixed в ячейку slot
func NewSlotSource[F any](name string, slot host.Slot[F], fixed F) Source {
	return &slotSource[F]{name: name, slot: slot, fixed: fixed}
}

func (s *slotSource[F]) Name() string { return s.name }

func (s *slotSource[F]) Pin() error {
	if s.slot == nil {
		return &HookInstallError{Source: s.name, Err: ErrSourceMissing}
	}
	if s.pinned {
		return nil
	}
	s.original = s.slot.Load()
	s.slot.Store(s.fixed)
	s.pinned = true
	return nil
}

func (s *slotSource[F]) Unpin() error {
	if !s.pinned {
		return nil
	}
	s.slot.Store(s.original)
	var zero F
	s.original = zero
	s.pinned = false
	return nil
}
