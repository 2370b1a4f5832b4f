// Package host описывает интерфейсы хоста-симуляции, с которыми работает движок TAS:
// подменяемые точки входа тика, буфер клавиатуры, менеджер времени, сигналы жизненного
// цикла и доступ к физическому движку.
package host

import "sync/atomic"

// EntryPoint логическая точка входа, вызываемая хостом ровно один раз за тик
type EntryPoint uint8

const (
	// TimeStep обработка шага времени (менеджер времени)
	TimeStep EntryPoint = iota
	// InputSample опрос устройств ввода (менеджер ввода)
	InputSample
)

// EntryPoints перечисляет все точки входа в порядке вызова за тик
var EntryPoints = [...]EntryPoint{TimeStep, InputSample}

func (e EntryPoint) String() string {
	switch e {
	case TimeStep:
		return "time-step"
	case InputSample:
		return "input-sample"
	default:
		return "unknown"
	}
}

// EntryFunc реализация точки входа
type EntryFunc func() error

// Slot ячейка, через которую хост вызывает подменяемую функцию.
// Хост читает Load() при каждом вызове, поэтому Store() подменяет реализацию
// начиная со следующего вызова.
type Slot[F any] interface {
	Load() F
	Store(F)
}

// AtomicSlot потокобезопасная реализация Slot
type AtomicSlot[F any] struct {
	p atomic.Pointer[F]
}

// NewAtomicSlot создаёт ячейку с исходной функцией f
func NewAtomicSlot[F any](f F) *AtomicSlot[F] {
	s := &AtomicSlot[F]{}
	s.Store(f)
	return s
}

func (s *AtomicSlot[F]) Load() F {
	if p := s.p.Load(); p != nil {
		return *p
	}
	var zero F
	return zero
}

func (s *AtomicSlot[F]) Store(f F) {
	s.p.Store(&f)
}
