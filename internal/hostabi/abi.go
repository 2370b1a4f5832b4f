// Package hostabi адаптирует движок TAS к конкретной сборке физического движка хоста.
// Только здесь известны смещения полей внутренних структур.
package hostabi

import (
	"errors"
	"fmt"

	"github.com/annel0/tas-replay/internal/determinism"
	"github.com/annel0/tas-replay/internal/host"
)

// ErrUnsupportedBuild сборка физического движка не распознана
var ErrUnsupportedBuild = errors.New("неподдерживаемая сборка физического движка")

const (
	// BuildOffsets сборка, состояние которой доступно только по смещениям
	BuildOffsets uint32 = 0x000001
	// BuildMethods сборка с методами управления часами симуляции
	BuildMethods uint32 = 0x000002
)

// Имена подменяемых подпрограмм
const (
	SourceQHRand        = "qh_rand"
	SourceMovementCheck = "movement_check"
	SourceRandom        = "random"
)

// ABI операции над физическим движком, нужные сессии TAS
type ABI interface {
	Build() uint32
	// ResetPhysicsTime обнуляет часы симуляции и выставляет шаг lastDelta
	ResetPhysicsTime(lastDelta float32) error
	// SetTimeFactor восстанавливает множитель времени
	SetTimeFactor(factor float32) error
	// SetNextMovementCheck выставляет счётчик до следующей проверки движения
	SetNextMovementCheck(n int16) error
	// Sources строит источники недетерминизма для нормализатора
	Sources(nd host.Nondeterminism) []determinism.Source
}

// Detect выбирает адаптер по идентификатору сборки
func Detect(p host.Physics) (ABI, error) {
	switch p.Build {
	case BuildOffsets:
		if p.Memory == nil || p.ManagerAddr == 0 {
			return nil, fmt.Errorf("%w: 0x%06x без доступа к памяти", ErrUnsupportedBuild, p.Build)
		}
		return &offsetABI{mem: p.Memory, manager: p.ManagerAddr}, nil
	case BuildMethods:
		if p.Manager == nil {
			return nil, fmt.Errorf("%w: 0x%06x без менеджера", ErrUnsupportedBuild, p.Build)
		}
		return &methodABI{mgr: p.Manager}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%06x", ErrUnsupportedBuild, p.Build)
	}
}

func commonSources(nd host.Nondeterminism, movementCheck func() int32) []determinism.Source {
	return []determinism.Source{
		determinism.NewSlotSource[func() int32](SourceQHRand, nd.QHRand, determinism.FixedQHRand),
		determinism.NewSlotSource[func() int32](SourceMovementCheck, nd.MovementCheck, movementCheck),
		determinism.NewSlotSource[host.RandomFunc](SourceRandom, nd.Random, determinism.FixedRandom),
	}
}
