package hostabi

import (
	"fmt"

	"github.com/annel0/tas-replay/internal/determinism"
	"github.com/annel0/tas-replay/internal/host"
)

// Смещения сборки BuildOffsets
const (
	offManagerEnv      = 0xC0
	offManagerDelta    = 0xC8
	offManagerTimeFact = 0xD0

	offEnvTimeManager       = 0x4
	offEnvCurrentTime       = 0x120
	offEnvTimeOfNextPSI     = 0x128
	offEnvTimeOfLastPSI     = 0x130
	offEnvNextMovementCheck = 0x140

	offTimeManagerBaseTime = 0x18

	psiInterval = 1.0 / 66
	// msToSeconds множитель времени хранится в секундах на миллисекунду
	msToSeconds = 0.001
)

type offsetABI struct {
	mem     host.Memory
	manager uintptr
}

func (a *offsetABI) Build() uint32 { return BuildOffsets }

func (a *offsetABI) env() (uintptr, error) {
	env, err := a.mem.ReadPtr(a.manager + offManagerEnv)
	if err != nil {
		return 0, fmt.Errorf("чтение environment: %w", err)
	}
	if env == 0 {
		return 0, fmt.Errorf("environment ещё не создан")
	}
	return env, nil
}

func (a *offsetABI) ResetPhysicsTime(lastDelta float32) error {
	env, err := a.env()
	if err != nil {
		return err
	}
	tm, err := a.mem.ReadPtr(env + offEnvTimeManager)
	if err != nil {
		return fmt.Errorf("чтение time_manager: %w", err)
	}

	// Часы начинаются с нуля, первый шаг физики через psiInterval
	writes := []struct {
		addr uintptr
		v    float64
	}{
		{tm + offTimeManagerBaseTime, 0},
		{env + offEnvCurrentTime, 0},
		{env + offEnvTimeOfLastPSI, 0},
		{env + offEnvTimeOfNextPSI, psiInterval},
	}
	for _, w := range writes {
		if err := a.mem.WriteF64(w.addr, w.v); err != nil {
			return fmt.Errorf("сброс часов (0x%x): %w", w.addr, err)
		}
	}
	return a.mem.WriteF32(a.manager+offManagerDelta, lastDelta)
}

func (a *offsetABI) SetTimeFactor(factor float32) error {
	return a.mem.WriteF32(a.manager+offManagerTimeFact, factor*msToSeconds)
}

func (a *offsetABI) SetNextMovementCheck(n int16) error {
	env, err := a.env()
	if err != nil {
		return err
	}
	return a.mem.WriteI16(env+offEnvNextMovementCheck, n)
}

// Sources: проверка движения выполняется на каждом шаге, счётчик обнуляется
func (a *offsetABI) Sources(nd host.Nondeterminism) []determinism.Source {
	return commonSources(nd, func() int32 {
		_ = a.SetNextMovementCheck(0)
		return 1
	})
}
