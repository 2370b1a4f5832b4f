package hostabi

import (
	"github.com/annel0/tas-replay/internal/determinism"
	"github.com/annel0/tas-replay/internal/host"
)

type methodABI struct {
	mgr host.PhysicsManager
}

func (a *methodABI) Build() uint32 { return BuildMethods }

func (a *methodABI) ResetPhysicsTime(lastDelta float32) error {
	a.mgr.ResetSimulationClock()
	a.mgr.SetDeltaTime(lastDelta)
	return nil
}

func (a *methodABI) SetTimeFactor(factor float32) error {
	a.mgr.SetTimeFactor(factor)
	return nil
}

// SetNextMovementCheck: счётчик этой сборки снаружи недоступен
func (a *methodABI) SetNextMovementCheck(int16) error { return nil }

func (a *methodABI) Sources(nd host.Nondeterminism) []determinism.Source {
	return commonSources(nd, func() int32 { return 1 })
}
