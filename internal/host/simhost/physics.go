package simhost

import (
	"github.com/annel0/tas-replay/internal/host"
	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/vec"
)

const (
	moveAccel    = 12.0
	shiftFactor  = 2.0
	jumpSpeed    = 5.0
	gravity      = 9.81
	groundDamp   = 0.96
	windStrength = 0.8
	// movementCheckInterval через сколько шагов исходный движок повторяет проверку движения
	movementCheckInterval = 3
)

// Ball состояние управляемого шара
type Ball struct {
	Position vec.Vec3
	Velocity vec.Vec3
	Steps    int
}

// stepPhysics продвигает часы физического движка на длительность кадра
// и выполняет все накопившиеся фиксированные шаги
func (h *Host) stepPhysics() error {
	mem := h.mem
	dt := h.time.LastDeltaTime()
	if err := mem.WriteF32(managerAddr+managerDelta, dt); err != nil {
		return err
	}
	factor, err := mem.ReadF32(managerAddr + managerTimeFact)
	if err != nil {
		return err
	}

	base, _ := mem.ReadF64(timeManagerAddr + timeManagerBaseTime)
	_ = mem.WriteF64(timeManagerAddr+timeManagerBaseTime, base+float64(dt)*float64(factor))

	current, err := mem.ReadF64(envAddr + envCurrentTime)
	if err != nil {
		return err
	}
	current += float64(dt) * float64(factor)
	if err := mem.WriteF64(envAddr+envCurrentTime, current); err != nil {
		return err
	}

	keys := input.Sample(h.keyboard, h.bindings)
	for {
		next, err := mem.ReadF64(envAddr + envTimeOfNextPSI)
		if err != nil {
			return err
		}
		if current < next {
			return nil
		}
		h.psiStep(keys)
		_ = mem.WriteF64(envAddr+envTimeOfLastPSI, next)
		_ = mem.WriteF64(envAddr+envTimeOfNextPSI, next+psiInterval)
	}
}

// psiStep один фиксированный шаг симуляции шара
func (h *Host) psiStep(keys input.KeyState) {
	const dt = float32(psiInterval)
	b := &h.ball

	var accel vec.Vec3
	if keys.Has(input.Up) {
		accel.Z += moveAccel
	}
	if keys.Has(input.Down) {
		accel.Z -= moveAccel
	}
	if keys.Has(input.Left) {
		accel.X -= moveAccel
	}
	if keys.Has(input.Right) {
		accel.X += moveAccel
	}
	if keys.Has(input.Shift) {
		accel = accel.Mul(shiftFactor)
	}
	if keys.Has(input.Space) && b.Position.Y == 0 {
		b.Velocity.Y = jumpSpeed
	}

	wind := h.nondet.Random.Load()(host.RandomFloat,
		host.RandomValue{F: [4]float32{-windStrength}},
		host.RandomValue{F: [4]float32{windStrength}})
	accel.X += wind.F[0]

	// Внутренний генератор движка добавляет микросмещение
	jitter := h.nondet.QHRand.Load()()
	accel.Z += float32(jitter%1000) * 1e-4

	accel.Y -= gravity
	b.Velocity = b.Velocity.Add(accel.Mul(dt))
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	if b.Position.Y < 0 {
		b.Position.Y = 0
		b.Velocity.Y = 0
	}

	if h.nondet.MovementCheck.Load()() != 0 {
		b.Velocity.X *= groundDamp
		b.Velocity.Z *= groundDamp
	}
	b.Steps++
}

// qhRand исходный внутренний генератор физического движка
func (h *Host) qhRand() int32 {
	return h.rng.Int31()
}

// mustPerformMovementCheck исходный троттлинг: проверка раз в movementCheckInterval шагов
func (h *Host) mustPerformMovementCheck() int32 {
	addr := envAddr + envNextMovementCheck
	n, _ := h.mem.ReadI16(addr)
	if n > 0 {
		_ = h.mem.WriteI16(addr, n-1)
		return 0
	}
	_ = h.mem.WriteI16(addr, movementCheckInterval)
	return 1
}

// random исходный генератор поведенческих скриптов
func (h *Host) random(kind host.RandomKind, min, max host.RandomValue) host.RandomValue {
	var out host.RandomValue
	switch kind {
	case host.RandomInt:
		if span := max.I - min.I; span > 0 {
			out.I = min.I + h.rng.Int31n(span)
		} else {
			out.I = min.I
		}
	case host.RandomBool:
		out.B = h.rng.Intn(2) == 1
	default:
		for i := 0; i < kind.Components(); i++ {
			out.F[i] = min.F[i] + h.rng.Float32()*(max.F[i]-min.F[i])
		}
	}
	return out
}

// MovementCheckCounter возвращает счётчик next_movement_check симулированного движка
func MovementCheckCounter(h *Host) int16 {
	n, _ := h.mem.ReadI16(envAddr + envNextMovementCheck)
	return n
}
