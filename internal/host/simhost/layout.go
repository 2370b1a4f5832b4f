package simhost

// Раскладка структур физического движка сборки 0x000001 в ByteMemory.
// Указатели 32-битные.
const (
	memorySize = 0x1000

	managerAddr     uintptr = 0x100
	managerEnv              = 0xC0 // *environment
	managerDelta            = 0xC8 // float32, мс
	managerTimeFact         = 0xD0 // float32, множитель мс -> с

	envAddr             uintptr = 0x400
	envTimeManager              = 0x4   // *time_manager
	envCurrentTime              = 0x120 // float64
	envTimeOfNextPSI            = 0x128 // float64
	envTimeOfLastPSI            = 0x130 // float64
	envNextMovementCheck        = 0x140 // int16

	timeManagerAddr     uintptr = 0x800
	timeManagerBaseTime         = 0x18 // float64
)

// psiInterval фиксированный шаг внутренней симуляции, с
const psiInterval = 1.0 / 66

const (
	// BuildOffsets сборка, состояние которой доступно только по смещениям
	BuildOffsets uint32 = 0x000001
	// BuildMethods сборка с методами управления часами
	BuildMethods uint32 = 0x000002
)
