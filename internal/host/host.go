package host

import (
	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/vec"
)

// TimeManager менеджер времени хоста
type TimeManager interface {
	LastDeltaTime() float32
	SetLastDeltaTime(dt float32)
}

// Memory доступ к памяти физического движка по адресам.
// Используется только адаптером сборки, где состояние доступно лишь по смещениям.
type Memory interface {
	ReadPtr(addr uintptr) (uintptr, error)
	ReadF64(addr uintptr) (float64, error)
	WriteF64(addr uintptr, v float64) error
	WriteF32(addr uintptr, v float32) error
	WriteI16(addr uintptr, v int16) error
}

// PhysicsManager методы физического движка новых сборок
type PhysicsManager interface {
	ResetSimulationClock()
	SetDeltaTime(dt float32)
	SetTimeFactor(factor float32)
}

// Physics описание физического движка хоста
type Physics struct {
	// Build идентификатор сборки физического движка
	Build uint32
	// Memory и ManagerAddr доступны для сборок со смещениями
	Memory      Memory
	ManagerAddr uintptr
	// Manager доступен для сборок с методами
	Manager PhysicsManager
}

// Host всё, что движку TAS нужно от хоста-симуляции
type Host interface {
	// Entry возвращает ячейку точки входа ep
	Entry(ep EntryPoint) Slot[EntryFunc]
	TimeManager() TimeManager
	// Keyboard возвращает живой буфер состояния клавиатуры (BufferSize байт)
	Keyboard() []byte
	// KeyBindings возвращает текущую раскладку игрока
	KeyBindings() input.Bindings
	IsCheatEnabled() bool
	SendIngameMessage(msg string)
	// AddTimer выполняет fn через ticks тиков в потоке тиков
	AddTimer(ticks uint, fn func())
	SkipRenderForNextTick()
	ExitGame()
	// ActiveBall возвращает позицию управляемого объекта, если он есть
	ActiveBall() (vec.Vec3, bool)
	Physics() Physics
	Nondeterminism() Nondeterminism
}

// Listener получает сигналы жизненного цикла хоста. Все методы вызываются в потоке тиков.
type Listener interface {
	OnLoadMap(filename string)
	OnPostStartMenu()
	OnPreLoadLevel()
	OnStartLevel()
	OnPreResetLevel()
	OnPreExitLevel()
	OnLevelFinish()
	OnPreCheckpoint()
	OnPostCheckpoint()
	OnBallOff()
	OnProcess()
}
