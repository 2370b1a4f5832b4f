// Package simhost: симулированный хост: тиковый цикл с менеджером времени,
// опросом клавиатуры и физикой шара, устроенный так же, как настоящий хост
// (подменяемые точки входа, буфер клавиатуры, физический движок в памяти).
package simhost

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/annel0/tas-replay/internal/host"
	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/vec"
)

// Script задаёт «физически» нажатые клавиши на тике tick
type Script func(tick int) input.KeyState

// Options параметры симулированного хоста
type Options struct {
	// Seed определяет дрожание часов и генераторы случайных чисел
	Seed int64
	// Build сборка физического движка (BuildOffsets, BuildMethods или любая другая)
	Build uint32
	// BaseDelta номинальная длительность кадра, мс
	BaseDelta float32
	// Jitter амплитуда дрожания длительности кадра, мс
	Jitter float32
	// Bindings раскладка игрока; нулевая означает раскладку по умолчанию
	Bindings *input.Bindings
}

// DefaultOptions возвращает параметры хоста ~60 FPS с небольшим дрожанием
func DefaultOptions(seed int64) Options {
	return Options{Seed: seed, Build: BuildOffsets, BaseDelta: 16.666, Jitter: 1.5}
}

type timer struct {
	due int
	fn  func()
}

// Host симулированный хост. Tick и сигналы жизненного цикла вызываются из одного потока.
type Host struct {
	opts     Options
	bindings input.Bindings
	clock    *physicalClock
	rng      *rand.Rand

	entries  [len(host.EntryPoints)]*host.AtomicSlot[host.EntryFunc]
	time     *timeManager
	keyboard []byte
	script   Script
	listener host.Listener

	mem     *ByteMemory
	manager *methodManager
	nondet  host.Nondeterminism

	tick   int
	timers []timer
	ball   Ball

	mu         sync.Mutex
	messages   []string
	cheat      bool
	exited     bool
	skipRender int
}

// New создаёт хост и раскладывает структуры физического движка в памяти
func New(opts Options) *Host {
	if opts.BaseDelta <= 0 {
		opts.BaseDelta = 16.666
	}
	h := &Host{
		opts:     opts,
		bindings: input.DefaultBindings(),
		clock:    newPhysicalClock(opts.Seed, opts.BaseDelta, opts.Jitter),
		rng:      rand.New(rand.NewSource(opts.Seed)),
		time:     &timeManager{},
		keyboard: make([]byte, input.BufferSize),
		mem:      NewByteMemory(memorySize),
	}
	if opts.Bindings != nil {
		h.bindings = *opts.Bindings
	}
	h.manager = &methodManager{h: h}

	h.entries[host.TimeStep] = host.NewAtomicSlot[host.EntryFunc](h.processTime)
	h.entries[host.InputSample] = host.NewAtomicSlot[host.EntryFunc](h.processInput)

	h.nondet = host.Nondeterminism{
		QHRand:        host.NewAtomicSlot(h.qhRand),
		MovementCheck: host.NewAtomicSlot(h.mustPerformMovementCheck),
		Random:        host.NewAtomicSlot[host.RandomFunc](h.random),
	}

	h.layoutPhysics()
	return h
}

func (h *Host) layoutPhysics() {
	_ = h.mem.WritePtr(managerAddr+managerEnv, envAddr)
	_ = h.mem.WritePtr(envAddr+envTimeManager, timeManagerAddr)
	_ = h.mem.WriteF32(managerAddr+managerTimeFact, 0.001)
	_ = h.mem.WriteF64(envAddr+envTimeOfNextPSI, psiInterval)
	_ = h.mem.WriteI16(envAddr+envNextMovementCheck, 3)
}

// SetListener подключает получателя сигналов жизненного цикла
func (h *Host) SetListener(l host.Listener) { h.listener = l }

// SetScript задаёт клавиши, которые «нажимает» игрок
func (h *Host) SetScript(s Script) { h.script = s }

// SetBindings меняет раскладку игрока
func (h *Host) SetBindings(b input.Bindings) { h.bindings = b }

// SetCheat включает или выключает режим читов
func (h *Host) SetCheat(on bool) {
	h.mu.Lock()
	h.cheat = on
	h.mu.Unlock()
}

// Tick выполняет один тик: время, ввод, физика, обработка, таймеры
func (h *Host) Tick() error {
	h.tick++

	for _, ep := range host.EntryPoints {
		if err := h.entries[ep].Load()(); err != nil {
			return fmt.Errorf("тик %d, %s: %w", h.tick, ep, err)
		}
	}

	if err := h.stepPhysics(); err != nil {
		return fmt.Errorf("тик %d, физика: %w", h.tick, err)
	}

	if h.listener != nil {
		h.listener.OnProcess()
	}
	h.runTimers()
	return nil
}

// Run выполняет n тиков
func (h *Host) Run(n int) error {
	for i := 0; i < n; i++ {
		if err := h.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// TickCount возвращает номер последнего выполненного тика
func (h *Host) TickCount() int { return h.tick }

// processTime исходная реализация TimeStep: замер длительности кадра
func (h *Host) processTime() error {
	h.time.SetLastDeltaTime(h.clock.delta(h.tick))
	return nil
}

// processInput исходная реализация InputSample: опрос клавиатуры
func (h *Host) processInput() error {
	var keys input.KeyState
	if h.script != nil {
		keys = h.script(h.tick)
	}
	input.Apply(h.keyboard, h.bindings, keys)
	return nil
}

func (h *Host) runTimers() {
	if len(h.timers) == 0 {
		return
	}
	pending := h.timers[:0]
	var due []timer
	for _, t := range h.timers {
		if t.due <= h.tick {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	h.timers = pending
	for _, t := range due {
		t.fn()
	}
}

// === host.Host ===

func (h *Host) Entry(ep host.EntryPoint) host.Slot[host.EntryFunc] {
	if int(ep) >= len(h.entries) {
		return nil
	}
	return h.entries[ep]
}

func (h *Host) TimeManager() host.TimeManager       { return h.time }
func (h *Host) Keyboard() []byte                    { return h.keyboard }
func (h *Host) KeyBindings() input.Bindings         { return h.bindings }
func (h *Host) Nondeterminism() host.Nondeterminism { return h.nondet }

func (h *Host) IsCheatEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cheat
}

func (h *Host) SendIngameMessage(msg string) {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
}

func (h *Host) AddTimer(ticks uint, fn func()) {
	h.timers = append(h.timers, timer{due: h.tick + int(ticks), fn: fn})
}

func (h *Host) SkipRenderForNextTick() {
	h.mu.Lock()
	h.skipRender++
	h.mu.Unlock()
}

func (h *Host) ExitGame() {
	h.mu.Lock()
	h.exited = true
	h.mu.Unlock()
}

func (h *Host) ActiveBall() (vec.Vec3, bool) {
	return h.ball.Position, true
}

func (h *Host) Physics() host.Physics {
	p := host.Physics{Build: h.opts.Build}
	switch h.opts.Build {
	case BuildOffsets:
		p.Memory = h.mem
		p.ManagerAddr = managerAddr
	case BuildMethods:
		p.Manager = h.manager
	}
	return p
}

// === Наблюдение за состоянием (для тестов и cmd/simhost) ===

// Messages возвращает отправленные игровые сообщения
func (h *Host) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

// Exited сообщает, запрашивался ли выход из игры
func (h *Host) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}

// SkipRenderRequests возвращает число запросов пропуска отрисовки
func (h *Host) SkipRenderRequests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.skipRender
}

// Ball возвращает состояние шара
func (h *Host) Ball() Ball { return h.ball }

// PhysicsClock возвращает часы физического движка: текущее время и время следующего шага
func (h *Host) PhysicsClock() (current, next float64) {
	current, _ = h.mem.ReadF64(envAddr + envCurrentTime)
	next, _ = h.mem.ReadF64(envAddr + envTimeOfNextPSI)
	return current, next
}

// TimeFactor возвращает множитель времени физического движка
func (h *Host) TimeFactor() float32 {
	f, _ := h.mem.ReadF32(managerAddr + managerTimeFact)
	return f
}

type timeManager struct {
	mu   sync.Mutex
	last float32
}

func (t *timeManager) LastDeltaTime() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *timeManager) SetLastDeltaTime(dt float32) {
	t.mu.Lock()
	t.last = dt
	t.mu.Unlock()
}

// methodManager интерфейс физического движка сборки BuildMethods поверх той же памяти
type methodManager struct {
	h *Host
}

func (m *methodManager) ResetSimulationClock() {
	mem := m.h.mem
	_ = mem.WriteF64(timeManagerAddr+timeManagerBaseTime, 0)
	_ = mem.WriteF64(envAddr+envCurrentTime, 0)
	_ = mem.WriteF64(envAddr+envTimeOfLastPSI, 0)
	_ = mem.WriteF64(envAddr+envTimeOfNextPSI, psiInterval)
}

func (m *methodManager) SetDeltaTime(dt float32) {
	_ = m.h.mem.WriteF32(managerAddr+managerDelta, dt)
}

func (m *methodManager) SetTimeFactor(factor float32) {
	_ = m.h.mem.WriteF32(managerAddr+managerTimeFact, factor*0.001)
}
