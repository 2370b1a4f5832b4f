package tas

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/annel0/tas-replay/internal/determinism"
	"github.com/annel0/tas-replay/internal/eventbus"
	"github.com/annel0/tas-replay/internal/hook"
	"github.com/annel0/tas-replay/internal/host"
	"github.com/annel0/tas-replay/internal/hostabi"
	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/logging"
	"github.com/annel0/tas-replay/internal/record"
	"github.com/annel0/tas-replay/internal/tasfile"
	"github.com/google/uuid"
)

// ErrSessionActive операция недоступна во время воспроизведения
var ErrSessionActive = errors.New("идёт воспроизведение")

// Уровни, которые можно загрузить автоматически при старте
const (
	firstLevel = 1
	lastLevel  = 13
)

// LevelLoader необязательная возможность хоста загрузить уровень по номеру
type LevelLoader interface {
	LoadLevelNumber(level int)
}

// Deps зависимости контроллера. Нулевые поля заменяются значениями по умолчанию.
type Deps struct {
	Registry *hook.Registry
	Saver    *Saver
	Library  *Library
	Metrics  *Metrics
	Bus      eventbus.EventBus
	Logger   *logging.Logger
}

// Controller машина состояний сессии TAS одного хоста.
// Сигналы жизненного цикла и перехваченные точки входа приходят из потока тиков.
type Controller struct {
	host        host.Host
	opts        Options
	owner       string
	interceptor *hook.Interceptor
	normalizer  *determinism.Normalizer
	saver       *Saver
	library     *Library
	metrics     *Metrics
	events      publisher
	logger      *logging.Logger

	mu        sync.Mutex
	enabled   bool
	abi       hostabi.ABI
	state     State
	bindings  input.Bindings
	recording *record.Record
	playback  *record.Record
	sessionID string
	mapName   string
	menuSeen  bool
}

// NewController создаёт контроллер для хоста h. Перехват ставится в Enable.
func NewController(h host.Host, opts Options, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = logging.GetTASLogger()
	}
	if deps.Registry == nil {
		deps.Registry = hook.Default()
	}
	if deps.Saver == nil {
		deps.Saver = NewSaver(opts.RecordsDir, 1, SaverDeps{Metrics: deps.Metrics, Bus: deps.Bus, Logger: deps.Logger})
	}
	if deps.Library == nil {
		deps.Library = NewLibrary(opts.RecordsDir, opts.Legacy, nil, deps.Metrics, deps.Logger)
	}

	owner := "tas-" + uuid.NewString()
	return &Controller{
		host:        h,
		opts:        opts,
		owner:       owner,
		interceptor: hook.NewInterceptor(deps.Registry, owner, h),
		normalizer:  determinism.NewNormalizer(deps.Logger),
		saver:       deps.Saver,
		library:     deps.Library,
		metrics:     deps.Metrics,
		events:      publisher{bus: deps.Bus},
		logger:      deps.Logger,
		bindings:    h.KeyBindings(),
		recording:   record.New("", "", opts.Legacy),
	}
}

// Enable перехватывает точки входа тика и закрепляет источники случайности.
// Если другой владелец уже перехватил точку входа, возвращается hook.ErrHookBusy.
func (c *Controller) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enabled {
		return nil
	}
	if !c.opts.Enabled {
		c.logger.Info("TAS выключен в настройках")
		return nil
	}

	if err := c.interceptor.Enable(c.onTimeStep, c.onInputSample); err != nil {
		return fmt.Errorf("перехват точек входа: %w", err)
	}

	abi, err := hostabi.Detect(c.host.Physics())
	if err != nil {
		c.logger.Warn("⚠️ Физический движок не распознан: %v", err)
	}
	c.abi = abi

	switch {
	case c.opts.Legacy:
		c.logger.Warn("⚠️ Режим совместимости: нормализатор случайности не устанавливается")
	case abi == nil:
		c.normalizer.MarkDegraded(err)
	default:
		if err := c.normalizer.Install(abi.Sources(c.host.Nondeterminism())); err != nil {
			c.logger.Warn("⚠️ Источники случайности не закреплены: %v", err)
		}
	}

	c.enabled = true
	c.logger.Info("🎬 TAS включён (legacy=%v)", c.opts.Legacy)
	return nil
}

// Disable останавливает сессию, снимает перехват и возвращает источники случайности
func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil
	}
	c.stopLocked(StopShutdown)

	errs := []error{c.normalizer.Uninstall(), c.interceptor.Disable()}
	c.enabled = false
	c.abi = nil
	c.logger.Info("🛑 TAS выключен")
	return errors.Join(errs...)
}

// Close выключает контроллер и ждёт незавершённые сохранения
func (c *Controller) Close(ctx context.Context) error {
	err := c.Disable()
	if waitErr := c.saver.Wait(ctx); waitErr != nil {
		err = errors.Join(err, waitErr)
	}
	return err
}

// === Состояние ===

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) IsIdle() bool      { return c.State() == Idle }
func (c *Controller) IsRecording() bool { return c.State()&Recording != 0 }
func (c *Controller) IsPlaying() bool   { return c.State()&Playing != 0 }

// Enabled сообщает, установлен ли перехват
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Degraded сообщает, что новые записи будут помечены FlagNonDeterministic
func (c *Controller) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degradedLocked()
}

func (c *Controller) degradedLocked() bool {
	if c.opts.Legacy {
		return false
	}
	degraded, _ := c.normalizer.Degraded()
	return degraded
}

// SetRecordIntent включает или выключает запись при следующем старте уровня
func (c *Controller) SetRecordIntent(on bool) {
	c.mu.Lock()
	c.opts.Record = on
	c.mu.Unlock()
}

// RecordIntent сообщает, будет ли записан следующий уровень
func (c *Controller) RecordIntent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.Record
}

// MapName возвращает имя текущей карты
func (c *Controller) MapName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapName
}

// Library возвращает библиотеку записей
func (c *Controller) Library() *Library { return c.library }

// Saver возвращает задачу сохранения
func (c *Controller) Saver() *Saver { return c.saver }

// === Выбор записи ===

// Select делает загруженную запись текущей для следующего старта
func (c *Controller) Select(rec *record.Record) error {
	if rec == nil || !rec.IsLoaded() {
		return errors.New("запись не загружена")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state&Playing != 0 {
		return ErrSessionActive
	}
	c.playback = rec
	return nil
}

// LoadRecord загружает запись name из библиотеки и делает её текущей.
// При ошибке игрок получает сообщение, а состояние не меняется.
func (c *Controller) LoadRecord(ctx context.Context, name string) error {
	if c.IsPlaying() {
		return ErrSessionActive
	}

	rec, err := c.library.Load(ctx, name)
	if errors.Is(err, ErrRecordNotFound) {
		c.host.SendIngameMessage("TAS file " + name + tasfile.Ext + " not found.")
		return err
	}
	if err != nil {
		c.host.SendIngameMessage(fmt.Sprintf("Failed to load TAS record %s: %v", name, err))
		return err
	}
	c.host.SendIngameMessage(fmt.Sprintf("Loaded TAS record %s (%d frames).", name, rec.FrameCount()))
	return c.Select(rec)
}

// Selected возвращает текущую запись для воспроизведения
func (c *Controller) Selected() (*record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playback, c.playback != nil && c.playback.IsLoaded()
}

// === Старт и остановка ===

// Start начинает запись и/или воспроизведение
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
}

// Stop завершает текущую сессию. В состоянии Idle ничего не делает.
func (c *Controller) Stop(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked(reason)
}

func (c *Controller) startLocked() {
	if !c.enabled {
		return
	}

	abi := c.abi
	tm := c.host.TimeManager()
	c.host.AddTimer(1, func() {
		if abi == nil {
			return
		}
		if err := abi.ResetPhysicsTime(tm.LastDeltaTime()); err != nil {
			c.logger.Warn("⚠️ Не удалось сбросить часы физики: %v", err)
		}
	})

	c.bindings = c.host.KeyBindings()

	if c.opts.Record {
		c.recording.Clear()
		c.recording.SetFlags(0)
		if !c.opts.Legacy {
			if c.opts.Zstd {
				c.recording.AddFlag(record.FlagZstd)
			}
			if c.degradedLocked() {
				c.recording.AddFlag(record.FlagNonDeterministic)
				c.metrics.DegradedRecord()
			}
		}
		c.sessionID = uuid.NewString()
		c.state |= Recording
		c.metrics.SessionStarted("record")

		c.host.SendIngameMessage("Start recording TAS.")
		c.logger.Info("⏺️ Запись начата (сессия %s, карта %s)", c.sessionID, c.mapName)
		c.events.publish(EventRecordingStarted, SessionEvent{
			SessionID: c.sessionID,
			Map:       c.mapName,
			Degraded:  c.recording.HasFlag(record.FlagNonDeterministic),
			Legacy:    c.opts.Legacy,
		})
	}

	if c.playback != nil && c.playback.IsLoaded() {
		c.playback.ResetFrame()
		c.state |= Playing
		c.metrics.SessionStarted("play")

		c.host.SendIngameMessage("Start playing TAS.")
		c.logger.Info("▶️ Воспроизведение %s: %d кадров", c.playback.Name(), c.playback.FrameCount())
		c.events.publish(EventPlaybackStarted, SessionEvent{
			Record: c.playback.Name(),
			Path:   c.playback.Path(),
			Map:    c.playback.MapName(),
			Frames: c.playback.FrameCount(),
			Legacy: c.playback.IsLegacy(),
		})
	}
}

func (c *Controller) stopLocked(reason string) {
	if !c.enabled || c.state == Idle {
		return
	}

	if c.state&Recording != 0 {
		c.host.SendIngameMessage("TAS recording stopped.")

		p := c.saver.Reserve(c.mapName, time.Now())
		c.recording.SetName(filepath.Base(p))
		c.recording.SetPath(p)
		c.recording.SetMapName(c.mapName)
		c.recording.SetLegacy(c.opts.Legacy)

		ev := SessionEvent{
			SessionID: c.sessionID,
			Record:    c.recording.Name(),
			Path:      p,
			Map:       c.mapName,
			Frames:    c.recording.FrameCount(),
			Reason:    reason,
			Degraded:  c.recording.HasFlag(record.FlagNonDeterministic),
			Legacy:    c.opts.Legacy,
		}
		c.saver.Submit(c.recording.Detach(), c.sessionID)

		c.host.SendIngameMessage("TAS record saved to " + ev.Record)
		c.logger.Info("⏹️ Запись остановлена (%s): %d кадров -> %s", reason, ev.Frames, p)
		c.events.publish(EventRecordingStopped, ev)

		c.opts.Record = false
		c.sessionID = ""
	}

	exit := false
	if c.state&Playing != 0 {
		input.Neutralize(c.host.Keyboard(), c.bindings)

		ev := SessionEvent{
			Record: c.playback.Name(),
			Path:   c.playback.Path(),
			Map:    c.playback.MapName(),
			Frames: c.playback.FrameIndex(),
			Reason: reason,
		}
		c.playback.Clear()

		c.host.SendIngameMessage("TAS playing stopped.")
		c.logger.Info("⏹️ Воспроизведение остановлено (%s) на кадре %d", reason, ev.Frames)
		c.events.publish(EventPlaybackStopped, ev)
		exit = c.opts.ExitOnFinish
	}

	if !c.opts.Legacy && c.abi != nil {
		abi := c.abi
		c.host.AddTimer(1, func() {
			if err := abi.SetTimeFactor(1); err != nil {
				c.logger.Warn("⚠️ Не удалось восстановить множитель времени: %v", err)
			}
		})
	}

	c.state = Idle
	if exit {
		c.host.ExitGame()
	}
}

// === Перехваченные точки входа ===

// onTimeStep вызывается после исходного TimeStep
func (c *Controller) onTimeStep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	tm := c.host.TimeManager()
	raw := tm.LastDeltaTime()

	if c.state&Playing != 0 {
		if frame, ok := c.playback.CurrentFrame(); ok {
			tm.SetLastDeltaTime(frame.DeltaTime)
		} else {
			c.stopLocked(StopEndOfRecord)
		}
	}

	if c.state&Recording != 0 {
		dt := raw
		if c.opts.CaptureReplayedInput {
			dt = tm.LastDeltaTime()
		}
		c.recording.NewFrame(record.Frame{DeltaTime: dt})
		c.metrics.FrameRecorded()
	}
}

// onInputSample вызывается после исходного InputSample
func (c *Controller) onInputSample() {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := c.host.Keyboard()
	raw := input.Sample(buf, c.bindings)

	if c.state&Playing != 0 {
		if frame, ok := c.playback.CurrentFrame(); ok {
			input.Apply(buf, c.bindings, frame.Input)
			c.playback.NextFrame()
			c.metrics.FramePlayed()
		} else {
			c.stopLocked(StopEndOfRecord)
		}
	}

	if c.state&Recording != 0 {
		keys := raw
		if c.opts.CaptureReplayedInput {
			keys = input.Sample(buf, c.bindings)
		}
		if frame, ok := c.recording.CurrentFrame(); ok {
			frame.Input = keys
		}
	}
}

// === host.Listener ===

var _ host.Listener = (*Controller)(nil)

// OnLoadMap запоминает имя карты без каталога и расширения
func (c *Controller) OnLoadMap(filename string) {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.TrimSuffix(name, path.Ext(name))

	c.mu.Lock()
	c.mapName = name
	c.mu.Unlock()
}

// OnPostStartMenu при первом показе меню загружает запись из настроек
func (c *Controller) OnPostStartMenu() {
	c.mu.Lock()
	first := !c.menuSeen
	c.menuSeen = true
	enabled := c.enabled
	name := c.opts.AutoLoadTAS
	level := c.opts.AutoLoadLevel
	c.mu.Unlock()

	if !first || !enabled || name == "" {
		return
	}

	c.host.SendIngameMessage("Loading TAS Record: " + name + tasfile.Ext)
	if err := c.LoadRecord(context.Background(), name); err != nil {
		return
	}

	if level < firstLevel || level > lastLevel {
		return
	}
	loader, ok := c.host.(LevelLoader)
	if !ok {
		c.logger.Warn("⚠️ Хост не умеет загружать уровень %d автоматически", level)
		return
	}
	c.host.AddTimer(2, func() { loader.LoadLevelNumber(level) })
}

func (c *Controller) OnPreLoadLevel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.Legacy {
		c.startLocked()
	}
}

func (c *Controller) OnStartLevel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opts.Legacy {
		c.startLocked()
	}
	c.openSectorLocked()
}

func (c *Controller) OnPreResetLevel() { c.Stop(StopLevelReset) }
func (c *Controller) OnPreExitLevel()  { c.Stop(StopLevelExit) }

func (c *Controller) OnLevelFinish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeSectorLocked()
	c.stopLocked(StopFinish)
}

func (c *Controller) OnPreCheckpoint() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeSectorLocked()
}

func (c *Controller) OnPostCheckpoint() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openSectorLocked()
}

func (c *Controller) OnBallOff() {
	c.mu.Lock()
	exit := c.enabled && c.state&Playing != 0 && c.opts.ExitOnDead
	c.mu.Unlock()
	if exit {
		c.host.ExitGame()
	}
}

// OnProcess обработка кадра: читы, пропуск отрисовки, клавиши остановки и выхода
func (c *Controller) OnProcess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	if c.state&Recording != 0 && c.host.IsCheatEnabled() {
		c.logger.Warn("⚠️ Включены читы, запись остановлена")
		c.stopLocked(StopCheat)
	}
	if c.state&Playing == 0 {
		return
	}

	if c.playback.FrameIndex() < c.opts.SkipRenderUntil {
		c.host.SkipRenderForNextTick()
	}

	buf := c.host.Keyboard()
	stop := input.Pressed(buf, c.opts.StopKey)
	exit := input.Pressed(buf, c.opts.ExitKey)
	if stop {
		c.stopLocked(StopKey)
	}
	if exit {
		c.stopLocked(StopExitKey)
		c.host.ExitGame()
	}
}

func (c *Controller) openSectorLocked() {
	if c.state&Recording == 0 {
		return
	}
	sector := c.recording.NewSector()
	if pos, ok := c.host.ActiveBall(); ok {
		sector.StartPosition = pos
	}
	c.logger.Debug("Сектор %d начат на кадре %d", sector.ID, sector.FrameStart)
}

func (c *Controller) closeSectorLocked() {
	if c.state&Recording == 0 {
		return
	}
	sector, ok := c.recording.CurrentSector()
	if !ok {
		return
	}
	sector.FrameEnd = int32(c.recording.FrameIndex())
	if pos, ok := c.host.ActiveBall(); ok {
		sector.EndPosition = pos
	}
	c.logger.Debug("Сектор %d закончен на кадре %d", sector.ID, sector.FrameEnd)
}
