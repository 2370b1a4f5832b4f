package tas

import (
	"fmt"

	"github.com/annel0/tas-replay/internal/config"
	"github.com/annel0/tas-replay/internal/input"
)

// Options настройки контроллера
type Options struct {
	Enabled bool
	// Record намерение записывать при следующем старте уровня; сбрасывается после записи
	Record bool
	// Legacy режим совместимости: старт на предзагрузке уровня, старый формат
	// файлов, нормализатор не устанавливается
	Legacy     bool
	RecordsDir string

	StopKey input.KeyCode
	ExitKey input.KeyCode

	SkipRenderUntil int
	ExitOnDead      bool
	ExitOnFinish    bool

	AutoLoadTAS   string
	AutoLoadLevel int

	CaptureReplayedInput bool
	Zstd                 bool
}

// DefaultOptions возвращает настройки по умолчанию
func DefaultOptions() Options {
	return Options{
		Enabled:    true,
		RecordsDir: "tas",
		StopKey:    input.KeyF3,
		ExitKey:    input.KeyDelete,
	}
}

// OptionsFromConfig строит настройки из секции tas конфигурации
func OptionsFromConfig(c config.TASConfig) (Options, error) {
	stop, ok := input.ParseKey(c.GetStopKey())
	if !ok {
		return Options{}, fmt.Errorf("tas.stop_key: неизвестная клавиша %q", c.GetStopKey())
	}
	exit, ok := input.ParseKey(c.GetExitKey())
	if !ok {
		return Options{}, fmt.Errorf("tas.exit_key: неизвестная клавиша %q", c.GetExitKey())
	}

	return Options{
		Enabled:              c.Enabled,
		Record:               c.Record,
		Legacy:               c.LegacyMode,
		RecordsDir:           c.GetRecordsDir(),
		StopKey:              stop,
		ExitKey:              exit,
		SkipRenderUntil:      c.SkipRenderUntil,
		ExitOnDead:           c.ExitOnDead,
		ExitOnFinish:         c.ExitOnFinish,
		AutoLoadTAS:          c.AutoLoadTAS,
		AutoLoadLevel:        c.AutoLoadLevel,
		CaptureReplayedInput: c.CaptureReplayedInput,
		Zstd:                 c.GetCompression() == "zstd",
	}, nil
}
