package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Компоненты, для которых заведены отдельные файлы логов
const (
	ComponentTAS     = "tas"
	ComponentHook    = "hook"
	ComponentStorage = "storage"
	ComponentHost    = "host"
)

type levels struct {
	console LogLevel
	file    LogLevel
}

// LoggerManager хранит по одному логгеру на компонент. Уровни, заданные до
// создания логгера, применяются при его создании.
type LoggerManager struct {
	mu       sync.RWMutex
	loggers  map[string]*Logger
	pending  map[string]levels
	fallback *levels
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers: make(map[string]*Logger),
		pending: make(map[string]levels),
	}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая файл при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	lm.applyLocked(component, logger)
	lm.loggers[component] = logger
	return logger, nil
}

func (lm *LoggerManager) applyLocked(component string, l *Logger) {
	lv, ok := lm.pending[component]
	if !ok && lm.fallback != nil {
		lv, ok = *lm.fallback, true
	}
	if !ok {
		return
	}
	l.mu.Lock()
	l.minConsoleLevel = lv.console
	l.minFileLevel = lv.file
	l.mu.Unlock()
}

// MustGetLogger возвращает логгер компонента; если файл создать нельзя,
// логгер пишет только в stdout начиная с INFO
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}
	l := NewWriterLogger(component, os.Stdout)
	l.minConsoleLevel = INFO
	return l
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []string
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("ошибка закрытия логгеров: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ListComponents возвращает имена созданных логгеров по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// SetLogLevel задаёт уровни компонента. Для ещё не созданного логгера
// уровни запоминаются и применяются при создании.
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.pending[component] = levels{console: consoleLevel, file: fileLevel}
	if logger, ok := lm.loggers[component]; ok {
		lm.applyLocked(component, logger)
	}
}

// SetAllLevels задаёт уровни всем существующим и будущим логгерам,
// кроме компонентов с уровнями из SetLogLevel
func (lm *LoggerManager) SetAllLevels(consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.fallback = &levels{console: consoleLevel, file: fileLevel}
	for component, logger := range lm.loggers {
		lm.applyLocked(component, logger)
	}
}

// ParseLevel разбирает имя уровня (trace, debug, info, warn, error)
func ParseLevel(name string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return TRACE, true
	case "DEBUG":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARN", "WARNING":
		return WARN, true
	case "ERROR":
		return ERROR, true
	}
	return INFO, false
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetTASLogger() *Logger     { return GetComponentLogger(ComponentTAS) }
func GetHookLogger() *Logger    { return GetComponentLogger(ComponentHook) }
func GetStorageLogger() *Logger { return GetComponentLogger(ComponentStorage) }
func GetHostLogger() *Logger    { return GetComponentLogger(ComponentHost) }
