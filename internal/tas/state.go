// Package tas: контроллер сессии TAS: по сигналам хоста и перехваченным точкам
// входа записывает кадры в новую запись, подставляет кадры загруженной записи
// и передаёт законченные записи на асинхронное сохранение.
package tas

import "strings"

// State набор независимых битов состояния сессии
type State uint8

const (
	Idle      State = 0
	Recording State = 1 << 0
	Playing   State = 1 << 1
)

func (s State) String() string {
	if s == Idle {
		return "idle"
	}
	var parts []string
	if s&Recording != 0 {
		parts = append(parts, "recording")
	}
	if s&Playing != 0 {
		parts = append(parts, "playing")
	}
	return strings.Join(parts, "+")
}

// Причины остановки сессии
const (
	StopRequested   = "requested"
	StopEndOfRecord = "end_of_record"
	StopLevelReset  = "level_reset"
	StopLevelExit   = "level_exit"
	StopFinish      = "level_finish"
	StopCheat       = "cheat"
	StopKey         = "stop_key"
	StopExitKey     = "exit_key"
	StopShutdown    = "shutdown"
)
