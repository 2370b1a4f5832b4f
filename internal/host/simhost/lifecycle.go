package simhost

import "fmt"

// Сигналы жизненного цикла уровня. Вызываются между тиками, как это делает
// скриптовая система настоящего хоста.

// LoadLevel загружает карту: OnLoadMap, затем OnPreLoadLevel
func (h *Host) LoadLevel(mapFile string) {
	h.ball = Ball{}
	if h.listener != nil {
		h.listener.OnLoadMap(mapFile)
		h.listener.OnPreLoadLevel()
	}
}

func (h *Host) StartMenu() {
	if h.listener != nil {
		h.listener.OnPostStartMenu()
	}
}

func (h *Host) StartLevel() {
	if h.listener != nil {
		h.listener.OnStartLevel()
	}
}

func (h *Host) ReachCheckpoint() {
	if h.listener != nil {
		h.listener.OnPreCheckpoint()
		h.listener.OnPostCheckpoint()
	}
}

func (h *Host) FinishLevel() {
	if h.listener != nil {
		h.listener.OnLevelFinish()
	}
}

func (h *Host) ResetLevel() {
	if h.listener != nil {
		h.listener.OnPreResetLevel()
	}
	h.ball = Ball{}
}

func (h *Host) ExitLevel() {
	if h.listener != nil {
		h.listener.OnPreExitLevel()
	}
}

func (h *Host) BallOff() {
	if h.listener != nil {
		h.listener.OnBallOff()
	}
}

// LoadLevelNumber загружает уровень по номеру и стартует его
func (h *Host) LoadLevelNumber(level int) {
	h.LoadLevel(fmt.Sprintf("3D Entities\\Level\\Level_%02d.NMO", level))
	h.StartLevel()
}
