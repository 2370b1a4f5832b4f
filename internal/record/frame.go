// Package record содержит модель записи TAS: кадры, секторы и курсоры чтения/записи.
package record

import (
	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/vec"
)

// Frame данные одного тика: шаг времени и состояние клавиш
type Frame struct {
	DeltaTime float32
	Input     input.KeyState
}

// ObjectID непрозрачный идентификатор объекта хоста
type ObjectID uint32

// Sector поддиапазон кадров, соответствующий участку уровня.
// FrameEnd выставляет вызывающая сторона; модель сама сектор не закрывает.
type Sector struct {
	ID            int32
	FrameStart    int32
	FrameEnd      int32
	StartPosition vec.Vec3
	EndPosition   vec.Vec3
	Objects       []ObjectID
}

// Len возвращает длину закрытого сектора в кадрах
func (s *Sector) Len() int {
	if s.FrameEnd < s.FrameStart {
		return 0
	}
	return int(s.FrameEnd - s.FrameStart)
}
