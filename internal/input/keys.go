// Package input описывает состояние клавиатуры, которое записывается в каждый кадр TAS.
package input

// KeyCode код клавиши хоста (скан-код DirectInput), индекс в буфере клавиатуры
type KeyCode uint8

const (
	KeyEscape KeyCode = 0x01
	KeyQ      KeyCode = 0x10
	KeyReturn KeyCode = 0x1C
	KeyLShift KeyCode = 0x2A
	KeySpace  KeyCode = 0x39
	KeyF3     KeyCode = 0x3D
	KeyUp     KeyCode = 0xC8
	KeyLeft   KeyCode = 0xCB
	KeyRight  KeyCode = 0xCD
	KeyDown   KeyCode = 0xD0
	KeyDelete KeyCode = 0xD3
)

// BufferSize размер буфера состояния клавиатуры хоста
const BufferSize = 256

// Состояния байта в буфере клавиатуры
const (
	KeyIdle     byte = 0
	KeyPressed  byte = 1
	KeyReleased byte = 2
)

// Bindings привязка логических клавиш к кодам хоста.
// Шесть клавиш управления переназначаются игроком, Q/Esc/Enter фиксированы.
type Bindings struct {
	Up    KeyCode
	Down  KeyCode
	Left  KeyCode
	Right KeyCode
	Shift KeyCode
	Space KeyCode
}

// DefaultBindings возвращает раскладку хоста по умолчанию
func DefaultBindings() Bindings {
	return Bindings{
		Up:    KeyUp,
		Down:  KeyDown,
		Left:  KeyLeft,
		Right: KeyRight,
		Shift: KeyLShift,
		Space: KeySpace,
	}
}

// codes возвращает коды клавиш в порядке битов KeyState
func (b Bindings) codes() [keyCount]KeyCode {
	return [keyCount]KeyCode{
		b.Up, b.Down, b.Left, b.Right, b.Shift, b.Space,
		KeyQ, KeyEscape, KeyReturn,
	}
}

// ParseKey переводит имя клавиши из конфигурации в код
func ParseKey(name string) (KeyCode, bool) {
	code, ok := keyNames[name]
	return code, ok
}

var keyNames = map[string]KeyCode{
	"esc":    KeyEscape,
	"escape": KeyEscape,
	"q":      KeyQ,
	"enter":  KeyReturn,
	"return": KeyReturn,
	"lshift": KeyLShift,
	"shift":  KeyLShift,
	"space":  KeySpace,
	"f3":     KeyF3,
	"up":     KeyUp,
	"left":   KeyLeft,
	"right":  KeyRight,
	"down":   KeyDown,
	"delete": KeyDelete,
	"del":    KeyDelete,
}

// Pressed сообщает, нажата ли клавиша code в буфере хоста
func Pressed(buf []byte, code KeyCode) bool {
	if len(buf) < BufferSize {
		return false
	}
	return buf[code]&KeyPressed != 0
}
