package input

import "strings"

// KeyState набор логических клавиш одного кадра.
//
// Порядок битов является частью формата файла и не меняется:
//
//	bit 0 up, 1 down, 2 left, 3 right, 4 shift, 5 space, 6 q, 7 esc, 8 enter
type KeyState uint16

const (
	Up KeyState = 1 << iota
	Down
	Left
	Right
	Shift
	Space
	Q
	Esc
	Enter
)

const keyCount = 9

// AllKeys маска всех известных битов
const AllKeys KeyState = 1<<keyCount - 1

var keyLabels = [keyCount]string{"up", "down", "left", "right", "shift", "space", "q", "esc", "enter"}

// Has проверяет, нажаты ли все клавиши из k
func (s KeyState) Has(k KeyState) bool {
	return s&k == k
}

// With возвращает состояние с добавленными клавишами
func (s KeyState) With(k KeyState) KeyState {
	return s | k
}

// Without возвращает состояние без указанных клавиш
func (s KeyState) Without(k KeyState) KeyState {
	return s &^ k
}

// Valid сообщает, что установлены только известные биты
func (s KeyState) Valid() bool {
	return s&^AllKeys == 0
}

// String возвращает "up+right" или "-" для пустого состояния
func (s KeyState) String() string {
	if s&AllKeys == 0 {
		return "-"
	}
	parts := make([]string, 0, keyCount)
	for i := 0; i < keyCount; i++ {
		if s&(1<<i) != 0 {
			parts = append(parts, keyLabels[i])
		}
	}
	return strings.Join(parts, "+")
}

// Sample считывает состояние клавиш из буфера хоста.
// Нажатой считается клавиша с установленным младшим битом (KeyPressed).
func Sample(buf []byte, b Bindings) KeyState {
	var s KeyState
	if len(buf) < BufferSize {
		return s
	}
	for i, code := range b.codes() {
		if buf[code]&1 != 0 {
			s |= 1 << i
		}
	}
	return s
}

// Apply записывает состояние в буфер хоста
func Apply(buf []byte, b Bindings, s KeyState) {
	if len(buf) < BufferSize {
		return
	}
	for i, code := range b.codes() {
		if s&(1<<i) != 0 {
			buf[code] = KeyPressed
		} else {
			buf[code] = KeyIdle
		}
	}
}

// Neutralize отпускает все отслеживаемые клавиши, чтобы после остановки
// воспроизведения ни одна клавиша не осталась зажатой
func Neutralize(buf []byte, b Bindings) {
	if len(buf) < BufferSize {
		return
	}
	for _, code := range b.codes() {
		buf[code] = KeyIdle
	}
}
