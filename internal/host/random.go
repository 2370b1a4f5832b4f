package host

// RandomKind тип значения, запрошенного у генератора случайных чисел хоста
type RandomKind uint8

const (
	RandomFloat RandomKind = iota
	RandomInt
	RandomVec3
	RandomVec2
	RandomRect
	RandomBool
	RandomColor
)

func (k RandomKind) String() string {
	switch k {
	case RandomFloat:
		return "float"
	case RandomInt:
		return "int"
	case RandomVec3:
		return "vec3"
	case RandomVec2:
		return "vec2"
	case RandomRect:
		return "rect"
	case RandomBool:
		return "bool"
	case RandomColor:
		return "color"
	default:
		return "unknown"
	}
}

// Components возвращает число вещественных компонент значения вида k
func (k RandomKind) Components() int {
	switch k {
	case RandomFloat:
		return 1
	case RandomVec2:
		return 2
	case RandomVec3:
		return 3
	case RandomRect, RandomColor:
		return 4
	default:
		return 0
	}
}

// RandomValue значение генератора. Вещественные виды используют F
// (x,y,z / left,top,right,bottom / r,g,b,a), RandomInt использует I, RandomBool: B.
type RandomValue struct {
	F [4]float32
	I int32
	B bool
}

// RandomFunc генератор хоста: значение вида kind в диапазоне [min, max)
type RandomFunc func(kind RandomKind, min, max RandomValue) RandomValue

// Nondeterminism ячейки недетерминированных подпрограмм хоста.
// Нулевая ячейка означает, что хост её не предоставляет.
type Nondeterminism struct {
	// QHRand внутренний генератор физического движка
	QHRand Slot[func() int32]
	// MovementCheck троттлинг проверки движения физического движка
	MovementCheck Slot[func() int32]
	// Random генератор поведенческих скриптов
	Random Slot[RandomFunc]
}
