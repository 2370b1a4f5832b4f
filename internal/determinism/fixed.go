package determinism

import "github.com/annel0/tas-replay/internal/host"

const (
	// RandMax верхняя граница генератора поведенческих скриптов
	RandMax = 0x7fff
	// FixedRandomValue значение, которое «выпадает» при закреплённом генераторе
	FixedRandomValue = RandMax / 2
	// QHRandMax максимум внутреннего генератора физического движка
	QHRandMax int32 = 2147483646
)

// FixedQHRand всегда возвращает максимум внутреннего генератора
func FixedQHRand() int32 { return QHRandMax }

// FixedRandom возвращает значение около середины [min, max) для вещественных и
// целых видов и фиксированный бит FixedRandomValue для логического вида
func FixedRandom(kind host.RandomKind, min, max host.RandomValue) host.RandomValue {
	var out host.RandomValue
	switch kind {
	case host.RandomInt:
		out.I = int32(int64(min.I) + int64(FixedRandomValue)*(int64(max.I)-int64(min.I))/RandMax)
	case host.RandomBool:
		out.B = FixedRandomValue&1 != 0
	default:
		for i := 0; i < kind.Components(); i++ {
			out.F[i] = min.F[i] + float32(FixedRandomValue)*(max.F[i]-min.F[i])/RandMax
		}
	}
	return out
}
