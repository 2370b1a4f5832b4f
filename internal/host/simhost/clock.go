package simhost

import (
	"github.com/aquilax/go-perlin"
)

// physicalClock выдаёт «реальную» длительность кадра: базовый шаг плюс
// плавный шум Перлина, имитирующий дрожание таймера хоста
type physicalClock struct {
	noise     *perlin.Perlin
	base      float32
	amplitude float32
}

func newPhysicalClock(seed int64, base, amplitude float32) *physicalClock {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &physicalClock{
		noise:     perlin.NewPerlin(alpha, beta, n, seed),
		base:      base,
		amplitude: amplitude,
	}
}

// delta возвращает длительность кадра tick в миллисекундах
func (c *physicalClock) delta(tick int) float32 {
	// Шум в диапазоне примерно [-1, 1]
	n := c.noise.Noise1D(float64(tick)*0.37 + 0.5)
	d := c.base + float32(n)*c.amplitude
	if d < 1 {
		d = 1
	}
	return d
}
