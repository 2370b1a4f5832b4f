package vec

import "math"

// Vec3 представляет трехмерный вектор с координатами float32.
// Совпадает по точности с векторами хоста, поэтому пишется в файл записи без потерь.
type Vec3 struct {
	X float32
	Y float32
	Z float32
}

// Equals проверяет точное (побитовое по значению) равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Mul умножает вектор на скаляр
func (v Vec3) Mul(scalar float32) Vec3 {
	return Vec3{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Length возвращает длину вектора
func (v Vec3) Length() float64 {
	return math.Sqrt(float64(v.X)*float64(v.X) + float64(v.Y)*float64(v.Y) + float64(v.Z)*float64(v.Z))
}

// DistanceTo возвращает расстояние до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Length()
}

// ToVec2 отбрасывает координату Z
func (v Vec3) ToVec2() Vec2 {
	return Vec2{X: v.X, Y: v.Y}
}
