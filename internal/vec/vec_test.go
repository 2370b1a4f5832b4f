package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: 0.5, Y: -2, Z: 1}

	assert.Equal(t, Vec3{X: 1.5, Y: 0, Z: 4}, a.Add(b))
	assert.Equal(t, Vec3{X: 0.5, Y: 4, Z: 2}, a.Sub(b))
	assert.Equal(t, Vec3{X: 2, Y: 4, Z: 6}, a.Mul(2))
	assert.True(t, a.Equals(Vec3{X: 1, Y: 2, Z: 3}))
	assert.False(t, a.Equals(b))
}

func TestVec3Length(t *testing.T) {
	v := Vec3{X: 3, Y: 4}
	assert.InDelta(t, 5.0, v.Length(), 1e-9)
	assert.InDelta(t, 5.0, Vec3{}.DistanceTo(v), 1e-9)
	assert.Equal(t, Vec2{X: 3, Y: 4}, v.ToVec2())
	assert.InDelta(t, 5.0, v.ToVec2().Length(), 1e-9)
}
