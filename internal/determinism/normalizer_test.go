package determinism

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/annel0/tas-replay/internal/host"
	"github.com/annel0/tas-replay/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(logging.NewWriterLogger("determinism", io.Discard))
}

func TestFixedRandomNearMidpoint(t *testing.T) {
	v := FixedRandom(host.RandomFloat,
		host.RandomValue{F: [4]float32{0}},
		host.RandomValue{F: [4]float32{10}})
	assert.InDelta(t, 5.0, v.F[0], 0.001)

	iv := FixedRandom(host.RandomInt, host.RandomValue{I: 0}, host.RandomValue{I: 100})
	assert.Equal(t, int32(49), iv.I)

	bv := FixedRandom(host.RandomBool, host.RandomValue{}, host.RandomValue{})
	assert.True(t, bv.B)

	c := FixedRandom(host.RandomColor,
		host.RandomValue{F: [4]float32{0, 0, 0, 0}},
		host.RandomValue{F: [4]float32{1, 2, 3, 4}})
	for i := 0; i < 4; i++ {
		assert.InDelta(t, float64(i+1)/2, c.F[i], 0.001)
	}

	// Повторные вызовы дают то же значение
	assert.Equal(t, v, FixedRandom(host.RandomFloat,
		host.RandomValue{F: [4]float32{0}},
		host.RandomValue{F: [4]float32{10}}))
	assert.Equal(t, QHRandMax, FixedQHRand())
}

func TestFixedRandomIntFullRange(t *testing.T) {
	lo := host.RandomValue{I: math.MinInt32}
	hi := host.RandomValue{I: math.MaxInt32}
	v := FixedRandom(host.RandomInt, lo, hi)
	assert.GreaterOrEqual(t, v.I, lo.I)
	assert.Less(t, v.I, hi.I)
	assert.Equal(t, int32(-65539), v.I)

	v = FixedRandom(host.RandomInt, host.RandomValue{I: -2_000_000_000}, host.RandomValue{I: 2_000_000_000})
	assert.InDelta(t, 0, v.I, 200_000)
}

func TestNormalizerPinsAndRestores(t *testing.T) {
	n := newTestNormalizer()
	qh := host.NewAtomicSlot(func() int32 { return 1 })
	src := NewSlotSource[func() int32]("qh_rand", qh, FixedQHRand)

	require.NoError(t, n.Install([]Source{src}))
	assert.True(t, n.Installed())
	assert.Equal(t, QHRandMax, qh.Load()())

	require.NoError(t, n.Install([]Source{src}), "повторная установка ничего не меняет")

	require.NoError(t, n.Uninstall())
	assert.False(t, n.Installed())
	assert.Equal(t, int32(1), qh.Load()())
}

func TestNormalizerDegradedOnMissingSource(t *testing.T) {
	n := newTestNormalizer()
	qh := host.NewAtomicSlot(func() int32 { return 1 })
	sources := []Source{
		NewSlotSource[func() int32]("qh_rand", qh, FixedQHRand),
		NewSlotSource[func() int32]("movement_check", nil, func() int32 { return 1 }),
	}

	err := n.Install(sources)
	var hie *HookInstallError
	require.True(t, errors.As(err, &hie))
	assert.Equal(t, "movement_check", hie.Source)
	assert.ErrorIs(t, err, ErrSourceMissing)

	degraded, reason := n.Degraded()
	assert.True(t, degraded)
	assert.Error(t, reason)
	assert.False(t, n.Installed())
	assert.Equal(t, int32(1), qh.Load()(), "закреплённые источники откатываются")
}

func TestMarkDegraded(t *testing.T) {
	n := newTestNormalizer()
	n.MarkDegraded(errors.New("сборка не распознана"))
	degraded, _ := n.Degraded()
	assert.True(t, degraded)

	require.NoError(t, n.Uninstall())
	degraded, _ = n.Degraded()
	assert.False(t, degraded)
}
