package hook

import (
	"testing"

	"github.com/annel0/tas-replay/internal/host"
	"github.com/annel0/tas-replay/internal/host/simhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterceptorCallsObserversOncePerTick(t *testing.T) {
	reg := newTestRegistry()
	h := simhost.New(simhost.DefaultOptions(1))
	ic := NewInterceptor(reg, "tas", h)

	var order []string
	require.NoError(t, ic.Enable(
		func() { order = append(order, "time") },
		func() { order = append(order, "input") },
	))
	assert.True(t, ic.Enabled())

	require.NoError(t, h.Run(3))
	assert.Equal(t, []string{"time", "input", "time", "input", "time", "input"}, order)

	require.NoError(t, ic.Disable())
	require.NoError(t, h.Run(2))
	assert.Len(t, order, 6)
	assert.False(t, ic.Enabled())
}

func TestInterceptorPostSeesOriginalEffects(t *testing.T) {
	reg := newTestRegistry()
	h := simhost.New(simhost.DefaultOptions(7))
	ic := NewInterceptor(reg, "tas", h)

	var seen float32
	require.NoError(t, ic.Enable(func() { seen = h.TimeManager().LastDeltaTime() }, func() {}))
	require.NoError(t, h.Tick())
	assert.Greater(t, seen, float32(0), "исходная реализация уже выставила длительность кадра")
}

func TestInterceptorRollsBackOnPartialFailure(t *testing.T) {
	reg := newTestRegistry()
	h := simhost.New(simhost.DefaultOptions(1))

	// Вход ввода уже занят другим владельцем
	require.NoError(t, reg.Enable("other", host.InputSample, h.Entry(host.InputSample), func() {}))

	ic := NewInterceptor(reg, "tas", h)
	err := ic.Enable(func() {}, func() {})
	assert.ErrorIs(t, err, ErrHookBusy)
	assert.False(t, ic.Enabled())

	_, ok := reg.Owner(host.TimeStep)
	assert.False(t, ok, "перехват времени откатан")
}
