package hostabi

import (
	"io"
	"testing"

	"github.com/annel0/tas-replay/internal/determinism"
	"github.com/annel0/tas-replay/internal/host"
	"github.com/annel0/tas-replay/internal/host/simhost"
	"github.com/annel0/tas-replay/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUnsupportedBuild(t *testing.T) {
	h := simhost.New(simhost.Options{Seed: 1, Build: 0x0000FF})
	_, err := Detect(h.Physics())
	assert.ErrorIs(t, err, ErrUnsupportedBuild)

	_, err = Detect(host.Physics{Build: BuildOffsets})
	assert.ErrorIs(t, err, ErrUnsupportedBuild, "сборка со смещениями без памяти")
}

func TestResetPhysicsTime(t *testing.T) {
	for _, build := range []uint32{BuildOffsets, BuildMethods} {
		h := simhost.New(simhost.Options{Seed: 3, Build: build, BaseDelta: 16.666, Jitter: 1})
		require.NoError(t, h.Run(10))

		current, _ := h.PhysicsClock()
		require.Greater(t, current, 0.0)

		abi, err := Detect(h.Physics())
		require.NoError(t, err)
		assert.Equal(t, build, abi.Build())

		require.NoError(t, abi.ResetPhysicsTime(16))
		current, next := h.PhysicsClock()
		assert.Equal(t, 0.0, current)
		assert.InDelta(t, 1.0/66, next, 1e-12)
	}
}

func TestResetPhysicsTimeClearsClockFields(t *testing.T) {
	h := simhost.New(simhost.Options{Seed: 5, Build: BuildOffsets, BaseDelta: 16.666, Jitter: 1})
	require.NoError(t, h.Run(20))

	abi, err := Detect(h.Physics())
	require.NoError(t, err)
	oa, ok := abi.(*offsetABI)
	require.True(t, ok)
	require.NoError(t, oa.ResetPhysicsTime(12))

	env, err := oa.env()
	require.NoError(t, err)
	tm, err := oa.mem.ReadPtr(env + offEnvTimeManager)
	require.NoError(t, err)

	for name, addr := range map[string]uintptr{
		"base time": tm + offTimeManagerBaseTime,
		"current":   env + offEnvCurrentTime,
		"last psi":  env + offEnvTimeOfLastPSI,
	} {
		v, err := oa.mem.ReadF64(addr)
		require.NoError(t, err)
		assert.Equal(t, 0.0, v, name)
	}
	next, err := oa.mem.ReadF64(env + offEnvTimeOfNextPSI)
	require.NoError(t, err)
	assert.Equal(t, psiInterval, next)
}

func TestSetTimeFactor(t *testing.T) {
	h := simhost.New(simhost.DefaultOptions(1))
	abi, err := Detect(h.Physics())
	require.NoError(t, err)

	require.NoError(t, abi.SetTimeFactor(2))
	assert.InDelta(t, 0.002, h.TimeFactor(), 1e-9)
	require.NoError(t, abi.SetTimeFactor(1))
	assert.InDelta(t, 0.001, h.TimeFactor(), 1e-9)
}

func TestMovementCheckStandIn(t *testing.T) {
	h := simhost.New(simhost.DefaultOptions(1))
	abi, err := Detect(h.Physics())
	require.NoError(t, err)

	n := determinism.NewNormalizer(logging.NewWriterLogger("test", io.Discard))
	require.NoError(t, n.Install(abi.Sources(h.Nondeterminism())))
	defer n.Uninstall()

	nd := h.Nondeterminism()
	for i := 0; i < 5; i++ {
		assert.Equal(t, int32(1), nd.MovementCheck.Load()())
		assert.Equal(t, int16(0), simhost.MovementCheckCounter(h))
	}
	assert.Equal(t, determinism.QHRandMax, nd.QHRand.Load()())
}

func TestNormalizedRunsAreIdentical(t *testing.T) {
	run := func(seed int64) simhost.Ball {
		h := simhost.New(simhost.Options{Seed: seed, Build: BuildOffsets, BaseDelta: 16, Jitter: 0})
		abi, err := Detect(h.Physics())
		require.NoError(t, err)
		n := determinism.NewNormalizer(logging.NewWriterLogger("test", io.Discard))
		require.NoError(t, n.Install(abi.Sources(h.Nondeterminism())))
		defer n.Uninstall()
		require.NoError(t, h.Run(120))
		return h.Ball()
	}

	// Разные сиды генераторов, одинаковые часы (Jitter=0): с нормализатором результат совпадает
	assert.Equal(t, run(1), run(2))
}
