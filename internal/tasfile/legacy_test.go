package tasfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyRoundTrip(t *testing.T) {
	src := record.New("old", "", true)
	src.NewFrame(record.Frame{DeltaTime: 16, Input: input.Up})
	src.NewFrame(record.Frame{DeltaTime: 16, Input: input.Up | input.Right})
	src.NewFrame(record.Frame{DeltaTime: 15.5})

	data, err := EncodeLegacy(src)
	require.NoError(t, err)
	assert.False(t, IsContainer(data))

	dst := record.New("old", "", true)
	require.NoError(t, DecodeLegacy(data, dst))
	assert.True(t, dst.IsLoaded())
	assert.Equal(t, src.Frames(), dst.Frames())
	assert.Empty(t, dst.Sectors())
}

func TestLegacySaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.tas")
	src := record.New("old", path, true)
	for i := 0; i < 50; i++ {
		src.NewFrame(record.Frame{DeltaTime: float32(i), Input: input.Space})
	}
	require.NoError(t, Save(context.Background(), src))

	dst := record.New("old", path, true)
	require.NoError(t, Load(context.Background(), dst))
	assert.Equal(t, src.Frames(), dst.Frames())
}

func TestLegacyRejectsBadLength(t *testing.T) {
	src := record.New("old", "", true)
	src.NewFrame(record.Frame{DeltaTime: 1})
	data, err := EncodeLegacy(src)
	require.NoError(t, err)

	data[0] = 9
	dst := record.New("old", "", true)
	err = DecodeLegacy(data, dst)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.False(t, dst.IsLoaded())
}

func TestContainerIsNotLegacy(t *testing.T) {
	data, _, err := Encode(record.New("x", "", false))
	require.NoError(t, err)
	assert.True(t, IsContainer(data))
	assert.NotZero(t, Magic%legacyFrameSize)
}
