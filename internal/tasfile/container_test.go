package tasfile

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/record"
	"github.com/annel0/tas-replay/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(flags record.Flag) *record.Record {
	rec := record.New("sample", "", false)
	rec.SetMapName("Level_03")
	rec.SetFlags(flags)

	s := rec.NewSector()
	s.StartPosition = vec.Vec3{X: 1, Y: 2, Z: 3}
	for i := 0; i < 120; i++ {
		rec.NewFrame(record.Frame{DeltaTime: 16.666, Input: input.KeyState(i % 512)})
	}
	s.FrameEnd = int32(rec.FrameIndex())
	s.EndPosition = vec.Vec3{X: -4, Y: 5.5, Z: 0}
	s.Objects = []record.ObjectID{7, 42, 0xFFFFFFFF}

	s2 := rec.NewSector()
	rec.NewFrame(record.Frame{DeltaTime: 8, Input: input.Up | input.Right})
	s2.FrameEnd = int32(rec.FrameIndex())
	return rec
}

func assertSameContent(t *testing.T, want, got *record.Record) {
	t.Helper()
	assert.Equal(t, want.MapName(), got.MapName())
	assert.Equal(t, want.Flags(), got.Flags())
	assert.Equal(t, want.Frames(), got.Frames())
	assert.Equal(t, want.Sectors(), got.Sectors())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		flags record.Flag
	}{
		{"zlib", 0},
		{"zstd", record.FlagZstd},
		{"degraded", record.FlagNonDeterministic},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src := sampleRecord(tc.flags)
			data, h, err := Encode(src)
			require.NoError(t, err)
			assert.Equal(t, Magic, h.Magic)
			assert.Equal(t, Version, h.Version)
			assert.Equal(t, uint64(len(data)-HeaderSize), h.CompressedLength)

			dst := record.New("loaded", "", false)
			_, err = Decode(data, dst)
			require.NoError(t, err)
			assert.True(t, dst.IsLoaded())
			assert.Equal(t, 0, dst.FrameIndex())
			assertSameContent(t, src, dst)
		})
	}
}

func TestEmptyRecordRoundTrip(t *testing.T) {
	src := record.New("empty", "", false)
	data, _, err := Encode(src)
	require.NoError(t, err)

	dst := record.New("loaded", "", false)
	_, err = Decode(data, dst)
	require.NoError(t, err)
	assert.True(t, dst.IsFinished())
	assert.Empty(t, dst.Frames())
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Level_03_20240101_120000.tas")
	src := sampleRecord(0)
	src.SetPath(path)
	require.NoError(t, Save(context.Background(), src))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "временный файл удаляется переименованием")

	dst := record.New("loaded", path, false)
	require.NoError(t, Load(context.Background(), dst))
	assertSameContent(t, src, dst)
}

func TestSingleBitFlipRejected(t *testing.T) {
	data, _, err := Encode(sampleRecord(0))
	require.NoError(t, err)

	// Каждый бит сжатых данных и поля checksum
	for i := HeaderSize - 12; i < len(data); i++ {
		if i >= HeaderSize-8 && i < HeaderSize {
			continue // compressedLength проверяется отдельно
		}
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), data...)
			corrupted[i] ^= 1 << bit

			dst := record.New("x", "", false)
			_, err := Decode(corrupted, dst)
			require.Error(t, err, "байт %d бит %d", i, bit)
			assert.ErrorIs(t, err, ErrChecksumMismatch, "байт %d бит %d", i, bit)
			assert.False(t, dst.IsLoaded())
		}
	}
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	data, _, err := Encode(sampleRecord(0))
	require.NoError(t, err)

	t.Run("magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		binary.LittleEndian.PutUint32(bad, 0xDEADBEEF)
		_, err := Decode(bad, record.New("x", "", false))
		var fe *FormatError
		require.True(t, errors.As(err, &fe))
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("newer version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		binary.LittleEndian.PutUint32(bad[4:], Version+1)
		_, err := Decode(bad, record.New("x", "", false))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := Decode(data[:HeaderSize-1], record.New("x", "", false))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, err := Decode(data[:len(data)-1], record.New("x", "", false))
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	t.Run("after compressed block", func(t *testing.T) {
		data, _, err := Encode(sampleRecord(0))
		require.NoError(t, err)
		data = append(data, 0x00, 0x01)

		dst := record.New("x", "", false)
		_, err = Decode(data, dst)
		var fe *FormatError
		require.True(t, errors.As(err, &fe))
		assert.ErrorIs(t, err, ErrTrailingData)
		assert.Equal(t, "trailing", Reason(err))
		assert.False(t, dst.IsLoaded())
	})

	t.Run("after payload", func(t *testing.T) {
		raw := append(encodePayload(sampleRecord(0)), 0xAA, 0xBB, 0xCC)
		compressed, err := deflate(raw, false)
		require.NoError(t, err)
		h := Header{
			Magic:            Magic,
			Version:          Version,
			Checksum:         crc32.ChecksumIEEE(compressed),
			CompressedLength: uint64(len(compressed)),
		}
		data := append(h.marshal(), compressed...)

		_, err = Decode(data, record.New("x", "", false))
		var fe *FormatError
		require.True(t, errors.As(err, &fe))
		assert.ErrorIs(t, err, ErrTrailingData)
	})
}

func TestDecodeClearsRecordOnError(t *testing.T) {
	dst := record.New("x", "", false)
	dst.Assign("old", 0, []record.Frame{{DeltaTime: 1}}, nil)
	require.True(t, dst.IsLoaded())

	_, err := Decode([]byte("garbage that is long enough to be a header"), dst)
	require.Error(t, err)
	assert.False(t, dst.IsLoaded())
	assert.Equal(t, 0, dst.FrameCount())
}

func TestDecompressionError(t *testing.T) {
	garbage := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	h := Header{
		Magic:            Magic,
		Version:          Version,
		Checksum:         crc32.ChecksumIEEE(garbage),
		CompressedLength: uint64(len(garbage)),
	}
	data := append(h.marshal(), garbage...)

	_, err := Decode(data, record.New("x", "", false))
	var de *DecompressionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "decompress", Reason(err))
}

func TestInflateGrowsBuffer(t *testing.T) {
	// Хорошо сжимаемые данные: начальный буфер len*4 заведомо мал
	raw := make([]byte, 1<<20)
	for i := range raw {
		raw[i] = byte(i % 3)
	}
	compressed, err := deflate(raw, false)
	require.NoError(t, err)
	require.Less(t, len(compressed)*4, len(raw))

	out, err := inflateZlib(compressed)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestInflateZstdLargePayload(t *testing.T) {
	raw := make([]byte, 4<<20)
	for i := range raw {
		raw[i] = byte(i % 7)
	}
	compressed, err := deflate(raw, true)
	require.NoError(t, err)
	require.Less(t, len(compressed)*4, len(raw))

	out, err := inflate(compressed, true)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestLoadMissingFile(t *testing.T) {
	rec := record.New("x", filepath.Join(t.TempDir(), "missing.tas"), false)
	err := Load(context.Background(), rec)
	require.Error(t, err)
	assert.Equal(t, "io", Reason(err))
	assert.False(t, rec.IsLoaded())
}

func TestLoadSetsPathOnFormatError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tas")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0644))

	err := Load(context.Background(), record.New("bad", path, false))
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, path, fe.Path)
	assert.Contains(t, err.Error(), path)
}
