package tasfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// maxPayloadSize ограничивает размер распакованных данных
const maxPayloadSize = 1 << 30

func deflate(data []byte, useZstd bool) ([]byte, error) {
	if useZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("создание zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2+64)), nil
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("создание zlib writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("сжатие zlib: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("сжатие zlib: %w", err)
	}
	return buf.Bytes(), nil
}

func inflate(data []byte, useZstd bool) ([]byte, error) {
	if useZstd {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxPayloadSize))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		// DecodeAll сам растит dst; предел задаёт WithDecoderMaxMemory,
		// len(data)*4 лишь начальная ёмкость, как в inflateZlib
		return dec.DecodeAll(data, make([]byte, 0, len(data)*4))
	}
	return inflateZlib(data)
}

// inflateZlib распаковывает zlib-поток в буфер, начиная с размера len(data)*4
// и удваивая его каждый раз, когда места не хватает
func inflateZlib(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	size := len(data) * 4
	if size < 64 {
		size = 64
	}
	out := make([]byte, size)
	n := 0
	for {
		if n == len(out) {
			if len(out) >= maxPayloadSize {
				return nil, fmt.Errorf("распакованные данные больше %d байт", maxPayloadSize)
			}
			grown := make([]byte, len(out)*2)
			copy(grown, out)
			out = grown
		}
		m, err := zr.Read(out[n:])
		n += m
		if err == io.EOF {
			return out[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
}
