// Package tasfile реализует формат файлов .tas: заголовок с сигнатурой, версией,
// флагами и CRC32, за которым следует сжатая полезная нагрузка с кадрами и секторами.
// Старый формат (legacy) хранит только кадры и выбирается флагом записи.
package tasfile

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/annel0/tas-replay/internal/record"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// Magic сигнатура контейнера ("TAS" в обратном порядке байт)
	Magic uint32 = 0x534154
	// Version текущая версия формата
	Version uint32 = 1
	// HeaderSize размер заголовка в байтах
	HeaderSize = 4 + 4 + 4 + 4 + 8
	// Ext расширение файлов записей
	Ext = ".tas"
)

var tracer = otel.Tracer("github.com/annel0/tas-replay/internal/tasfile")

// Header заголовок контейнера
type Header struct {
	Magic            uint32
	Version          uint32
	Flags            record.Flag
	Checksum         uint32
	CompressedLength uint64
}

func (h Header) marshal() []byte {
	b := make([]byte, 0, HeaderSize)
	b = binary.LittleEndian.AppendUint32(b, h.Magic)
	b = binary.LittleEndian.AppendUint32(b, h.Version)
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Flags))
	b = binary.LittleEndian.AppendUint32(b, h.Checksum)
	b = binary.LittleEndian.AppendUint64(b, h.CompressedLength)
	return b
}

// IsContainer сообщает, начинаются ли данные с сигнатуры контейнера.
// Для legacy-файла первые 4 байта: длина кадров, кратная 8, и с Magic не совпадают.
func IsContainer(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == Magic
}

// ReadHeader разбирает и проверяет заголовок (сигнатура, версия)
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &FormatError{Err: fmt.Errorf("%w: заголовок %d из %d байт", ErrTruncated, len(data), HeaderSize)}
	}
	r := &reader{buf: data[:HeaderSize]}
	h := Header{
		Magic:            r.u32(),
		Version:          r.u32(),
		Flags:            record.Flag(r.u32()),
		Checksum:         r.u32(),
		CompressedLength: r.u64(),
	}
	if h.Magic != Magic {
		return h, &FormatError{Err: fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic)}
	}
	if h.Version > Version {
		return h, &FormatError{Err: fmt.Errorf("%w: %d (поддерживается до %d)", ErrUnsupportedVersion, h.Version, Version)}
	}
	return h, nil
}

// Encode сериализует запись в контейнер. Компрессор выбирается флагом FlagZstd.
func Encode(rec *record.Record) ([]byte, Header, error) {
	compressed, err := deflate(encodePayload(rec), rec.HasFlag(record.FlagZstd))
	if err != nil {
		return nil, Header{}, err
	}

	h := Header{
		Magic:            Magic,
		Version:          Version,
		Flags:            rec.Flags(),
		Checksum:         crc32.ChecksumIEEE(compressed),
		CompressedLength: uint64(len(compressed)),
	}
	out := make([]byte, 0, HeaderSize+len(compressed))
	out = append(out, h.marshal()...)
	out = append(out, compressed...)
	return out, h, nil
}

// Decode разбирает контейнер и заполняет запись.
// CRC32 проверяется до распаковки. При ошибке запись очищается.
func Decode(data []byte, rec *record.Record) (Header, error) {
	h, err := decode(data, rec)
	if err != nil {
		rec.Clear()
	}
	return h, err
}

func decode(data []byte, rec *record.Record) (Header, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return h, err
	}

	body := data[HeaderSize:]
	if h.CompressedLength > uint64(len(body)) {
		return h, &FormatError{Err: fmt.Errorf("%w: сжатых данных %d из %d байт", ErrTruncated, len(body), h.CompressedLength)}
	}
	if extra := uint64(len(body)) - h.CompressedLength; extra > 0 {
		return h, &FormatError{Err: fmt.Errorf("%w: %d байт после сжатых данных", ErrTrailingData, extra)}
	}
	compressed := body

	if sum := crc32.ChecksumIEEE(compressed); sum != h.Checksum {
		return h, &FormatError{Err: fmt.Errorf("%w: файл 0x%08x, данные 0x%08x", ErrChecksumMismatch, h.Checksum, sum)}
	}

	raw, err := inflate(compressed, h.Flags&record.FlagZstd != 0)
	if err != nil {
		return h, &DecompressionError{Err: err}
	}

	p, err := decodePayload(raw)
	if err != nil {
		return h, &FormatError{Err: err}
	}

	rec.Assign(p.mapName, h.Flags, p.frames, p.sectors)
	return h, nil
}

// Save записывает запись в rec.Path(). Legacy-записи сохраняются в старом формате.
// Файл пишется целиком во временный файл и переименовывается.
func Save(ctx context.Context, rec *record.Record) error {
	_, span := tracer.Start(ctx, "tasfile.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("tas.path", rec.Path()),
		attribute.Int("tas.frames", rec.FrameCount()),
		attribute.Bool("tas.legacy", rec.IsLegacy()),
	)

	var (
		data []byte
		err  error
	)
	if rec.IsLegacy() {
		data, err = EncodeLegacy(rec)
	} else {
		data, _, err = Encode(rec)
	}
	if err == nil {
		err = writeFile(rec.Path(), data)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("сохранение %s: %w", rec.Path(), err)
	}
	span.SetAttributes(attribute.Int("tas.bytes", len(data)))
	return nil
}

// Load читает rec.Path() и заполняет запись; формат выбирается флагом legacy записи.
// Ошибки разбора возвращаются как *FormatError или *DecompressionError с путём файла.
func Load(ctx context.Context, rec *record.Record) error {
	_, span := tracer.Start(ctx, "tasfile.Load")
	defer span.End()
	span.SetAttributes(attribute.String("tas.path", rec.Path()), attribute.Bool("tas.legacy", rec.IsLegacy()))

	err := load(rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("tas.frames", rec.FrameCount()), attribute.Int("tas.sectors", rec.SectorCount()))
	return nil
}

func load(rec *record.Record) error {
	data, err := os.ReadFile(rec.Path())
	if err != nil {
		rec.Clear()
		return fmt.Errorf("чтение %s: %w", rec.Path(), err)
	}

	if rec.IsLegacy() {
		err = DecodeLegacy(data, rec)
	} else {
		_, err = Decode(data, rec)
	}
	return withPath(err, rec.Path())
}

func withPath(err error, path string) error {
	switch e := err.(type) {
	case *FormatError:
		e.Path = path
	case *DecompressionError:
		e.Path = path
	}
	return err
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
