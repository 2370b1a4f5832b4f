package tasfile

import (
	"fmt"

	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/record"
)

// legacyFrameSize кадр старого формата: f32 delta + u32 биты клавиш
const legacyFrameSize = 8

// EncodeLegacy сериализует кадры в старый формат: rawLength(u32) | zlib-блок.
// Секторы, имя карты и флаги в этом формате не хранятся.
func EncodeLegacy(rec *record.Record) ([]byte, error) {
	frames := rec.Frames()
	w := &writer{buf: make([]byte, 0, len(frames)*legacyFrameSize)}
	for _, f := range frames {
		w.f32(f.DeltaTime)
		w.u32(uint32(f.Input))
	}

	compressed, err := deflate(w.buf, false)
	if err != nil {
		return nil, err
	}
	out := &writer{buf: make([]byte, 0, 4+len(compressed))}
	out.u32(uint32(len(w.buf)))
	out.buf = append(out.buf, compressed...)
	return out.buf, nil
}

// DecodeLegacy разбирает файл старого формата. При ошибке запись очищается.
func DecodeLegacy(data []byte, rec *record.Record) error {
	frames, err := decodeLegacy(data)
	if err != nil {
		rec.Clear()
		return err
	}
	rec.Assign("", 0, frames, nil)
	return nil
}

func decodeLegacy(data []byte) ([]record.Frame, error) {
	r := &reader{buf: data}
	rawLength := r.u32()
	if r.err != nil {
		return nil, &FormatError{Err: r.err}
	}
	if rawLength%legacyFrameSize != 0 {
		return nil, &FormatError{Err: fmt.Errorf("%w: длина %d не кратна размеру кадра", ErrTruncated, rawLength)}
	}

	raw, err := inflate(data[4:], false)
	if err != nil {
		return nil, &DecompressionError{Err: err}
	}
	if uint32(len(raw)) != rawLength {
		return nil, &FormatError{Err: fmt.Errorf("%w: распаковано %d байт вместо %d", ErrTruncated, len(raw), rawLength)}
	}

	fr := &reader{buf: raw}
	frames := make([]record.Frame, len(raw)/legacyFrameSize)
	for i := range frames {
		frames[i].DeltaTime = fr.f32()
		frames[i].Input = input.KeyState(fr.u32()) & input.AllKeys
	}
	return frames, fr.err
}
