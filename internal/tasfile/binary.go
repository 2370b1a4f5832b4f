package tasfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/annel0/tas-replay/internal/vec"
)

// writer накапливает little-endian значения в буфере
type writer struct {
	buf []byte
}

func (w *writer) u16(v uint16)  { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32)  { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) u64(v uint64)  { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *writer) i32(v int32)   { w.u32(uint32(v)) }
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) str(s string) {
	w.u64(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) vec3(v vec.Vec3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

// reader читает little-endian значения; первая ошибка запоминается,
// последующие чтения возвращают нули
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: нужно %d байт по смещению %d, доступно %d", ErrTruncated, n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) i32() int32   { return int32(r.u32()) }
func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

// count читает u64-счётчик элементов размером elemSize и проверяет,
// что столько байт вообще осталось в буфере
func (r *reader) count(elemSize int) int {
	n := r.u64()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.remaining()/elemSize) {
		r.err = fmt.Errorf("%w: счётчик %d больше остатка данных", ErrTruncated, n)
		return 0
	}
	return int(n)
}

func (r *reader) str() string {
	n := r.count(1)
	return string(r.take(n))
}

func (r *reader) vec3() vec.Vec3 {
	return vec.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) remaining() int { return len(r.buf) - r.off }
