package simhost

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteMemory плоская little-endian память с 32-битными указателями,
// на которой лежат структуры симулированного физического движка
type ByteMemory struct {
	data []byte
}

// NewByteMemory выделяет size байт
func NewByteMemory(size int) *ByteMemory {
	return &ByteMemory{data: make([]byte, size)}
}

func (m *ByteMemory) span(addr uintptr, n int) ([]byte, error) {
	if addr == 0 {
		return nil, fmt.Errorf("обращение по нулевому адресу")
	}
	if int(addr)+n > len(m.data) {
		return nil, fmt.Errorf("адрес 0x%x вне памяти (%d байт)", addr, len(m.data))
	}
	return m.data[addr : int(addr)+n], nil
}

func (m *ByteMemory) ReadPtr(addr uintptr) (uintptr, error) {
	b, err := m.span(addr, 4)
	if err != nil {
		return 0, err
	}
	return uintptr(binary.LittleEndian.Uint32(b)), nil
}

func (m *ByteMemory) WritePtr(addr, v uintptr) error {
	b, err := m.span(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, uint32(v))
	return nil
}

func (m *ByteMemory) ReadF64(addr uintptr) (float64, error) {
	b, err := m.span(addr, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (m *ByteMemory) WriteF64(addr uintptr, v float64) error {
	b, err := m.span(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return nil
}

func (m *ByteMemory) ReadF32(addr uintptr) (float32, error) {
	b, err := m.span(addr, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (m *ByteMemory) WriteF32(addr uintptr, v float32) error {
	b, err := m.span(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return nil
}

func (m *ByteMemory) ReadI16(addr uintptr) (int16, error) {
	b, err := m.span(addr, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (m *ByteMemory) WriteI16(addr uintptr, v int16) error {
	b, err := m.span(addr, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, uint16(v))
	return nil
}
