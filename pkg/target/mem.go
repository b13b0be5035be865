package target

import (
	"encoding/binary"
	"fmt"
)

// Memory is like io.ReaderAt, but the offset is a target virtual address.
type Memory interface {
	// ReadMemory is just like io.ReaderAt.ReadAt.
	ReadMemory(buf []byte, addr uint32) (n int, err error)
}

// OutOfRangeError is returned for reads outside the target address space.
type OutOfRangeError struct {
	Addr uint32
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("address %#08x out of range", e.Addr)
}

// ReadUint32 reads one little-endian word at addr.
func ReadUint32(mem Memory, addr uint32) (uint32, error) {
	var buf [4]byte
	if _, err := mem.ReadMemory(buf[:], addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// SliceMemory is a Memory backed by a byte slice mapped at a base address.
// The core snapshot loader and the tests both use it.
type SliceMemory struct {
	base uint32
	data []byte
}

// NewSliceMemory maps data at base.
func NewSliceMemory(data []byte, base uint32) *SliceMemory {
	return &SliceMemory{base: base, data: data}
}

// Base returns the lowest address of the mapping.
func (m *SliceMemory) Base() uint32 { return m.base }

// Size returns the length of the mapping in bytes.
func (m *SliceMemory) Size() int { return len(m.data) }

func (m *SliceMemory) ReadMemory(buf []byte, addr uint32) (int, error) {
	if addr < m.base || uint64(addr)+uint64(len(buf)) > uint64(m.base)+uint64(len(m.data)) {
		return 0, OutOfRangeError{Addr: addr}
	}
	copy(buf, m.data[addr-m.base:])
	return len(buf), nil
}
