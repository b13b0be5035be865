// Package pagetable walks x86 32-bit two-level page tables through target
// memory and classifies entry permission bits. It is a pure reader: walks
// never allocate or modify tables.
package pagetable

import (
	"errors"

	"github.com/go-kmon/kmon/pkg/target"
)

// PageSize is the size of a page in bytes.
const PageSize = 4096

// Page table entry permission bits.
const (
	EntryPresent  = 1 << 0
	EntryWritable = 1 << 1
	EntryUser     = 1 << 2
	entryPS       = 1 << 7 // 4MB page, directory entries only

	entriesPerTable = 1024
)

// RoundDown rounds addr down to the enclosing page boundary.
func RoundDown(addr uint32) uint32 {
	return addr &^ (PageSize - 1)
}

// Entry is one page table entry: a physical frame address in the high bits
// and permission bits in the low twelve.
type Entry uint32

// Frame returns the physical frame address the entry maps.
func (e Entry) Frame() uint32 {
	return uint32(e) &^ (PageSize - 1)
}

// Present reports whether the present bit is set.
func (e Entry) Present() bool {
	return uint32(e)&EntryPresent != 0
}

// PermClass is the display classification of an entry's low three
// permission bits, in kernel|user column form.
type PermClass int

const (
	PermNotPresent PermClass = iota
	PermKernRW
	PermKernROUserRO
	PermKernRWUserRW
	PermKernRO
)

var permLabels = map[PermClass]string{
	PermNotPresent:   "NOT PRESENT",
	PermKernRWUserRW: "RW|RW",
	PermKernROUserRO: "R-|R-",
	PermKernRW:       "RW|--",
	PermKernRO:       "R-|--",
}

func (c PermClass) String() string {
	return permLabels[c]
}

// Class derives the permission class from the low three bits (present,
// writable, user). Bit pattern 5, writable and user without a consistent
// present encoding, shows as R-|R-; every pattern outside the four known
// ones falls back to NOT PRESENT rather than faulting.
func (e Entry) Class() PermClass {
	switch uint32(e) & 0x7 {
	case 1:
		return PermKernRO
	case 3:
		return PermKernRW
	case 5:
		return PermKernROUserRO
	case 7:
		return PermKernRWUserRW
	default:
		return PermNotPresent
	}
}

// ErrNotMapped is returned by Lookup for a virtual address whose page
// table does not exist at all. An existing entry with the present bit
// clear is not ErrNotMapped; it is returned as-is and classifies as
// NOT PRESENT.
var ErrNotMapped = errors.New("address not mapped")

// Walker resolves virtual addresses against one page directory. Table
// contents are read through mem, which must cover the physical addresses
// the directory points into.
type Walker struct {
	mem  target.Memory
	root uint32
}

// NewWalker returns a Walker over the directory at physical address root.
func NewWalker(mem target.Memory, root uint32) *Walker {
	return &Walker{mem: mem, root: root}
}

// Lookup walks va through the directory and returns its page table entry.
// It returns ErrNotMapped when the directory entry is absent, and the
// underlying read error when the tables themselves cannot be read.
func (w *Walker) Lookup(va uint32) (Entry, error) {
	dirIdx := va >> 22
	tabIdx := (va >> 12) & (entriesPerTable - 1)

	pde, err := target.ReadUint32(w.mem, w.root+dirIdx*4)
	if err != nil {
		return 0, err
	}
	if pde&EntryPresent == 0 {
		return 0, ErrNotMapped
	}
	if pde&entryPS != 0 {
		// 4MB page: the directory entry maps the frame directly.
		frame := pde&0xffc00000 | va&0x003ff000
		return Entry(frame | pde&0xfff&^entryPS), nil
	}

	pte, err := target.ReadUint32(w.mem, pde&^(PageSize-1)+tabIdx*4)
	if err != nil {
		return 0, err
	}
	return Entry(pte), nil
}
