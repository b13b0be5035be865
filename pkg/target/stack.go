package target

// Stack frame layout, relative to a saved frame pointer:
//
//	fp+0	caller's frame pointer (zero terminates the chain)
//	fp+4	return address
//	fp+8	first word of the argument window
//
// The argument window is a fixed number of words shown by backtrace; it is
// a display convenience and is not validated against the callee prototype.

// ArgWords is the number of argument words read for each frame.
const ArgWords = 5

// DefaultMaxDepth bounds the walk so a corrupted chain cannot hang the
// monitor.
const DefaultMaxDepth = 64

// Stackframe represents one frame of the saved frame-pointer chain.
type Stackframe struct {
	// FP is the frame pointer of this frame.
	FP uint32
	// Ret is the return address saved immediately above FP.
	Ret uint32
	// Args is the raw argument window following the return address.
	Args [ArgWords]uint32
}

// StackIterator walks a frame-pointer chain through target memory, from
// the innermost frame outwards. Usage follows the usual iterator shape:
//
//	it := NewStackIterator(mem, fp)
//	for it.Next() {
//		frame := it.Frame()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type StackIterator struct {
	mem      Memory
	fp       uint32
	depth    int
	maxDepth int
	atend    bool
	frame    Stackframe
	err      error
}

// NewStackIterator returns an iterator over the chain rooted at fp.
// An fp of zero yields an empty iteration. A maxDepth of zero selects
// DefaultMaxDepth.
func NewStackIterator(mem Memory, fp uint32, maxDepth int) *StackIterator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &StackIterator{mem: mem, fp: fp, maxDepth: maxDepth}
}

// Next points the iterator at the next stack frame. It returns false when
// the chain reaches the zero sentinel, exceeds the depth bound, walks
// backwards (a cycle) or a memory read fails.
func (it *StackIterator) Next() bool {
	if it.err != nil || it.atend {
		return false
	}
	if it.fp == 0 {
		it.atend = true
		return false
	}
	if it.depth >= it.maxDepth {
		it.atend = true
		return false
	}

	next, err := ReadUint32(it.mem, it.fp)
	if err != nil {
		it.err = err
		return false
	}
	ret, err := ReadUint32(it.mem, it.fp+4)
	if err != nil {
		it.err = err
		return false
	}
	it.frame = Stackframe{FP: it.fp, Ret: ret}
	for i := 0; i < ArgWords; i++ {
		w, err := ReadUint32(it.mem, it.fp+8+uint32(i)*4)
		if err != nil {
			it.err = err
			return false
		}
		it.frame.Args[i] = w
	}

	// Frames grow towards higher addresses on this stack; a link that does
	// not is a corrupted chain and ends the walk after this frame.
	if next != 0 && next <= it.fp {
		it.atend = true
	}
	it.fp = next
	it.depth++
	return true
}

// Frame returns the frame the iterator is pointing at.
func (it *StackIterator) Frame() Stackframe {
	return it.frame
}

// Err returns the error encountered during stack iteration, if any.
func (it *StackIterator) Err() error {
	return it.err
}
