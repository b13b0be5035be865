package target

import (
	"encoding/binary"
	"testing"
)

const stackBase = 0x8000

// buildChain lays out n frames at 0x100 intervals, the last one linking to
// zero, and returns the backing memory.
func buildChain(n int) *SliceMemory {
	mem := make([]byte, n*0x100+0x100)
	for i := 0; i < n; i++ {
		fp := uint32(stackBase + i*0x100)
		next := uint32(stackBase + (i+1)*0x100)
		if i == n-1 {
			next = 0
		}
		binary.LittleEndian.PutUint32(mem[fp-stackBase:], next)
		binary.LittleEndian.PutUint32(mem[fp-stackBase+4:], 0xf0100000+uint32(i))
	}
	return NewSliceMemory(mem, stackBase)
}

func walk(t *testing.T, it *StackIterator) []Stackframe {
	t.Helper()
	var frames []Stackframe
	for it.Next() {
		frames = append(frames, it.Frame())
	}
	return frames
}

func TestStackIteratorWalksChain(t *testing.T) {
	const n = 7
	it := NewStackIterator(buildChain(n), stackBase, 0)
	frames := walk(t, it)
	if err := it.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != n {
		t.Fatalf("expected %d frames, got %d", n, len(frames))
	}
	for i, frame := range frames {
		if frame.FP != uint32(stackBase+i*0x100) {
			t.Errorf("frame %d: fp = %#x", i, frame.FP)
		}
		if frame.Ret != 0xf0100000+uint32(i) {
			t.Errorf("frame %d: ret = %#x", i, frame.Ret)
		}
	}
}

func TestStackIteratorZeroFramePointer(t *testing.T) {
	it := NewStackIterator(buildChain(1), 0, 0)
	if frames := walk(t, it); len(frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(frames))
	}
	if err := it.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStackIteratorSelfLoop(t *testing.T) {
	mem := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(mem[0:], stackBase) // fp links to itself
	it := NewStackIterator(NewSliceMemory(mem, stackBase), stackBase, 0)
	frames := walk(t, it)
	if len(frames) != 1 {
		t.Fatalf("expected the walk to stop after one frame, got %d", len(frames))
	}
}

func TestStackIteratorBackwardsLink(t *testing.T) {
	mem := make([]byte, 0x300)
	binary.LittleEndian.PutUint32(mem[0x200:], stackBase+0x100) // link goes the wrong way
	binary.LittleEndian.PutUint32(mem[0x100:], stackBase+0x200)
	it := NewStackIterator(NewSliceMemory(mem, stackBase), stackBase+0x200, 0)
	frames := walk(t, it)
	if len(frames) != 1 {
		t.Fatalf("expected the walk to stop at the backwards link, got %d frames", len(frames))
	}
}

func TestStackIteratorDepthBound(t *testing.T) {
	it := NewStackIterator(buildChain(10), stackBase, 4)
	if frames := walk(t, it); len(frames) != 4 {
		t.Fatalf("expected the depth bound to stop the walk at 4 frames, got %d", len(frames))
	}
}

func TestStackIteratorReadError(t *testing.T) {
	it := NewStackIterator(buildChain(1), 0x100, 0) // below the mapping
	if frames := walk(t, it); len(frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(frames))
	}
	if it.Err() == nil {
		t.Fatal("expected a read error")
	}
}
