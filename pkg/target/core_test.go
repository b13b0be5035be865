package target

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenSnapshot(t *testing.T) {
	dir, err := ioutil.TempDir("", "kmon-core-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	image := writeFile(t, dir, "mem.img", []byte{0xde, 0xad, 0xbe, 0xef})
	machine := writeFile(t, dir, "machine.yml", []byte(`
base: 0x100000
cr3: 0x3000
trapframe:
  ebp: 0xf0109e58
  eip: 0xf0100a62
  trapno: 3
  eflags: 0x82
`))

	snap, err := OpenSnapshot(image, machine)
	if err != nil {
		t.Fatalf("OpenSnapshot: %v", err)
	}
	if snap.PageDir != 0x3000 {
		t.Errorf("cr3 = %#x", snap.PageDir)
	}
	if snap.Ctx == nil || snap.Ctx.Eip != 0xf0100a62 || snap.Ctx.Trapno != 3 {
		t.Errorf("trapframe not loaded: %+v", snap.Ctx)
	}
	w, err := ReadUint32(snap.Mem, 0x100000)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if w != 0xefbeadde {
		t.Errorf("read %#x", w)
	}
}

func TestOpenSnapshotWithoutTrapframe(t *testing.T) {
	dir, err := ioutil.TempDir("", "kmon-core-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	image := writeFile(t, dir, "mem.img", make([]byte, 16))
	machine := writeFile(t, dir, "machine.yml", []byte("base: 0\ncr3: 0x1000\n"))

	snap, err := OpenSnapshot(image, machine)
	if err != nil {
		t.Fatalf("OpenSnapshot: %v", err)
	}
	if snap.Ctx != nil {
		t.Errorf("expected no context, got %+v", snap.Ctx)
	}
}

func TestSliceMemoryBounds(t *testing.T) {
	mem := NewSliceMemory(make([]byte, 0x100), 0x1000)
	buf := make([]byte, 4)
	if _, err := mem.ReadMemory(buf, 0x0fff); err == nil {
		t.Error("read below base succeeded")
	}
	if _, err := mem.ReadMemory(buf, 0x10fd); err == nil {
		t.Error("read past end succeeded")
	}
	if _, err := mem.ReadMemory(buf, 0x10fc); err != nil {
		t.Errorf("read of last word failed: %v", err)
	}
}
