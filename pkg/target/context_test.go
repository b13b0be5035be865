package target

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetSingleStep(t *testing.T) {
	ctx := &Context{Eflags: 0x202}
	if ctx.SingleStepping() {
		t.Fatal("trap flag set in fresh context")
	}
	ctx.SetSingleStep(true)
	if ctx.Eflags != 0x302 {
		t.Fatalf("eflags = %#x after set", ctx.Eflags)
	}
	ctx.SetSingleStep(false)
	if ctx.Eflags != 0x202 {
		t.Fatalf("eflags = %#x after clear, other bits must survive", ctx.Eflags)
	}
}

func TestTrapName(t *testing.T) {
	for trapno, want := range map[uint32]string{
		3:   "Breakpoint",
		14:  "Page Fault",
		200: "(unknown trap)",
	} {
		if got := TrapName(trapno); got != want {
			t.Errorf("TrapName(%d) = %q, want %q", trapno, got, want)
		}
	}
}

func TestContextDump(t *testing.T) {
	ctx := &Context{Eip: 0xf0100bcc, Cs: 0x8, Trapno: 3, Eflags: 0x82}
	var buf bytes.Buffer
	ctx.Dump(&buf)
	out := buf.String()
	for _, want := range []string{
		"trap 0x00000003 Breakpoint",
		"eip  0xf0100bcc",
		"cs   0x----0008",
		"flag 0x00000082",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
