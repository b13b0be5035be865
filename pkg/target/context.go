// Package target provides access to the suspended machine a monitor
// session inspects: its saved execution context, its memory and the
// frame-pointer chain of its stack.
package target

import (
	"fmt"
	"io"
)

// KernBase is the virtual address at which the kernel image is mapped.
// Symbols above it have a physical counterpart at sym-KernBase.
const KernBase = 0xf0000000

// FlagTF is the trap flag bit of the EFLAGS register. While it is set the
// processor raises a debug exception after every instruction.
const FlagTF = 0x00000100

// Context is the register snapshot saved when execution trapped into the
// monitor. It is created and owned by the trap handling path; the monitor
// reads it and mutates only the trap flag bit of Eflags.
type Context struct {
	Edi    uint32 `yaml:"edi"`
	Esi    uint32 `yaml:"esi"`
	Ebp    uint32 `yaml:"ebp"`
	Oesp   uint32 `yaml:"oesp"`
	Ebx    uint32 `yaml:"ebx"`
	Edx    uint32 `yaml:"edx"`
	Ecx    uint32 `yaml:"ecx"`
	Eax    uint32 `yaml:"eax"`
	Es     uint16 `yaml:"es"`
	Ds     uint16 `yaml:"ds"`
	Trapno uint32 `yaml:"trapno"`
	Err    uint32 `yaml:"err"`
	Eip    uint32 `yaml:"eip"`
	Cs     uint16 `yaml:"cs"`
	Eflags uint32 `yaml:"eflags"`
	Esp    uint32 `yaml:"esp"`
	Ss     uint16 `yaml:"ss"`
}

// SingleStepping reports whether the trap flag is set in the saved EFLAGS.
func (ctx *Context) SingleStepping() bool {
	return ctx.Eflags&FlagTF != 0
}

// SetSingleStep sets or clears the trap flag in the saved EFLAGS. The rest
// of the context is never modified by the monitor.
func (ctx *Context) SetSingleStep(v bool) {
	if v {
		ctx.Eflags |= FlagTF
	} else {
		ctx.Eflags &^= FlagTF
	}
}

var trapNames = []string{
	"Divide error",
	"Debug",
	"Non-Maskable Interrupt",
	"Breakpoint",
	"Overflow",
	"BOUND Range Exceeded",
	"Invalid Opcode",
	"Device Not Available",
	"Double Fault",
	"Coprocessor Segment Overrun",
	"Invalid TSS",
	"Segment Not Present",
	"Stack Fault",
	"General Protection",
	"Page Fault",
	"(unknown trap)",
	"x87 FPU Floating-Point Error",
	"Alignment Check",
	"Machine-Check",
	"SIMD Floating-Point Exception",
}

// TrapName returns the architectural name for a trap vector.
func TrapName(trapno uint32) string {
	if trapno < uint32(len(trapNames)) {
		return trapNames[trapno]
	}
	return "(unknown trap)"
}

// Dump writes the full register snapshot to w, one register per line.
func (ctx *Context) Dump(w io.Writer) {
	fmt.Fprintf(w, "TRAP frame\n")
	fmt.Fprintf(w, "  edi  0x%08x\n", ctx.Edi)
	fmt.Fprintf(w, "  esi  0x%08x\n", ctx.Esi)
	fmt.Fprintf(w, "  ebp  0x%08x\n", ctx.Ebp)
	fmt.Fprintf(w, "  oesp 0x%08x\n", ctx.Oesp)
	fmt.Fprintf(w, "  ebx  0x%08x\n", ctx.Ebx)
	fmt.Fprintf(w, "  edx  0x%08x\n", ctx.Edx)
	fmt.Fprintf(w, "  ecx  0x%08x\n", ctx.Ecx)
	fmt.Fprintf(w, "  eax  0x%08x\n", ctx.Eax)
	fmt.Fprintf(w, "  es   0x----%04x\n", ctx.Es)
	fmt.Fprintf(w, "  ds   0x----%04x\n", ctx.Ds)
	fmt.Fprintf(w, "  trap 0x%08x %s\n", ctx.Trapno, TrapName(ctx.Trapno))
	fmt.Fprintf(w, "  err  0x%08x\n", ctx.Err)
	fmt.Fprintf(w, "  eip  0x%08x\n", ctx.Eip)
	fmt.Fprintf(w, "  cs   0x----%04x\n", ctx.Cs)
	fmt.Fprintf(w, "  flag 0x%08x\n", ctx.Eflags)
	fmt.Fprintf(w, "  esp  0x%08x\n", ctx.Esp)
	fmt.Fprintf(w, "  ss   0x----%04x\n", ctx.Ss)
}
