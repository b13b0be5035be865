// Package debuginfo resolves code addresses to source locations and
// function metadata. The monitor only sees the Resolver interface; the map
// file implementation below serves snapshot targets, an embedding kernel
// can provide its own.
package debuginfo

// Location is the debug information attached to one code address.
type Location struct {
	// File and Line locate the address in the sources.
	File string
	Line int
	// Fn is the enclosing function name, FnEntry its first instruction.
	Fn      string
	FnEntry uint32
	// NArgs is the number of declared arguments of Fn.
	NArgs int
}

// Unknown is the placeholder used for fields of an unresolved address.
const Unknown = "??"

// Resolver maps code addresses to locations and enumerates function
// symbols. Implementations must treat resolution failure as a normal
// outcome, never a fatal one.
type Resolver interface {
	// PCToLocation resolves pc. When pc is not covered by any function the
	// returned ok is false and the location carries Unknown placeholders
	// with FnEntry equal to pc, so that offsets render as zero.
	PCToLocation(pc uint32) (loc Location, ok bool)
	// Functions returns the names of all known functions starting with
	// prefix, sorted. An empty prefix returns every function.
	Functions(prefix string) []string
	// Symbol looks up a non-function symbol (linker script markers like
	// etext) by name.
	Symbol(name string) (uint32, bool)
}

// UnknownLocation returns the placeholder location for an unresolvable pc.
func UnknownLocation(pc uint32) Location {
	return Location{File: Unknown, Line: 0, Fn: Unknown, FnEntry: pc}
}
