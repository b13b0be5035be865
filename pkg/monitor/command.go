// Package monitor implements the interactive console entered when the
// kernel traps: it reads operator commands and dispatches them against the
// suspended execution context.
package monitor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-kmon/kmon/pkg/debuginfo"
	"github.com/go-kmon/kmon/pkg/pagetable"
	"github.com/go-kmon/kmon/pkg/target"
)

// Signal is a command handler's continuation decision. It is deliberately
// separate from error reporting: a failing command prints its error and the
// session continues, only an explicit Exit ends it.
type Signal int

const (
	// Continue keeps the session loop running.
	Continue Signal = iota
	// Exit ends the session and hands control back to the caller.
	Exit
)

type cmdfunc func(s *Session, argv []string) (Signal, error)

type command struct {
	aliases        []string
	builtinAliases []string
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the monitor command table. It is built once and never
// mutated during a session.
type Commands struct {
	cmds []command
}

// byFirstAlias will sort by the first
// alias of a command.
type byFirstAlias []command

func (a byFirstAlias) Len() int           { return len(a) }
func (a byFirstAlias) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byFirstAlias) Less(i, j int) bool { return a[i].aliases[0] < a[j].aliases[0] }

// DebugCommands returns a Commands struct with the default monitor command
// set.
func DebugCommands() *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: helpCommand, helpMsg: "Display this list of commands"},
		{aliases: []string{"kerninfo"}, cmdFn: kerninfoCommand, helpMsg: "Display information about the kernel"},
		{aliases: []string{"backtrace", "bt"}, cmdFn: backtraceCommand, helpMsg: "Display function call frames"},
		{aliases: []string{"showmapping"}, cmdFn: showmappingCommand, helpMsg: "Display mappings between virtual address and physical address"},
		{aliases: []string{"si"}, cmdFn: stepCommand, helpMsg: "Single step the trapped context"},
		{aliases: []string{"c"}, cmdFn: continueCommand, helpMsg: "Continue the trapped context"},
		{aliases: []string{"regs"}, cmdFn: regsCommand, helpMsg: "Display the trapped context registers"},
		{aliases: []string{"funcs"}, cmdFn: funcsCommand, helpMsg: "Print list of function symbols, optionally limited to a prefix"},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCommand, helpMsg: "Leave the monitor without resuming the context"},
	}

	sort.Sort(byFirstAlias(c.cmds))
	return c
}

// Find will look up the command function for the given command name, or nil
// if there is none.
func (c *Commands) Find(cmdstr string) cmdfunc {
	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.cmdFn
		}
	}
	return nil
}

// Merge takes aliases defined in the config struct and merges them with the
// default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
}

const whitespace = "\t\r\n "

// maxArgs bounds one command line, command name included.
const maxArgs = 16

// tokenize splits a command line into its whitespace separated arguments.
// Runs of separators collapse; a blank line yields no tokens. There is no
// quoting or escaping.
func tokenize(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(whitespace, r)
	})
}

// parseAddr converts operator-typed address text using the monitor's
// historical rules: leading zeros are skipped, a literal 'x' after them
// selects base 16 (base 10 otherwise), parsing stops at the first
// character outside the current digit set and the result wraps modulo
// 2^32. Malformed text parses as zero, it is never an error. Operators
// rely on these quirks, so strconv is not a substitute here.
func parseAddr(s string) uint32 {
	i := 0
	for i < len(s) && s[i] == '0' {
		i++
	}
	base := uint32(10)
	if i < len(s) && s[i] == 'x' {
		base = 16
		i++
	}
	var result uint32
	for ; i < len(s); i++ {
		d, ok := digitVal(s[i])
		if !ok || d >= base {
			break
		}
		result = result*base + d
	}
	return result
}

func digitVal(c byte) (uint32, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint32(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint32(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint32(c-'A') + 10, true
	default:
		return 0, false
	}
}

// dispatch tokenizes one input line, resolves the command and runs it.
// Every diagnostic goes to the session writer; dispatch itself never
// terminates anything, it only propagates a handler's Exit.
func (s *Session) dispatch(line string) Signal {
	argv := tokenize(line)
	if len(argv) == 0 {
		return Continue
	}
	if len(argv) > maxArgs {
		fmt.Fprintf(s.stdout, "Too many arguments (max %d)\n", maxArgs)
		return Continue
	}

	cmdFn := s.cmds.Find(argv[0])
	if cmdFn == nil {
		fmt.Fprintf(s.stdout, "Unknown command '%s'\n", argv[0])
		return Continue
	}

	sig, err := cmdFn(s, argv)
	if err != nil {
		fmt.Fprintf(s.stdout, "%s: %v\n", argv[0], err)
		return Continue
	}
	return sig
}

var errNoContext = errors.New("no running process")

/***** Command implementations *****/

func helpCommand(s *Session, argv []string) (Signal, error) {
	for _, cmd := range s.cmds.cmds {
		fmt.Fprintf(s.stdout, "%s - %s\n", cmd.aliases[0], cmd.helpMsg)
	}
	return Continue, nil
}

// kernSymbols are the linker script markers kerninfo reports, in their
// image order.
var kernSymbols = []string{"entry", "etext", "edata", "end"}

func kerninfoCommand(s *Session, argv []string) (Signal, error) {
	if s.info == nil {
		return Continue, errors.New("no kernel symbols loaded")
	}

	fmt.Fprintf(s.stdout, "Special kernel symbols:\n")
	if start, ok := s.info.Symbol("_start"); ok {
		fmt.Fprintf(s.stdout, "  _start                  %08x (phys)\n", start)
	}
	var entry, end uint32
	for _, name := range kernSymbols {
		addr, ok := s.info.Symbol(name)
		if !ok {
			continue
		}
		fmt.Fprintf(s.stdout, "  %-5s  %08x (virt)  %08x (phys)\n", name, addr, addr-target.KernBase)
		switch name {
		case "entry":
			entry = addr
		case "end":
			end = addr
		}
	}
	if end > entry {
		fmt.Fprintf(s.stdout, "Kernel executable memory footprint: %dKB\n", roundUp(end-entry, 1024)/1024)
	}
	return Continue, nil
}

func roundUp(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}

func backtraceCommand(s *Session, argv []string) (Signal, error) {
	if s.ctx == nil {
		return Continue, errNoContext
	}
	if s.mem == nil {
		return Continue, errors.New("no target memory attached")
	}

	it := target.NewStackIterator(s.mem, s.ctx.Ebp, s.maxDepth)
	for it.Next() {
		frame := it.Frame()
		fmt.Fprintf(s.stdout, "ebp %08x  eip %08x  args", frame.FP, frame.Ret)
		for _, arg := range frame.Args {
			fmt.Fprintf(s.stdout, " %08x", arg)
		}
		fmt.Fprintln(s.stdout)

		loc := debuginfo.UnknownLocation(frame.Ret)
		if s.info != nil {
			loc, _ = s.info.PCToLocation(frame.Ret)
		}
		fmt.Fprintf(s.stdout, "\t%s:%d: %s+%d\n", loc.File, loc.Line, loc.Fn, frame.Ret-loc.FnEntry)
	}
	if err := it.Err(); err != nil {
		fmt.Fprintf(s.stdout, "backtrace stopped: %v\n", err)
	}
	return Continue, nil
}

func showmappingCommand(s *Session, argv []string) (Signal, error) {
	if len(argv) != 3 {
		return Continue, errors.New("usage: showmapping start end")
	}
	if s.pages == nil {
		return Continue, errors.New("no page tables attached")
	}

	start := pagetable.RoundDown(parseAddr(argv[1]))
	end := pagetable.RoundDown(parseAddr(argv[2]))
	if end < start {
		fmt.Fprintln(s.stdout, "invalid range")
		return Continue, nil
	}

	for i := start; ; i += pagetable.PageSize {
		entry, err := s.pages.Lookup(i)
		switch {
		case errors.Is(err, pagetable.ErrNotMapped):
			// unmapped, no row
		case err != nil:
			fmt.Fprintf(s.stdout, "showmapping stopped: %v\n", err)
			return Continue, nil
		default:
			fmt.Fprintf(s.stdout, "%08x ----> %08x  %s\n", i, entry.Frame(), entry.Class())
		}
		if i == end {
			break
		}
	}
	return Continue, nil
}

func stepCommand(s *Session, argv []string) (Signal, error) {
	if s.ctx == nil {
		fmt.Fprintln(s.stdout, "no running process.")
		return Continue, nil
	}
	s.ctx.SetSingleStep(true)
	s.log.Debug("single step requested, leaving session")
	return Exit, nil
}

func continueCommand(s *Session, argv []string) (Signal, error) {
	if s.ctx == nil {
		fmt.Fprintln(s.stdout, "no running process.")
		return Continue, nil
	}
	s.ctx.SetSingleStep(false)
	s.log.Debug("continue requested, leaving session")
	return Exit, nil
}

func regsCommand(s *Session, argv []string) (Signal, error) {
	if s.ctx == nil {
		fmt.Fprintln(s.stdout, "no running process.")
		return Continue, nil
	}
	s.ctx.Dump(s.stdout)
	return Continue, nil
}

func funcsCommand(s *Session, argv []string) (Signal, error) {
	if s.info == nil {
		return Continue, errors.New("no kernel symbols loaded")
	}
	prefix := ""
	if len(argv) > 1 {
		prefix = argv[1]
	}
	for _, name := range s.info.Functions(prefix) {
		fmt.Fprintln(s.stdout, name)
	}
	return Continue, nil
}

func exitCommand(s *Session, argv []string) (Signal, error) {
	return Exit, nil
}
