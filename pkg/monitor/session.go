package monitor

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/go-kmon/kmon/pkg/config"
	"github.com/go-kmon/kmon/pkg/debuginfo"
	"github.com/go-kmon/kmon/pkg/logflags"
	"github.com/go-kmon/kmon/pkg/pagetable"
	"github.com/go-kmon/kmon/pkg/target"
)

const monitorPrompt = "K> "

// Target groups the collaborators a session inspects. Any field may be nil;
// commands that need a missing collaborator report it and the session
// continues.
type Target struct {
	// Mem reads the suspended machine's memory.
	Mem target.Memory
	// Context is the trapped execution context. Nil represents a monitor
	// entered outside any trap.
	Context *target.Context
	// Pages resolves virtual addresses against the machine's page tables.
	Pages *pagetable.Walker
	// Info resolves code addresses to source locations.
	Info debuginfo.Resolver
}

// Session is one continuous run of the read-dispatch loop, from banner to
// the Exit signal.
type Session struct {
	cmds   *Commands
	line   LineReader
	stdout io.Writer

	ctx   *target.Context
	mem   target.Memory
	pages *pagetable.Walker
	info  debuginfo.Resolver

	maxDepth int
	log      *logrus.Entry
}

// New returns a session over tgt reading lines from line and writing to
// stdout. conf may be nil.
func New(tgt Target, conf *config.Config, line LineReader, stdout io.Writer) *Session {
	cmds := DebugCommands()
	if conf != nil && conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	maxDepth := 0
	if conf != nil && conf.MaxBacktraceDepth != nil {
		maxDepth = *conf.MaxBacktraceDepth
	}

	return &Session{
		cmds:     cmds,
		line:     line,
		stdout:   stdout,
		ctx:      tgt.Context,
		mem:      tgt.Mem,
		pages:    tgt.Pages,
		info:     tgt.Info,
		maxDepth: maxDepth,
		log:      logflags.MonitorLogger(),
	}
}

type completionSetter interface {
	SetCompleter(complete func(line string) []string)
}

// Run reads and dispatches commands until one of them requests exit or the
// line source reaches end of input.
func (s *Session) Run() error {
	fmt.Fprintln(s.stdout, "Welcome to the kmon kernel monitor!")
	fmt.Fprintln(s.stdout, "Type 'help' for a list of commands.")

	if s.ctx != nil {
		s.ctx.Dump(s.stdout)
	}

	if cs, ok := s.line.(completionSetter); ok {
		cs.SetCompleter(func(line string) (c []string) {
			for _, cmd := range s.cmds.cmds {
				for _, alias := range cmd.aliases {
					if strings.HasPrefix(alias, strings.ToLower(line)) {
						c = append(c, alias)
					}
				}
			}
			return
		})
	}

	for {
		line, err := s.line.ReadLine(monitorPrompt)
		if err == io.EOF {
			fmt.Fprintln(s.stdout)
			s.log.Debug("end of input, leaving session")
			return nil
		}
		if err != nil {
			return fmt.Errorf("prompt for input failed: %v", err)
		}
		if s.dispatch(line) == Exit {
			return nil
		}
	}
}

// Context returns the execution context attached to the session, nil if
// none. After a session ends with si or c the caller reads the single-step
// flag from it to decide how to resume.
func (s *Session) Context() *target.Context {
	return s.ctx
}
