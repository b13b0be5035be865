package monitor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-kmon/kmon/pkg/target"
)

func runSession(t *testing.T, tgt Target, input string) string {
	t.Helper()
	out := &bytes.Buffer{}
	line := NewPlainReader(strings.NewReader(input), out)
	s := New(tgt, nil, line, out)
	if err := s.Run(); err != nil {
		t.Fatalf("session failed: %v", err)
	}
	return out.String()
}

func TestSessionBanner(t *testing.T) {
	out := runSession(t, Target{}, "exit\n")
	if !strings.Contains(out, "Welcome to the kmon kernel monitor!") {
		t.Fatalf("missing banner:\n%s", out)
	}
	if !strings.Contains(out, "Type 'help' for a list of commands.") {
		t.Fatalf("missing usage hint:\n%s", out)
	}
}

func TestSessionPrintsContextOnEntry(t *testing.T) {
	ctx := &target.Context{Eip: 0xf0100bcc, Trapno: 3}
	out := runSession(t, Target{Context: ctx}, "c\n")
	if !strings.Contains(out, "TRAP frame") || !strings.Contains(out, "Breakpoint") {
		t.Fatalf("context snapshot not printed:\n%s", out)
	}
}

func TestSessionContinuesAfterErrors(t *testing.T) {
	out := runSession(t, Target{}, "bogus\nhelp\nexit\n")
	if !strings.Contains(out, "Unknown command 'bogus'") {
		t.Fatalf("missing unknown command report:\n%s", out)
	}
	if !strings.Contains(out, "help - Display this list of commands") {
		t.Fatalf("session did not continue after the error:\n%s", out)
	}
}

func TestSessionEndsAtEOF(t *testing.T) {
	// input without an exit command, Run must still return
	out := runSession(t, Target{}, "help\n")
	if !strings.Contains(out, "help - Display this list of commands") {
		t.Fatalf("command before EOF not dispatched:\n%s", out)
	}
}

func TestSessionStepEndsLoop(t *testing.T) {
	ctx := &target.Context{}
	out := runSession(t, Target{Context: ctx}, "si\nhelp\n")
	if strings.Contains(out, "help - ") {
		t.Fatalf("session kept reading after si:\n%s", out)
	}
	if !ctx.SingleStepping() {
		t.Fatal("trap flag not set after si")
	}
}

func TestPlainReaderUnterminatedLine(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewPlainReader(strings.NewReader("help"), out)
	line, err := r.ReadLine("K> ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "help" {
		t.Fatalf("got %q", line)
	}
}
