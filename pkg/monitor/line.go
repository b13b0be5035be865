package monitor

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// LineReader is the console line source a session reads from.
type LineReader interface {
	// ReadLine blocks until one input line is available and returns it
	// without the trailing newline. It returns io.EOF at end of input.
	ReadLine(prompt string) (line string, err error)
	Close() error
}

// LinerReader reads lines with line editing and history. Use it when the
// monitor talks to an interactive terminal.
type LinerReader struct {
	state *liner.State
}

// NewLinerReader initializes the terminal for line editing.
func NewLinerReader() *LinerReader {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return &LinerReader{state: l}
}

// SetCompleter installs a completion function over command names.
func (l *LinerReader) SetCompleter(complete func(line string) []string) {
	l.state.SetCompleter(complete)
}

func (l *LinerReader) ReadLine(prompt string) (string, error) {
	line, err := l.state.Prompt(prompt)
	if err == liner.ErrPromptAborted {
		// ^C cancels the line, not the session.
		return "", nil
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	if line != "" {
		l.state.AppendHistory(line)
	}
	return line, nil
}

// Close returns the terminal to its previous mode.
func (l *LinerReader) Close() error {
	return l.state.Close()
}

// PlainReader reads lines from a plain byte stream, echoing the prompt to
// w. It serves piped input and dumb terminals.
type PlainReader struct {
	r *bufio.Reader
	w io.Writer
}

// NewPlainReader returns a PlainReader over r that prints prompts to w.
func NewPlainReader(r io.Reader, w io.Writer) *PlainReader {
	return &PlainReader{r: bufio.NewReader(r), w: w}
}

func (p *PlainReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.w, prompt)
	line, err := p.r.ReadString('\n')
	if err == io.EOF && line != "" {
		// final unterminated line still dispatches
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *PlainReader) Close() error {
	return nil
}
