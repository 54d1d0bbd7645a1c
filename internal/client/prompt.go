package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// Prompter asks the user for input.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func NewPrompter(in *os.File, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: int(in.Fd())}
}

// Line prints label and reads one trimmed line.
func (p *Prompter) Line(label string) (string, error) {
	if _, err := fmt.Fprint(p.out, label+": "); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password reads a password without echo. When input is not a terminal it
// falls back to reading a plain line, so passwords can be piped in.
func (p *Prompter) Password(label string) (string, error) {
	if !isTerminal(p.fd) {
		return p.Line(label)
	}

	if _, err := fmt.Fprint(p.out, label+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
