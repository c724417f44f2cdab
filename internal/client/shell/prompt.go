// Package shell is the interactive command line front end of the desk
// client.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompter reads answers line by line and writes prompts. Writes are
// serialized so asynchronous notices do not interleave with prompts.
type Prompter struct {
	scanner *bufio.Scanner
	mu      sync.Mutex
	out     io.Writer
}

// NewPrompter reads from in and writes to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer. ok is false at end of
// input.
func (p *Prompter) Ask(label string) (answer string, ok bool) {
	p.Printf("%s: ", label)
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// AskDefault is Ask with a value used for an empty answer.
func (p *Prompter) AskDefault(label, def string) (string, bool) {
	ans, ok := p.Ask(fmt.Sprintf("%s [%s]", label, def))
	if ok && ans == "" {
		ans = def
	}
	return ans, ok
}

// Confirm asks a yes/no question; anything but y or yes is no.
func (p *Prompter) Confirm(label string) bool {
	ans, ok := p.Ask(label + " (y/N)")
	if !ok {
		return false
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true
	}
	return false
}

// Line reads the next raw command line.
func (p *Prompter) Line(prompt string) (string, bool) {
	p.Printf("%s", prompt)
	if !p.scanner.Scan() {
		return "", false
	}
	return p.scanner.Text(), true
}

// Printf writes formatted output.
func (p *Prompter) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// Println writes a line.
func (p *Prompter) Println(args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, args...)
}
