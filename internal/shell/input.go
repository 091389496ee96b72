// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/samber/oops"
	"golang.org/x/term"
)

// PasswordFunc reads a secret after showing prompt.
type PasswordFunc func(ctx context.Context, prompt string) (string, error)

type lineResult struct {
	line string
	err  error
}

// Input reads lines on demand. A line is only read from the underlying
// reader when ReadLine asks for one, so a password prompt can take over the
// terminal between reads.
type Input struct {
	reader   *bufio.Reader
	out      *Printer
	password PasswordFunc

	start sync.Once
	stop  sync.Once
	want  chan struct{}
	lines chan lineResult
	done  chan struct{}
}

// InputOption configures an Input.
type InputOption func(*Input)

// WithPassword sets how secrets are read. Without it secrets are read as
// ordinary lines.
func WithPassword(fn PasswordFunc) InputOption {
	return func(in *Input) {
		in.password = fn
	}
}

// NewInput reads from r and writes prompts to out.
func NewInput(r io.Reader, out *Printer, opts ...InputOption) *Input {
	in := &Input{
		reader: bufio.NewReader(r),
		out:    out,
		want:   make(chan struct{}),
		lines:  make(chan lineResult, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func (in *Input) run() {
	for {
		select {
		case <-in.done:
			return
		case <-in.want:
			line, err := in.reader.ReadString('\n')
			if err != nil && line != "" {
				// Deliver a final unterminated line before the error.
				in.lines <- lineResult{line: line}
				select {
				case <-in.done:
					return
				case <-in.want:
				}
			}
			in.lines <- lineResult{line: line, err: err}
		}
	}
}

// ReadLine returns the next line without its trailing newline. It returns
// io.EOF when the reader is exhausted.
func (in *Input) ReadLine(ctx context.Context) (string, error) {
	in.start.Do(func() { go in.run() })

	select {
	case in.want <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-in.done:
		return "", io.EOF
	}

	select {
	case res := <-in.lines:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimRight(res.line, "\r\n"), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Prompt shows prompt and reads one trimmed line.
func (in *Input) Prompt(ctx context.Context, prompt string) (string, error) {
	in.out.Print(prompt)
	line, err := in.ReadLine(ctx)
	return strings.TrimSpace(line), err
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (in *Input) Confirm(ctx context.Context, prompt string) bool {
	answer, err := in.Prompt(ctx, prompt+" [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Password reads a secret.
func (in *Input) Password(ctx context.Context, prompt string) (string, error) {
	if in.password != nil {
		return in.password(ctx, prompt)
	}
	line, err := in.Prompt(ctx, prompt)
	return line, err
}

// Close stops the reader goroutine once its current read, if any, returns.
func (in *Input) Close() {
	in.stop.Do(func() { close(in.done) })
}

// IsTerminal reports whether fd is a terminal.
func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// TerminalPassword reads secrets from the terminal fd without echo.
func TerminalPassword(fd int, out *Printer) PasswordFunc {
	return func(_ context.Context, prompt string) (string, error) {
		out.Print(prompt)
		secret, err := term.ReadPassword(fd)
		out.Print("\n")
		if err != nil {
			return "", oops.Code("PASSWORD_READ").Wrapf(err, "reading password")
		}
		return string(secret), nil
	}
}

// Printer serialises writes to the terminal. Background loads and
// notifications print through the same Printer as the prompt.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter wraps w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes text as one unit.
func (p *Printer) Print(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, text)
}

// Printf formats and writes as one unit.
func (p *Printer) Printf(format string, args ...any) {
	p.Print(fmt.Sprintf(format, args...))
}
