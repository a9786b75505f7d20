// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Prompt is shown before each line on an interactive terminal.
const Prompt = ">>> "

// Console reads command lines and serializes output. Write is safe for
// concurrent use; ReadLine must be called from one goroutine.
type Console struct {
	terminal *term.Terminal
	restore  func() error

	scanner *bufio.Scanner

	mu  sync.Mutex
	out io.Writer

	renderer *lipgloss.Renderer
}

// Open attaches to the process's stdin and stdout. When both are
// terminals, stdin is put in raw mode and lines are edited through
// x/term with a prompt; Close restores the terminal.
func Open() (*Console, error) {
	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return New(os.Stdin, os.Stdout), nil
	}

	oldState, err := term.MakeRaw(stdinFd)
	if err != nil {
		return nil, fmt.Errorf("setting terminal raw mode: %w", err)
	}
	terminal := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, Prompt)
	if width, height, err := term.GetSize(stdinFd); err == nil {
		terminal.SetSize(width, height)
	}

	return &Console{
		terminal: terminal,
		restore:  func() error { return term.Restore(stdinFd, oldState) },
		out:      terminal,
		renderer: lipgloss.NewRenderer(os.Stdout),
	}, nil
}

// New returns a non-interactive Console reading lines from in and
// writing to out. Output is rendered without colour.
func New(in io.Reader, out io.Writer) *Console {
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(termenv.Ascii))
	renderer.SetColorProfile(termenv.Ascii)
	return &Console{
		scanner:  bufio.NewScanner(in),
		out:      out,
		renderer: renderer,
	}
}

// Interactive reports whether the console drives a terminal.
func (c *Console) Interactive() bool {
	return c.terminal != nil
}

// Renderer returns the lipgloss renderer matching the output's colour
// capabilities.
func (c *Console) Renderer() *lipgloss.Renderer {
	return c.renderer
}

// ReadLine returns the next input line without its terminator. It
// returns io.EOF when input ends (Ctrl-D on a terminal).
func (c *Console) ReadLine() (string, error) {
	if c.terminal != nil {
		return c.terminal.ReadLine()
	}
	if c.scanner.Scan() {
		return c.scanner.Text(), nil
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Write writes p to the output. On a terminal the prompt and any
// partially typed line are redrawn after the output.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

// Close restores the terminal state. Safe to call on a non-interactive
// console and more than once.
func (c *Console) Close() error {
	if c.restore == nil {
		return nil
	}
	restore := c.restore
	c.restore = nil
	return restore()
}
