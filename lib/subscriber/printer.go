// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package subscriber

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes module output lines as "<Name>: text".
type Printer struct {
	out    io.Writer
	prefix string
}

// NewPrinter returns a Printer for the module name. A nil renderer uses
// lipgloss's default renderer for out.
func NewPrinter(out io.Writer, renderer *lipgloss.Renderer, name string) *Printer {
	if renderer == nil {
		renderer = lipgloss.NewRenderer(out)
	}
	style := renderer.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "81"})
	return &Printer{
		out:    out,
		prefix: style.Render(name) + ": ",
	}
}

// Print writes text with the module prefix and a trailing newline.
func (p *Printer) Print(text string) {
	var builder strings.Builder
	builder.WriteString(p.prefix)
	builder.WriteString(strings.TrimRight(text, "\n"))
	builder.WriteByte('\n')
	io.WriteString(p.out, builder.String())
}
