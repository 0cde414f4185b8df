// Package report renders run results for humans on a terminal or CI log.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	ruleChar     = "="
)

// Color palette
var (
	colorPrimary = lipgloss.Color("#00D4FF")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
)

// Printer writes styled reports to w. Styles degrade to plain text when w is
// not a terminal.
type Printer struct {
	w        io.Writer
	width    int
	markdown bool

	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	danger  lipgloss.Style
	label   lipgloss.Style
}

// NewPrinter creates a printer for w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	p := &Printer{
		w:       w,
		width:   defaultWidth,
		title:   r.NewStyle().Bold(true).Foreground(colorPrimary),
		muted:   r.NewStyle().Foreground(colorMuted),
		success: r.NewStyle().Foreground(colorSuccess).Bold(true),
		warning: r.NewStyle().Foreground(colorWarning).Bold(true),
		danger:  r.NewStyle().Foreground(colorError).Bold(true),
		label:   r.NewStyle().Bold(true),
	}

	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.markdown = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 20 {
			p.width = width
		}
	}
	return p
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *Printer) rule() {
	p.println(p.muted.Render(strings.Repeat(ruleChar, min(p.width, defaultWidth))))
}

func (p *Printer) section(title string) {
	p.println("")
	p.println(p.title.Render(title))
}

// renderMarkdown renders narrative text through glamour on a terminal and
// returns it unchanged otherwise.
func (p *Printer) renderMarkdown(content string) string {
	if !p.markdown {
		return strings.TrimRight(content, "\n")
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(p.width-4),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
