// Package output provides consistent CLI output formatting. Colors are
// enabled only when writing to a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette.
const (
	colorAccent = "154" // lime green
	colorGray   = "245"
	colorRed    = "196"
	colorYellow = "220"
)

// Styles holds the lipgloss styles used by the writer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Score   lipgloss.Style
}

func colorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
	}
}

func plainStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
	}
}

// Writer provides formatted output for CLI commands.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a writer, detecting whether out is a terminal.
func New(out io.Writer) *Writer {
	return &Writer{out: out, styles: stylesFor(out)}
}

// NewPlain creates a writer with styling disabled.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: plainStyles()}
}

func stylesFor(out io.Writer) Styles {
	if f, ok := out.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return colorStyles()
		}
	}
	return plainStyles()
}

// Write errors are ignored throughout; console output is best effort.

// Header prints a bold section header.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(msg))
}

// Headerf prints a formatted header.
func (w *Writer) Headerf(format string, args ...any) {
	w.Header(fmt.Sprintf(format, args...))
}

// Line prints an unstyled line.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Linef prints a formatted unstyled line.
func (w *Writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Success.Render("✓ "+msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Warning.Render("! "+msg))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Error.Render("✗ "+msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Dim prints de-emphasized text.
func (w *Writer) Dim(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(msg))
}

// Result prints one ranked search result with a snippet.
func (w *Writer) Result(rank int, location string, score float64, content string, snippetLines int) {
	_, _ = fmt.Fprintf(w.out, "%d. %s %s\n",
		rank, location, w.styles.Score.Render(fmt.Sprintf("(score: %.4f)", score)))
	for _, line := range snippet(content, snippetLines) {
		_, _ = fmt.Fprintf(w.out, "   %s\n", line)
	}
	w.Newline()
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// snippet returns the first n lines of content, trimming trailing
// blank lines.
func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
