// Package render formats replies and errors for the terminal. Renderers are
// purely presentational: they consume reply streams and never touch
// conversation state.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/chaicli/chai/providers/ai"
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// Prompt formats the interactive input prompt for a model.
func Prompt(model string) string {
	return promptStyle.Render(fmt.Sprintf("[%s] >>> ", model))
}

// Renderer displays reply streams, static text, and errors. Implementations
// must show streamed chunks in arrival order (Plain) or make the wait visible
// while buffering for layout (Markdown).
type Renderer interface {
	// RenderStream consumes the reply stream exactly once and displays it.
	// The stream's mid-flight error, if any, is returned unrendered so the
	// caller can route it through RenderError.
	RenderStream(stream *ai.ChatStream) error

	// RenderText displays a complete block of (markdown) text.
	RenderText(text string) error

	// RenderError displays a failure without altering any state.
	RenderError(err error)
}

// renderError writes a styled one-line error report. ProviderError kinds are
// surfaced so the user can tell a rate limit from a network fault.
func renderError(out io.Writer, err error) {
	var providerErr *ai.ProviderError
	if errors.As(err, &providerErr) {
		fmt.Fprintf(out, "%s %s\n", errorStyle.Render("Error:"), providerErr.Error())
		return
	}
	fmt.Fprintf(out, "%s %v\n", errorStyle.Render("Error:"), err)
}

// Plain streams reply chunks to the terminal verbatim, in arrival order, with
// no buffering beyond the write itself. Selected with --plain.
type Plain struct {
	out io.Writer
}

// NewPlain returns a Plain renderer writing to out.
func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

// RenderStream implements [Renderer].
func (p *Plain) RenderStream(stream *ai.ChatStream) error {
	wrote := false
	for event, err := range stream.Iter() {
		if err != nil {
			if wrote {
				fmt.Fprintln(p.out)
			}
			return err
		}
		if event.Type == ai.StreamEventContent && event.Content != "" {
			fmt.Fprint(p.out, event.Content)
			wrote = true
		}
	}
	fmt.Fprintln(p.out)
	return nil
}

// RenderText implements [Renderer].
func (p *Plain) RenderText(text string) error {
	_, err := fmt.Fprintln(p.out, text)
	return err
}

// RenderError implements [Renderer].
func (p *Plain) RenderError(err error) {
	renderError(p.out, err)
}
