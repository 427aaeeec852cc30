package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"

	"github.com/chaicli/chai/providers/ai"
)

// Markdown buffers the full reply and renders it as terminal markdown. Glamour
// needs the complete document for layout, so a spinner keeps the wait visible
// while chunks accumulate.
type Markdown struct {
	out      io.Writer
	renderer *glamour.TermRenderer
	spinner  *Spinner
}

// NewMarkdown returns a Markdown renderer writing to out. Styling follows the
// terminal's light or dark background.
func NewMarkdown(out io.Writer) (*Markdown, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return &Markdown{
		out:      out,
		renderer: renderer,
		spinner:  NewSpinner(out),
	}, nil
}

// RenderStream implements [Renderer]. The stream is drained to completion
// before anything is printed; a mid-flight error discards nothing visible and
// is returned to the caller.
func (m *Markdown) RenderStream(stream *ai.ChatStream) error {
	m.spinner.Start()
	response, err := stream.Collect()
	m.spinner.Stop()
	if err != nil {
		return err
	}
	return m.RenderText(response.Content)
}

// RenderText implements [Renderer].
func (m *Markdown) RenderText(text string) error {
	rendered, err := m.renderer.Render(text)
	if err != nil {
		// Fall back to the raw text rather than swallowing the reply.
		fmt.Fprintln(m.out, text)
		return nil
	}
	fmt.Fprint(m.out, rendered)
	return nil
}

// RenderError implements [Renderer].
func (m *Markdown) RenderError(err error) {
	m.spinner.Stop()
	renderError(m.out, err)
}
