// Package tui holds terminal presentation helpers for the CLI.
package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders Markdown for the terminal.
// It falls back to the raw text when no renderer can be built.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
