package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the storyline banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"     _                   _ _", "#818cf8"},
		{" ___| |_ ___  _ __ _   _| (_)_ __   ___", "#a78bfa"},
		{"/ __| __/ _ \\| '__| | | | | | '_ \\ / _ \\", "#c084fc"},
		{"\\__ \\ || (_) | |  | |_| | | | | | |  __/", "#e879f9"},
		{"|___/\\__\\___/|_|   \\__, |_|_|_| |_|\\___|", "#f472b6"},
		{"                   |___/", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
