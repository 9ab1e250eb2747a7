package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the transit banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{" _                        _ _   ", "#818cf8"},
		{"| |_ _ __ __ _ _ __  ___ (_) |_ ", "#a78bfa"},
		{"| __| '__/ _` | '_ \\/ __|| | __|", "#c084fc"},
		{"| |_| | | (_| | | | \\__ \\| | |_ ", "#e879f9"},
		{" \\__|_|  \\__,_|_| |_|___/|_|\\__|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
