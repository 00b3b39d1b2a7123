package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"    _                    _                          _     ",
	"   /_\\  __ _ ___ _ _  __| |_ __ _ _ _ __ _ _ __| |_   ",
	"  / _ \\/ _` / -_) ' \\|_  _/ _` | '_/ _` | '_ \\ ' \\  ",
	" /_/ \\_\\__, \\___|_||_| |_| \\__, |_| \\__,_| .__/_||_| ",
	"       |___/               |___/         |_|          ",
}

var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

// PrintBanner writes the agentgraph banner and the graph being served to w.
func PrintBanner(w io.Writer, graphName, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	fmt.Fprintln(w, termenv.String(fmt.Sprintf("  graph: %s  version: %s", graphName, version)).Faint())
	fmt.Fprintln(w)
}
