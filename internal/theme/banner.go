// Package theme styles the CLI's help output.
package theme

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	rule  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tag   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
)

// Banner returns the chronicler banner.
func Banner() string {
	return title.Render("  CHRONICLER") + "\n" +
		rule.Render("  ──────────────────────────────") + "\n" +
		tag.Render("  screenshots what quote retweets point at") + "\n"
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner())
}
