package shell

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette entries. The bright ANSI colors keep to the 16-color set the
// widget renders.
const (
	colorBrightRed    = "9"
	colorBrightYellow = "11"
	colorBrightCyan   = "14"
)

// DefaultPromptColor is the shell prompt color when none is configured.
const DefaultPromptColor = colorBrightYellow

type styles struct {
	prompt lipgloss.Style
	err    lipgloss.Style
	script lipgloss.Style
	dir    lipgloss.Style
}

func newStyles(color bool, promptColor string) styles {
	r := lipgloss.NewRenderer(io.Discard)
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	if promptColor == "" {
		promptColor = DefaultPromptColor
	}
	return styles{
		prompt: r.NewStyle().Foreground(lipgloss.Color(promptColor)),
		err:    r.NewStyle().Foreground(lipgloss.Color(colorBrightRed)),
		script: r.NewStyle().Foreground(lipgloss.Color(colorBrightYellow)),
		dir:    r.NewStyle().Foreground(lipgloss.Color(colorBrightCyan)),
	}
}

// paint renders text line by line so multi-line output is not padded into
// a block.
func paint(st lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = st.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
