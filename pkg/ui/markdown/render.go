package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/relaycode/loom/pkg/ui/compositor"
)

// Render converts highlighted lines into an ANSI-escaped string suitable
// for direct terminal output via lipgloss styles.
func Render(lines []StyledLine) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if line.BlankLine {
			continue
		}
		for _, span := range line.Spans {
			b.WriteString(lipglossStyle(span.Style).Render(span.Text))
		}
	}
	return b.String()
}

func lipglossStyle(s compositor.Style) lipgloss.Style {
	out := lipgloss.NewStyle()
	if s.FG.Mode != compositor.ColorModeNone && s.FG.Mode != compositor.ColorModeDefault {
		out = out.Foreground(lipglossColor(s.FG))
	}
	if s.BG.Mode != compositor.ColorModeNone && s.BG.Mode != compositor.ColorModeDefault {
		out = out.Background(lipglossColor(s.BG))
	}
	return out.
		Bold(s.Bold).
		Italic(s.Italic).
		Underline(s.Underline).
		Strikethrough(s.Strikethrough).
		Reverse(s.Reverse)
}

func lipglossColor(c compositor.Color) lipgloss.Color {
	switch c.Mode {
	case compositor.ColorModeRGB:
		return lipgloss.Color(fmt.Sprintf("#%06x", c.Value))
	case compositor.ColorMode256, compositor.ColorMode16:
		return lipgloss.Color(strconv.FormatUint(uint64(c.Value), 10))
	default:
		return lipgloss.Color("")
	}
}
