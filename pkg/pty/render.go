package pty

import "github.com/relaycode/loom/pkg/ui/compositor"

// compositorStyleToANSI renders one cell's style as an ANSI SGR prefix
// followed by its rune, reusing the compositor's output-side encoder so the
// coloured get_screen rendering matches the same palette the rest of the
// system emits.
func compositorStyleToANSI(cell compositor.Cell) string {
	r := cell.Rune
	if r == 0 {
		r = ' '
	}
	return compositor.StyleToANSI(cell.Style) + string(r)
}
