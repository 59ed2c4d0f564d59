package pty

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/relaycode/loom/pkg/ui/compositor"
)

// parserState is the VT100Parser's position in the ANSI escape grammar.
type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateCSI
)

// VT100Parser turns a raw byte stream from a PTY into mutations on a Grid.
// It recognizes the C0 control set, a practical subset of CSI sequences
// (cursor movement, erase-in-line/display, SGR) and DECSC/DECRC, and
// silently discards sequences it does not recognize rather than failing;
// matching real terminal emulator behaviour when faced with an unsupported
// escape.
type VT100Parser struct {
	grid       *Grid
	scrollback *Scrollback

	state   parserState
	csiBuf  strings.Builder
	pending []byte // incomplete UTF-8 sequence carried across Feed calls
}

// NewVT100Parser creates a parser writing into the given grid, pushing rows
// scrolled off the top into scrollback (which may be nil to discard them).
func NewVT100Parser(grid *Grid, scrollback *Scrollback) *VT100Parser {
	return &VT100Parser{grid: grid, scrollback: scrollback}
}

func (p *VT100Parser) onScroll(row []compositor.Cell) {
	if p.scrollback != nil {
		p.scrollback.Push(row)
	}
}

// Feed parses data in arrival order, applying every recognized effect to
// the grid before returning: output bytes are applied in the order they
// arrive, matching the ordering guarantee in the concurrency model.
func (p *VT100Parser) Feed(data []byte) {
	if len(p.pending) > 0 {
		data = append(p.pending, data...)
		p.pending = nil
	}

	i := 0
	for i < len(data) {
		b := data[i]

		switch p.state {
		case stateGround:
			switch {
			case b == 0x1b:
				p.state = stateEscape
				i++
			case b == '\n':
				p.grid.NewLine(p.onScroll)
				i++
			case b == '\r':
				p.grid.CarriageReturn()
				i++
			case b == '\b':
				p.grid.Backspace()
				i++
			case b == '\t':
				p.advanceTab()
				i++
			case b < 0x20 || b == 0x7f:
				// Other C0/DEL controls (bell, vertical tab, form feed...) are
				// not surfaced on screen.
				i++
			case b < 0x80:
				p.grid.WriteRune(rune(b), p.onScroll)
				i++
			default:
				r, size := utf8.DecodeRune(data[i:])
				if r == utf8.RuneError && size <= 1 {
					if !utf8.FullRune(data[i:]) {
						p.pending = append(p.pending, data[i:]...)
						return
					}
					i++
					continue
				}
				p.grid.WriteRune(r, p.onScroll)
				i += size
			}

		case stateEscape:
			switch b {
			case '[':
				p.state = stateCSI
				p.csiBuf.Reset()
			case '7':
				p.grid.SaveCursor()
				p.state = stateGround
			case '8':
				p.grid.RestoreCursor()
				p.state = stateGround
			case 'c':
				// RIS: reset to initial state.
				p.grid.EraseDisplay(2)
				p.grid.MoveCursor(0, 0)
				p.state = stateGround
			default:
				// Unsupported ESC sequence (charset selection, etc.), drop it.
				p.state = stateGround
			}
			i++

		case stateCSI:
			if (b >= '0' && b <= '9') || b == ';' || b == '?' {
				p.csiBuf.WriteByte(b)
				i++
				continue
			}
			// Any byte in 0x40-0x7E terminates the CSI sequence.
			p.dispatchCSI(b, p.csiBuf.String())
			p.state = stateGround
			i++
		}
	}
}

func (p *VT100Parser) advanceTab() {
	x, y := p.grid.Cursor()
	width, _ := p.grid.Size()
	next := ((x / 8) + 1) * 8
	if next >= width {
		next = width - 1
	}
	p.grid.MoveCursor(next, y)
}

func (p *VT100Parser) dispatchCSI(final byte, params string) {
	private := strings.HasPrefix(params, "?")
	params = strings.TrimPrefix(params, "?")
	args := parseCSIParams(params)

	switch final {
	case 'A':
		p.grid.MoveCursorRelative(0, -argOr(args, 0, 1))
	case 'B':
		p.grid.MoveCursorRelative(0, argOr(args, 0, 1))
	case 'C':
		p.grid.MoveCursorRelative(argOr(args, 0, 1), 0)
	case 'D':
		p.grid.MoveCursorRelative(-argOr(args, 0, 1), 0)
	case 'H', 'f':
		row := argOr(args, 0, 1)
		col := argOr(args, 1, 1)
		p.grid.MoveCursor(col-1, row-1)
	case 'J':
		p.grid.EraseDisplay(argOr(args, 0, 0))
	case 'K':
		p.grid.EraseLine(argOr(args, 0, 0))
	case 'm':
		p.applySGR(args)
	case 'h', 'l':
		if private {
			// DEC private modes (cursor visibility, alt screen, etc.) are
			// tracked by the caller via get_cursor; nothing to mutate here.
			return
		}
	default:
		// Scroll-region, device-status-report and other sequences are not
		// needed for screen rendering and are silently ignored.
	}
}

func (p *VT100Parser) applySGR(args []int) {
	style := p.grid.Style()
	if len(args) == 0 {
		args = []int{0}
	}
	for idx := 0; idx < len(args); idx++ {
		code := args[idx]
		switch {
		case code == 0:
			style = compositor.DefaultStyle()
		case code == 1:
			style.Bold = true
		case code == 2:
			style.Dim = true
		case code == 3:
			style.Italic = true
		case code == 4:
			style.Underline = true
		case code == 5:
			style.Blink = true
		case code == 7:
			style.Reverse = true
		case code == 9:
			style.Strikethrough = true
		case code == 22:
			style.Bold, style.Dim = false, false
		case code == 23:
			style.Italic = false
		case code == 24:
			style.Underline = false
		case code == 27:
			style.Reverse = false
		case code >= 30 && code <= 37:
			style.FG = compositor.Color{Mode: compositor.ColorMode16, Value: uint32(code - 30)}
		case code == 38:
			c, consumed := parseExtendedColor(args[idx+1:])
			style.FG = c
			idx += consumed
		case code == 39:
			style.FG = compositor.ColorDefault
		case code >= 40 && code <= 47:
			style.BG = compositor.Color{Mode: compositor.ColorMode16, Value: uint32(code - 40)}
		case code == 48:
			c, consumed := parseExtendedColor(args[idx+1:])
			style.BG = c
			idx += consumed
		case code == 49:
			style.BG = compositor.ColorDefault
		case code >= 90 && code <= 97:
			style.FG = compositor.Color{Mode: compositor.ColorMode16, Value: uint32(code - 90 + 8)}
		case code >= 100 && code <= 107:
			style.BG = compositor.Color{Mode: compositor.ColorMode16, Value: uint32(code - 100 + 8)}
		}
	}
	p.grid.SetStyle(style)
}

// parseExtendedColor parses the tail of a 38/48 SGR sequence (either
// "5;n" for 256-colour or "2;r;g;b" for true colour) and returns how many
// extra args it consumed.
func parseExtendedColor(rest []int) (compositor.Color, int) {
	if len(rest) == 0 {
		return compositor.ColorDefault, 0
	}
	switch rest[0] {
	case 5:
		if len(rest) >= 2 {
			return compositor.Color256(uint8(rest[1])), 2
		}
	case 2:
		if len(rest) >= 4 {
			return compositor.RGB(uint8(rest[1]), uint8(rest[2]), uint8(rest[3])), 4
		}
	}
	return compositor.ColorDefault, len(rest)
}

func parseCSIParams(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	args := make([]int, len(parts))
	for i, part := range parts {
		if part == "" {
			args[i] = 0
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			args[i] = 0
			continue
		}
		args[i] = n
	}
	return args
}

func argOr(args []int, idx, def int) int {
	if idx >= len(args) || args[idx] == 0 {
		return def
	}
	return args[idx]
}
