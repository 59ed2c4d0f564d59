package pty

import (
	"sync"

	"github.com/relaycode/loom/pkg/ui/compositor"
)

// Grid is the live VT100 screen buffer for one PTY session: a cell matrix
// plus the cursor-driven write semantics (autowrap, scroll-on-newline,
// erase-in-line/display) that a compositor.Screen alone does not provide,
// since that type was built to diff two frames rather than to be written to
// byte-by-byte by a parser.
type Grid struct {
	mu     sync.Mutex
	screen *compositor.Screen
	width  int
	height int

	style      compositor.Style
	savedX     int
	savedY     int
	savedStyle compositor.Style
}

// NewGrid creates a grid of the given dimensions, cursor at origin.
func NewGrid(width, height int) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Grid{
		screen: compositor.NewScreen(width, height),
		width:  width,
		height: height,
		style:  compositor.DefaultStyle(),
	}
}

// Resize changes the grid dimensions, preserving content that still fits.
func (g *Grid) Resize(width, height int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	g.screen.Resize(width, height)
	g.width, g.height = width, height
	x, y, visible := g.screen.Cursor()
	x = clamp(x, 0, width-1)
	y = clamp(y, 0, height-1)
	g.screen.SetCursor(x, y, visible)
}

// Size returns the current dimensions.
func (g *Grid) Size() (width, height int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.width, g.height
}

// SetStyle sets the style applied to subsequent writes (SGR).
func (g *Grid) SetStyle(s compositor.Style) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.style = s
}

// Style returns the style currently applied to writes.
func (g *Grid) Style() compositor.Style {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.style
}

// WriteRune places r at the cursor and advances it, wrapping to the next
// row (and scrolling the grid up, pushing the vacated top row to onScroll)
// when it runs past the right edge.
func (g *Grid) WriteRune(r rune, onScroll func(row []compositor.Cell)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	x, y, visible := g.screen.Cursor()
	if x >= g.width {
		x = 0
		y++
	}
	if y >= g.height {
		g.scrollUpLocked(onScroll)
		y = g.height - 1
	}
	g.screen.Set(x, y, r, g.style)
	width := 1
	if c := g.screen.Get(x, y); c.Width > 0 {
		width = int(c.Width)
	}
	g.screen.SetCursor(x+width, y, visible)
}

// NewLine moves the cursor to the start of the next row, scrolling if
// already at the bottom.
func (g *Grid) NewLine(onScroll func(row []compositor.Cell)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, y, visible := g.screen.Cursor()
	y++
	if y >= g.height {
		g.scrollUpLocked(onScroll)
		y = g.height - 1
	}
	g.screen.SetCursor(0, y, visible)
}

// CarriageReturn moves the cursor to column 0 of the current row.
func (g *Grid) CarriageReturn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, y, visible := g.screen.Cursor()
	g.screen.SetCursor(0, y, visible)
}

// Backspace moves the cursor one column left, stopping at the margin.
func (g *Grid) Backspace() {
	g.mu.Lock()
	defer g.mu.Unlock()
	x, y, visible := g.screen.Cursor()
	if x > 0 {
		x--
	}
	g.screen.SetCursor(x, y, visible)
}

// MoveCursor sets the cursor position (0-indexed), clamped to the grid.
func (g *Grid) MoveCursor(x, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, _, visible := g.screen.Cursor()
	g.screen.SetCursor(clamp(x, 0, g.width-1), clamp(y, 0, g.height-1), visible)
}

// MoveCursorRelative moves the cursor by (dx, dy), clamped to the grid.
func (g *Grid) MoveCursorRelative(dx, dy int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	x, y, visible := g.screen.Cursor()
	g.screen.SetCursor(clamp(x+dx, 0, g.width-1), clamp(y+dy, 0, g.height-1), visible)
}

// Cursor returns the current cursor position.
func (g *Grid) Cursor() (x, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	x, y, _ = g.screen.Cursor()
	return x, y
}

// EraseLine implements CSI K. mode 0=cursor-to-end, 1=start-to-cursor, 2=whole line.
func (g *Grid) EraseLine(mode int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, y, _ := g.screen.Cursor()
	x, _, _ := g.screen.Cursor()
	switch mode {
	case 1:
		g.screen.FillRect(0, y, x+1, 1, ' ', compositor.DefaultStyle())
	case 2:
		g.screen.FillRect(0, y, g.width, 1, ' ', compositor.DefaultStyle())
	default:
		g.screen.FillRect(x, y, g.width-x, 1, ' ', compositor.DefaultStyle())
	}
}

// EraseDisplay implements CSI J. mode 0=cursor-to-end, 1=start-to-cursor, 2=whole screen.
func (g *Grid) EraseDisplay(mode int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	x, y, _ := g.screen.Cursor()
	switch mode {
	case 1:
		g.screen.FillRect(0, 0, g.width, y, ' ', compositor.DefaultStyle())
		g.screen.FillRect(0, y, x+1, 1, ' ', compositor.DefaultStyle())
	case 2:
		g.screen.Clear()
	default:
		g.screen.FillRect(x, y, g.width-x, 1, ' ', compositor.DefaultStyle())
		g.screen.FillRect(0, y+1, g.width, g.height-y-1, ' ', compositor.DefaultStyle())
	}
}

// SaveCursor implements DECSC (ESC 7).
func (g *Grid) SaveCursor() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.savedX, g.savedY, _ = g.screen.Cursor()
	g.savedStyle = g.style
}

// RestoreCursor implements DECRC (ESC 8).
func (g *Grid) RestoreCursor() {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, _, visible := g.screen.Cursor()
	g.screen.SetCursor(g.savedX, g.savedY, visible)
	g.style = g.savedStyle
}

// Row returns a copy of the cells in row y, or nil if out of range.
func (g *Grid) Row(y int) []compositor.Cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	if y < 0 || y >= g.height {
		return nil
	}
	row := make([]compositor.Cell, g.width)
	for x := 0; x < g.width; x++ {
		row[x] = g.screen.Get(x, y)
	}
	return row
}

// scrollUpLocked shifts every row up by one, handing the vacated top row to
// onScroll (the scrollback sink) before it is discarded. Caller must hold mu.
func (g *Grid) scrollUpLocked(onScroll func(row []compositor.Cell)) {
	if onScroll != nil {
		top := make([]compositor.Cell, g.width)
		for x := 0; x < g.width; x++ {
			top[x] = g.screen.Get(x, 0)
		}
		onScroll(top)
	}
	for y := 0; y < g.height-1; y++ {
		for x := 0; x < g.width; x++ {
			g.screen.Set(x, y, g.screen.Get(x, y+1).Rune, g.screen.Get(x, y+1).Style)
		}
	}
	g.screen.FillRect(0, g.height-1, g.width, 1, ' ', compositor.DefaultStyle())
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
