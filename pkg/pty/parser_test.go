package pty

import "testing"

func TestVT100Parser_PlainText(t *testing.T) {
	grid := NewGrid(10, 3)
	p := NewVT100Parser(grid, nil)
	p.Feed([]byte("hello"))

	row := grid.Row(0)
	got := string([]rune{row[0].Rune, row[1].Rune, row[2].Rune, row[3].Rune, row[4].Rune})
	if got != "hello" {
		t.Errorf("row 0 = %q, want %q", got, "hello")
	}
	x, y := grid.Cursor()
	if x != 5 || y != 0 {
		t.Errorf("cursor = (%d,%d), want (5,0)", x, y)
	}
}

func TestVT100Parser_NewlineAndCarriageReturn(t *testing.T) {
	grid := NewGrid(10, 3)
	p := NewVT100Parser(grid, nil)
	p.Feed([]byte("ab\r\ncd"))

	row1 := grid.Row(1)
	if row1[0].Rune != 'c' || row1[1].Rune != 'd' {
		t.Errorf("row 1 = %q%q, want cd", row1[0].Rune, row1[1].Rune)
	}
}

func TestVT100Parser_ScrollsIntoScrollback(t *testing.T) {
	grid := NewGrid(5, 2)
	sb := NewScrollback(10)
	p := NewVT100Parser(grid, sb)

	p.Feed([]byte("line1\r\nline2\r\nline3"))

	if sb.Len() == 0 {
		t.Fatalf("expected scrolled rows to land in scrollback")
	}
}

func TestVT100Parser_CursorMovement(t *testing.T) {
	grid := NewGrid(10, 10)
	p := NewVT100Parser(grid, nil)

	p.Feed([]byte("\x1b[5;3Hx"))
	row := grid.Row(4) // row index is 0-based, CUP row 5 is index 4
	if row[2].Rune != 'x' {
		t.Errorf("expected 'x' at (2,4), row=%v", row)
	}
}

func TestVT100Parser_EraseDisplay(t *testing.T) {
	grid := NewGrid(5, 2)
	p := NewVT100Parser(grid, nil)
	p.Feed([]byte("hello"))
	p.Feed([]byte("\x1b[2J"))

	row := grid.Row(0)
	for i, c := range row {
		if c.Rune != ' ' && c.Rune != 0 {
			t.Errorf("cell %d not cleared: %q", i, c.Rune)
		}
	}
}

func TestVT100Parser_SGRColor(t *testing.T) {
	grid := NewGrid(5, 1)
	p := NewVT100Parser(grid, nil)
	p.Feed([]byte("\x1b[31mred"))

	row := grid.Row(0)
	if row[0].Style.FG.Value != 1 {
		t.Errorf("expected red (value 1), got %+v", row[0].Style.FG)
	}
}

func TestVT100Parser_SplitUTF8AcrossFeeds(t *testing.T) {
	grid := NewGrid(5, 1)
	p := NewVT100Parser(grid, nil)

	full := []byte("é") // 2-byte UTF-8 sequence
	p.Feed(full[:1])
	p.Feed(full[1:])

	row := grid.Row(0)
	if row[0].Rune != 'é' {
		t.Errorf("row 0 rune = %q, want 'é'", row[0].Rune)
	}
}

func TestTranslateSpecialKeys(t *testing.T) {
	cases := map[string]string{
		"^C":        "\x03",
		"[UP]":      "\x1b[A",
		"plain^Ctxt": "plain\x03txt",
	}
	for in, want := range cases {
		if got := translateSpecialKeys(in); got != want {
			t.Errorf("translateSpecialKeys(%q) = %q, want %q", in, got, want)
		}
	}
}
