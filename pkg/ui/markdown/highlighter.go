// Package markdown renders fenced code blocks with language-aware syntax
// highlighting for the CLI's own output writer, independent of whatever
// generic code styling glamour applies when rendering a full markdown
// document.
package markdown

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/relaycode/loom/pkg/ui/compositor"
)

// StyledSpan is a run of text sharing one style.
type StyledSpan struct {
	Text  string
	Style compositor.Style
}

// StyledLine is one line of highlighted code.
type StyledLine struct {
	Spans     []StyledSpan
	Language  string
	BlankLine bool
}

// Highlighter tokenizes source text and assigns a style per token category.
type Highlighter struct {
	palette codePalette
}

type codePalette struct {
	Default     compositor.Style
	Keyword     compositor.Style
	TypeName    compositor.Style
	Function    compositor.Style
	String      compositor.Style
	Number      compositor.Style
	Comment     compositor.Style
	Operator    compositor.Style
	Punctuation compositor.Style
	Builtin     compositor.Style
	Variable    compositor.Style
	Attribute   compositor.Style
	Tag         compositor.Style
	Error       compositor.Style
}

// NewHighlighter returns a highlighter using the writer's default palette.
func NewHighlighter() *Highlighter {
	return &Highlighter{palette: defaultPalette()}
}

func defaultPalette() codePalette {
	return codePalette{
		Default:     compositor.Style{FG: compositor.ColorDefault},
		Keyword:     compositor.Style{FG: compositor.Hex(0xFF79C6), Bold: true},
		TypeName:    compositor.Style{FG: compositor.Hex(0x8BE9FD)},
		Function:    compositor.Style{FG: compositor.Hex(0x50FA7B)},
		String:      compositor.Style{FG: compositor.Hex(0xF1FA8C)},
		Number:      compositor.Style{FG: compositor.Hex(0xBD93F9)},
		Comment:     compositor.Style{FG: compositor.Hex(0x6272A4), Italic: true},
		Operator:    compositor.Style{FG: compositor.Hex(0xFF79C6)},
		Punctuation: compositor.Style{FG: compositor.Hex(0xF8F8F2)},
		Builtin:     compositor.Style{FG: compositor.Hex(0x8BE9FD)},
		Variable:    compositor.Style{FG: compositor.Hex(0xF8F8F2)},
		Attribute:   compositor.Style{FG: compositor.Hex(0x50FA7B)},
		Tag:         compositor.Style{FG: compositor.Hex(0xFF79C6)},
		Error:       compositor.Style{FG: compositor.ColorBrightRed, Bold: true},
	}
}

// Highlight tokenizes code and returns one StyledLine per source line.
func (h *Highlighter) Highlight(code, language string) []StyledLine {
	if code == "" {
		return []StyledLine{{Language: language, BlankLine: true}}
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iter, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fallbackLines(code, language)
	}

	var lines []StyledLine
	current := StyledLine{Language: language}
	flush := func(force bool) {
		if len(current.Spans) == 0 && !force {
			return
		}
		if len(current.Spans) == 0 {
			current.BlankLine = true
		}
		lines = append(lines, current)
		current = StyledLine{Language: language}
	}

	for token := iter(); token != chroma.EOF; token = iter() {
		if token.Value == "" {
			continue
		}
		style := h.styleForToken(token.Type)
		parts := strings.Split(token.Value, "\n")
		for i, part := range parts {
			if part != "" {
				appendSpan(&current.Spans, StyledSpan{Text: part, Style: style})
			}
			if i < len(parts)-1 {
				flush(true)
			}
		}
	}
	flush(false)

	if len(lines) == 0 {
		lines = append(lines, StyledLine{Language: language, BlankLine: true})
	}
	return lines
}

func (h *Highlighter) styleForToken(ttype chroma.TokenType) compositor.Style {
	if ttype == chroma.Error {
		return h.palette.Error
	}
	switch {
	case ttype.InCategory(chroma.Comment):
		return h.palette.Comment
	case ttype.InCategory(chroma.Keyword):
		return h.palette.Keyword
	case ttype.InCategory(chroma.LiteralString):
		return h.palette.String
	case ttype.InCategory(chroma.LiteralNumber):
		return h.palette.Number
	case ttype.InCategory(chroma.Operator):
		return h.palette.Operator
	case ttype.InCategory(chroma.Punctuation):
		return h.palette.Punctuation
	case ttype.InCategory(chroma.Name):
		switch ttype {
		case chroma.NameFunction, chroma.NameFunctionMagic:
			return h.palette.Function
		case chroma.NameClass, chroma.NameNamespace:
			return h.palette.TypeName
		case chroma.NameBuiltin, chroma.NameBuiltinPseudo:
			return h.palette.Builtin
		case chroma.NameVariable, chroma.NameVariableClass, chroma.NameVariableGlobal, chroma.NameVariableInstance, chroma.NameVariableMagic:
			return h.palette.Variable
		case chroma.NameTag:
			return h.palette.Tag
		case chroma.NameAttribute:
			return h.palette.Attribute
		case chroma.NameConstant:
			return h.palette.Number
		}
	}
	return h.palette.Default
}

func appendSpan(spans *[]StyledSpan, span StyledSpan) {
	if span.Text == "" {
		return
	}
	if len(*spans) > 0 {
		last := &(*spans)[len(*spans)-1]
		if last.Style.Equal(span.Style) {
			last.Text += span.Text
			return
		}
	}
	*spans = append(*spans, span)
}

func fallbackLines(code, language string) []StyledLine {
	lines := strings.Split(code, "\n")
	out := make([]StyledLine, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			out = append(out, StyledLine{Language: language, BlankLine: true})
			continue
		}
		out = append(out, StyledLine{Language: language, Spans: []StyledSpan{{Text: l}}})
	}
	return out
}
