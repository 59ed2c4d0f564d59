package pty

import "strings"

// namedKeys maps bracketed special-key notation to the control bytes a
// terminal application expects to receive for that key.
var namedKeys = map[string]string{
	"[UP]":     "\x1b[A",
	"[DOWN]":   "\x1b[B",
	"[RIGHT]":  "\x1b[C",
	"[LEFT]":   "\x1b[D",
	"[HOME]":   "\x1b[H",
	"[END]":    "\x1b[F",
	"[PGUP]":   "\x1b[5~",
	"[PGDOWN]": "\x1b[6~",
	"[DEL]":    "\x1b[3~",
	"[INS]":    "\x1b[2~",
	"[F1]":     "\x1bOP",
	"[F2]":     "\x1bOQ",
	"[F3]":     "\x1bOR",
	"[F4]":     "\x1bOS",
	"[F5]":     "\x1b[15~",
	"[F6]":     "\x1b[17~",
	"[F7]":     "\x1b[18~",
	"[F8]":     "\x1b[19~",
	"[F9]":     "\x1b[20~",
	"[F10]":    "\x1b[21~",
	"[F11]":    "\x1b[23~",
	"[F12]":    "\x1b[24~",
	"[TAB]":    "\t",
	"[ENTER]":  "\r",
	"[ESC]":    "\x1b",
	"[BS]":     "\x7f",
}

// translateSpecialKeys rewrites `^X` control notation and `[NAME]` bracketed
// key notation into the raw bytes a terminal application expects, leaving
// everything else untouched.
func translateSpecialKeys(keys string) string {
	var out strings.Builder
	i := 0
	for i < len(keys) {
		if keys[i] == '[' {
			if end := strings.IndexByte(keys[i:], ']'); end >= 0 {
				token := keys[i : i+end+1]
				if seq, ok := namedKeys[strings.ToUpper(token)]; ok {
					out.WriteString(seq)
					i += end + 1
					continue
				}
			}
		}
		if keys[i] == '^' && i+1 < len(keys) {
			c := keys[i+1]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			if c >= '@' && c <= '_' {
				out.WriteByte(c - '@')
				i += 2
				continue
			}
		}
		out.WriteByte(keys[i])
		i++
	}
	return out.String()
}
