package artifact

import (
	"fmt"
	"strings"
)

// mdDoc accumulates a markdown document section by section. The artifact
// renderers share it so every phase document carries the same field/list
// conventions.
type mdDoc struct {
	b strings.Builder
}

func (d *mdDoc) title(text string) {
	fmt.Fprintf(&d.b, "# %s\n\n", text)
}

func (d *mdDoc) section(text string) {
	fmt.Fprintf(&d.b, "## %s\n\n", text)
}

func (d *mdDoc) subsection(text string) {
	fmt.Fprintf(&d.b, "### %s\n\n", text)
}

// field writes a "**Name:** value" line; empty values are skipped so
// callers don't need to guard every optional field.
func (d *mdDoc) field(name, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(&d.b, "**%s:** %s\n", name, value)
}

// list writes a titled bullet list, skipping empty lists entirely.
func (d *mdDoc) list(title string, items []string) {
	if len(items) == 0 {
		return
	}
	if title != "" {
		fmt.Fprintf(&d.b, "**%s:**\n", title)
	}
	for _, item := range items {
		fmt.Fprintf(&d.b, "- %s\n", item)
	}
	d.b.WriteByte('\n')
}

// codeList is list with each item backtick-quoted (file paths, symbols).
func (d *mdDoc) codeList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "`" + item + "`"
	}
	d.list(title, quoted)
}

func (d *mdDoc) codeBlock(lang, code string) {
	if strings.TrimSpace(code) == "" {
		return
	}
	fmt.Fprintf(&d.b, "```%s\n%s\n```\n\n", lang, code)
}

func (d *mdDoc) line(format string, args ...any) {
	fmt.Fprintf(&d.b, format+"\n", args...)
}

func (d *mdDoc) blank() {
	d.b.WriteByte('\n')
}

func (d *mdDoc) String() string {
	return d.b.String()
}

// formatFeatureName converts a feature slug to a human-readable title,
// e.g. "user-auth" -> "User Auth".
func formatFeatureName(feature string) string {
	words := strings.Split(feature, "-")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatStatus renders a snake_case status for display.
func formatStatus(status string) string {
	words := strings.Fields(strings.ReplaceAll(status, "_", " "))
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// statusMark renders a short textual marker for a task/check status.
func statusMark(status string) string {
	switch strings.ToLower(status) {
	case "completed", "pass":
		return "[ok]"
	case "failed", "fail":
		return "[failed]"
	case "in_progress":
		return "[running]"
	case "pending":
		return "[pending]"
	default:
		return "[" + strings.ToLower(status) + "]"
	}
}
