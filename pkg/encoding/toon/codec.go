package toon

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/alpkeskin/gotoon"
)

// Codec serializes tool results for model consumption: TOON when enabled
// (denser than JSON, so the same result costs fewer prompt tokens), plain
// JSON otherwise.
type Codec struct {
	useToon bool
}

// New creates a codec. useToon selects the compact encoding.
func New(useToon bool) *Codec {
	return &Codec{useToon: useToon}
}

// Marshal encodes v into TOON, or JSON when the codec has TOON disabled.
func (c *Codec) Marshal(v any) ([]byte, error) {
	if !c.useToon || v == nil {
		return json.Marshal(v)
	}
	encoded, err := gotoon.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("toon encode: %w", err)
	}
	return []byte(encoded), nil
}

// Unmarshal always decodes JSON. TOON is a one-way wire format toward the
// model; nothing in this module round-trips data back out of it.
func (c *Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// The TOON shapes this package recognizes in free text:
//
//	results[3]{key,type,summary}:   array header
//	data{success,error}:            object header
//	  value1,value2,...             data row (indented, comma-separated)
var (
	toonArrayHeaderPattern  = regexp.MustCompile(`\b\w+\[\d+\]\{[^}]+\}:`)
	toonObjectHeaderPattern = regexp.MustCompile(`\b\w+\{[^}]+\}:`)
	toonDataRowPattern      = regexp.MustCompile(`^\s+[^,\s][^,]*(?:,[^,]+)+\s*$`)
)

// ContainsTOON reports whether text carries TOON fragments - the tell that
// a model echoed tool-result encoding back into its user-facing answer.
func ContainsTOON(text string) bool {
	if text == "" {
		return false
	}
	return toonArrayHeaderPattern.MatchString(text) || toonObjectHeaderPattern.MatchString(text)
}

// SanitizeOutput strips leaked TOON blocks from model output, keeping the
// surrounding natural-language content intact.
func SanitizeOutput(text string) string {
	if text == "" || !ContainsTOON(text) {
		return text
	}

	var kept []string
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if toonArrayHeaderPattern.MatchString(trimmed) || toonObjectHeaderPattern.MatchString(trimmed) {
			inBlock = true
			continue
		}
		if inBlock {
			if toonDataRowPattern.MatchString(line) {
				continue
			}
			// A blank or unindented line ends the block.
			if trimmed == "" || !strings.HasPrefix(line, "  ") {
				inBlock = false
			}
		}
		if !inBlock {
			kept = append(kept, line)
		}
	}

	output := strings.Join(kept, "\n")
	for strings.Contains(output, "\n\n\n") {
		output = strings.ReplaceAll(output, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(output)
}

// FormatForDisplay renders TOON content readably: a pure TOON block becomes
// field=value lines, mixed content gets its TOON fragments stripped, and
// plain text passes through.
func FormatForDisplay(text string) string {
	if text == "" {
		return text
	}

	trimmed := strings.TrimSpace(text)
	if toonArrayHeaderPattern.MatchString(trimmed) || toonObjectHeaderPattern.MatchString(trimmed) {
		return formatToonBlock(trimmed)
	}
	if ContainsTOON(text) {
		return SanitizeOutput(text)
	}
	return text
}

// toonHeader is one parsed header line: the block name and its field list.
type toonHeader struct {
	name   string
	fields []string
}

// parseToonHeader extracts name and fields from an array or object header,
// or returns ok=false for any other line.
func parseToonHeader(line string) (toonHeader, bool) {
	match := toonArrayHeaderPattern.FindString(line)
	sep := "["
	if match == "" {
		match = toonObjectHeaderPattern.FindString(line)
		sep = "{"
	}
	if match == "" {
		return toonHeader{}, false
	}

	parts := strings.SplitN(match, sep, 2)
	if len(parts) != 2 {
		return toonHeader{}, false
	}
	header := toonHeader{name: parts[0]}

	rest := parts[1]
	if idx := strings.Index(rest, "{"); idx >= 0 {
		rest = rest[idx+1:]
	}
	if end := strings.Index(rest, "}"); end >= 0 {
		header.fields = strings.Split(rest[:end], ",")
	}
	return header, true
}

// formatToonBlock rewrites a TOON block as "name:" headers with
// field=value rows under them.
func formatToonBlock(toon string) string {
	var out []string
	var fields []string

	for _, line := range strings.Split(toon, "\n") {
		trimmed := strings.TrimSpace(line)

		if header, ok := parseToonHeader(trimmed); ok {
			fields = header.fields
			out = append(out, header.name+":")
			continue
		}

		if len(fields) > 0 && strings.Contains(trimmed, ",") {
			values := strings.Split(trimmed, ",")
			pairs := make([]string, 0, len(values))
			for i, val := range values {
				val = strings.TrimSpace(val)
				if i < len(fields) {
					pairs = append(pairs, fields[i]+"="+val)
				} else {
					pairs = append(pairs, val)
				}
			}
			out = append(out, "  "+strings.Join(pairs, ", "))
			continue
		}

		if trimmed != "" {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}
