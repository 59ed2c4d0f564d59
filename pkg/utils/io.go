package utils

import (
	"fmt"
	"os"
	"strings"
)

// ReadFileLines reads a file and splits it into lines. An empty file yields
// no lines; a trailing newline does not produce a phantom empty final line.
func ReadFileLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	lines := strings.Split(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// ClampLineRange normalizes a 1-based inclusive line range against the
// available line count: a start below 1 snaps to 1, an end of 0 or past the
// file snaps to the last line. The returned ok is false when the range
// selects nothing (start past the end of the file).
func ClampLineRange(lineCount, start, end int) (int, int, bool) {
	if start < 1 {
		start = 1
	}
	if end <= 0 || end > lineCount {
		end = lineCount
	}
	if start > lineCount || start > end {
		return start, end, false
	}
	return start, end, true
}
