package builtin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// EditFileTool performs targeted string replacement edits in a file. The
// old_string must match exactly (including whitespace and indentation).
type EditFileTool struct {
	workDirAware
	// ShowDiffPreview, when true, returns the diff without writing so a
	// caller can gate the write behind policy confirmation.
	ShowDiffPreview bool
}

func (t *EditFileTool) Name() string {
	return "edit_file"
}

func (t *EditFileTool) Description() string {
	return "Make targeted edits to a file by replacing exact text. The old_string must match exactly (including whitespace and indentation). Use this for precise code modifications. Shows a diff preview before applying changes."
}

func (t *EditFileTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"path": {
				Type:        "string",
				Description: "Path to the file to edit",
			},
			"old_string": {
				Type:        "string",
				Description: "Exact text to find and replace (must match exactly including whitespace)",
			},
			"new_string": {
				Type:        "string",
				Description: "Text to replace old_string with",
			},
			"replace_all": {
				Type:        "boolean",
				Description: "If true, replace all occurrences. If false (default), only replace the first occurrence",
				Default:     false,
			},
		},
		Required: []string{"path", "old_string", "new_string"},
	}
}

func (t *EditFileTool) Execute(params map[string]any) (*Result, error) {
	path, ok := params["path"].(string)
	if !ok {
		return &Result{Success: false, Error: "path parameter must be a string"}, nil
	}
	oldString, ok := params["old_string"].(string)
	if !ok {
		return &Result{Success: false, Error: "old_string parameter must be a string"}, nil
	}
	newString, ok := params["new_string"].(string)
	if !ok {
		return &Result{Success: false, Error: "new_string parameter must be a string"}, nil
	}
	replaceAll, _ := params["replace_all"].(bool)

	absPath, err := resolvePath(t.workDir, path)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to read file: %v", err)}, nil
	}
	oldContent := string(content)

	if !strings.Contains(oldContent, oldString) {
		return &Result{Success: false, Error: "old_string not found in file. Make sure the text matches exactly including whitespace."}, nil
	}
	if !replaceAll && strings.Count(oldContent, oldString) > 1 {
		return &Result{Success: false, Error: fmt.Sprintf("old_string appears %d times in the file. Either provide a more specific string or use replace_all=true", strings.Count(oldContent, oldString))}, nil
	}

	var newContent string
	if replaceAll {
		newContent = strings.ReplaceAll(oldContent, oldString, newString)
	} else {
		newContent = strings.Replace(oldContent, oldString, newString, 1)
	}

	diffPreview := generateDiff(absPath, oldContent, newContent)

	if t.ShowDiffPreview {
		return &Result{
			Success:       true,
			NeedsApproval: true,
			DiffPreview:   diffPreview,
			Data: map[string]any{
				"path":        absPath,
				"old_content": oldContent,
				"new_content": newContent,
				"preview":     diffPreview.Preview,
			},
			ShouldAbridge: true,
			DisplayData: map[string]any{
				"path":      absPath,
				"summary":   diffPreview.Preview,
				"diff_only": true,
			},
		}, nil
	}

	if err := os.WriteFile(absPath, []byte(newContent), 0644); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to write file: %v", err)}, nil
	}

	replacements := 1
	if replaceAll {
		replacements = strings.Count(oldContent, oldString)
	}

	summary := fmt.Sprintf("edited %s (+%d/-%d lines, %d replacement%s)",
		filepath.Base(absPath), diffPreview.LinesAdded, diffPreview.LinesRemoved, replacements, pluralize(replacements))

	return &Result{
		Success:       true,
		ShouldAbridge: true,
		DiffPreview:   diffPreview,
		Data: map[string]any{
			"path":          absPath,
			"replacements":  replacements,
			"lines_added":   diffPreview.LinesAdded,
			"lines_removed": diffPreview.LinesRemoved,
		},
		DisplayData: map[string]any{
			"path":    absPath,
			"summary": summary,
			"diff":    diffPreview.Preview,
		},
	}, nil
}

// generateDiff builds a DiffInfo preview via go-difflib's unified diff,
// the same construction pkg/touch uses for telemetry's rich fields.
func generateDiff(path, oldContent, newContent string) *DiffInfo {
	unified := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}
	unifiedDiff, err := difflib.GetUnifiedDiffString(unified)
	if err != nil {
		unifiedDiff = ""
	}

	var added, removed int
	for _, line := range strings.Split(unifiedDiff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}

	previewLines := strings.Split(unifiedDiff, "\n")
	var preview string
	if len(previewLines) > 15 {
		preview = strings.Join(previewLines[:15], "\n")
		preview += fmt.Sprintf("\n... (%d more lines)", len(previewLines)-15)
	} else {
		preview = unifiedDiff
	}

	return &DiffInfo{
		FilePath:     path,
		IsNew:        oldContent == "",
		LinesAdded:   added,
		LinesRemoved: removed,
		OldContent:   oldContent,
		NewContent:   newContent,
		UnifiedDiff:  unifiedDiff,
		Preview:      preview,
	}
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

// InsertTextTool inserts text at a specific line number in a file.
type InsertTextTool struct{ workDirAware }

func (t *InsertTextTool) Name() string {
	return "insert_text"
}

func (t *InsertTextTool) Description() string {
	return "Insert text at a specific line number in a file. Use this to add new code without replacing existing content. Line numbers are 1-indexed."
}

func (t *InsertTextTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"path": {
				Type:        "string",
				Description: "Path to the file to edit",
			},
			"line": {
				Type:        "integer",
				Description: "Line number to insert at (1-indexed). Text is inserted before this line.",
			},
			"text": {
				Type:        "string",
				Description: "Text to insert",
			},
		},
		Required: []string{"path", "line", "text"},
	}
}

func (t *InsertTextTool) Execute(params map[string]any) (*Result, error) {
	path, ok := params["path"].(string)
	if !ok {
		return &Result{Success: false, Error: "path parameter must be a string"}, nil
	}

	lineNum := 0
	switch v := params["line"].(type) {
	case float64:
		lineNum = int(v)
	case int:
		lineNum = v
	default:
		return &Result{Success: false, Error: "line parameter must be an integer"}, nil
	}

	text, ok := params["text"].(string)
	if !ok {
		return &Result{Success: false, Error: "text parameter must be a string"}, nil
	}

	absPath, err := resolvePath(t.workDir, path)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to read file: %v", err)}, nil
	}
	oldContent := string(content)
	lines := strings.Split(oldContent, "\n")

	if lineNum < 1 {
		lineNum = 1
	}
	if lineNum > len(lines)+1 {
		lineNum = len(lines) + 1
	}

	insertLines := strings.Split(text, "\n")
	newLines := make([]string, 0, len(lines)+len(insertLines))
	newLines = append(newLines, lines[:lineNum-1]...)
	newLines = append(newLines, insertLines...)
	newLines = append(newLines, lines[lineNum-1:]...)
	newContent := strings.Join(newLines, "\n")

	diffPreview := generateDiff(absPath, oldContent, newContent)

	if err := os.WriteFile(absPath, []byte(newContent), 0644); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to write file: %v", err)}, nil
	}

	summary := fmt.Sprintf("inserted %d line%s at line %d in %s",
		len(insertLines), pluralize(len(insertLines)), lineNum, filepath.Base(absPath))

	return &Result{
		Success:       true,
		ShouldAbridge: true,
		DiffPreview:   diffPreview,
		Data: map[string]any{
			"path":           absPath,
			"line":           lineNum,
			"lines_inserted": len(insertLines),
		},
		DisplayData: map[string]any{
			"path":    absPath,
			"summary": summary,
			"diff":    diffPreview.Preview,
		},
	}, nil
}

// DeleteLinesTool deletes an inclusive, 1-indexed range of lines from a file.
type DeleteLinesTool struct{ workDirAware }

func (t *DeleteLinesTool) Name() string {
	return "delete_lines"
}

func (t *DeleteLinesTool) Description() string {
	return "Delete a range of lines from a file. Line numbers are 1-indexed and inclusive."
}

func (t *DeleteLinesTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"path": {
				Type:        "string",
				Description: "Path to the file to edit",
			},
			"start_line": {
				Type:        "integer",
				Description: "First line to delete (1-indexed, inclusive)",
			},
			"end_line": {
				Type:        "integer",
				Description: "Last line to delete (1-indexed, inclusive)",
			},
		},
		Required: []string{"path", "start_line", "end_line"},
	}
}

func (t *DeleteLinesTool) Execute(params map[string]any) (*Result, error) {
	path, ok := params["path"].(string)
	if !ok {
		return &Result{Success: false, Error: "path parameter must be a string"}, nil
	}

	startLine := 0
	switch v := params["start_line"].(type) {
	case float64:
		startLine = int(v)
	case int:
		startLine = v
	default:
		return &Result{Success: false, Error: "start_line parameter must be an integer"}, nil
	}

	endLine := 0
	switch v := params["end_line"].(type) {
	case float64:
		endLine = int(v)
	case int:
		endLine = v
	default:
		return &Result{Success: false, Error: "end_line parameter must be an integer"}, nil
	}

	absPath, err := resolvePath(t.workDir, path)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to read file: %v", err)}, nil
	}
	oldContent := string(content)
	lines := strings.Split(oldContent, "\n")

	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return &Result{Success: false, Error: "start_line must be less than or equal to end_line"}, nil
	}

	newLines := make([]string, 0, len(lines)-(endLine-startLine+1))
	newLines = append(newLines, lines[:startLine-1]...)
	newLines = append(newLines, lines[endLine:]...)
	newContent := strings.Join(newLines, "\n")

	diffPreview := generateDiff(absPath, oldContent, newContent)

	if err := os.WriteFile(absPath, []byte(newContent), 0644); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to write file: %v", err)}, nil
	}

	linesDeleted := endLine - startLine + 1
	summary := fmt.Sprintf("deleted %d line%s (%d-%d) from %s",
		linesDeleted, pluralize(linesDeleted), startLine, endLine, filepath.Base(absPath))

	return &Result{
		Success:       true,
		ShouldAbridge: true,
		DiffPreview:   diffPreview,
		Data: map[string]any{
			"path":          absPath,
			"start_line":    startLine,
			"end_line":      endLine,
			"lines_deleted": linesDeleted,
		},
		DisplayData: map[string]any{
			"path":    absPath,
			"summary": summary,
			"diff":    diffPreview.Preview,
		},
	}, nil
}
