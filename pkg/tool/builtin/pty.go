package builtin

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/relaycode/loom/pkg/pty"
)

// ptyBacked is embedded by every PTY tool so the registry can wire a single
// *pty.Manager into all of them at once (see Registry.EnablePTY).
type ptyBacked struct {
	Manager *pty.Manager
}

func (p *ptyBacked) manager() (*pty.Manager, error) {
	if p == nil || p.Manager == nil {
		return nil, fmt.Errorf("pty manager unavailable")
	}
	return p.Manager, nil
}

// NewPTYLaunchTool, NewPTYSendKeysTool, ... construct each pty_* tool bound
// to a shared *pty.Manager, for registration via Registry.EnablePTY. Plain
// constructors rather than exported struct literals, since ptyBacked (the
// field every tool embeds the manager through) is unexported.
func NewPTYLaunchTool(m *pty.Manager) *PTYLaunchTool { return &PTYLaunchTool{ptyBacked{Manager: m}} }
func NewPTYSendKeysTool(m *pty.Manager) *PTYSendKeysTool {
	return &PTYSendKeysTool{ptyBacked{Manager: m}}
}
func NewPTYGetScreenTool(m *pty.Manager) *PTYGetScreenTool {
	return &PTYGetScreenTool{ptyBacked{Manager: m}}
}
func NewPTYGetCursorTool(m *pty.Manager) *PTYGetCursorTool {
	return &PTYGetCursorTool{ptyBacked{Manager: m}}
}
func NewPTYResizeTool(m *pty.Manager) *PTYResizeTool { return &PTYResizeTool{ptyBacked{Manager: m}} }
func NewPTYSetScrollbackTool(m *pty.Manager) *PTYSetScrollbackTool {
	return &PTYSetScrollbackTool{ptyBacked{Manager: m}}
}
func NewPTYStartCaptureTool(m *pty.Manager) *PTYStartCaptureTool {
	return &PTYStartCaptureTool{ptyBacked{Manager: m}}
}
func NewPTYStopCaptureTool(m *pty.Manager) *PTYStopCaptureTool {
	return &PTYStopCaptureTool{ptyBacked{Manager: m}}
}
func NewPTYListTool(m *pty.Manager) *PTYListTool { return &PTYListTool{ptyBacked{Manager: m}} }
func NewPTYKillTool(m *pty.Manager) *PTYKillTool { return &PTYKillTool{ptyBacked{Manager: m}} }
func NewPTYRequestUserInputTool(m *pty.Manager) *PTYRequestUserInputTool {
	return &PTYRequestUserInputTool{ptyBacked{Manager: m}}
}

func boolParam(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

// PTYLaunchTool starts a new interactive child process.
type PTYLaunchTool struct{ ptyBacked }

func (t *PTYLaunchTool) Name() string { return "pty_launch" }

func (t *PTYLaunchTool) Description() string {
	return "Launch an interactive PTY session running a command (or the default shell if omitted). Use for programs that need a real terminal: REPLs, pagers, interactive CLIs. Returns a session id used by the other pty_* tools."
}

func (t *PTYLaunchTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"command": {Type: "string", Description: "Command to run; defaults to the user's login shell if omitted"},
			"cwd":     {Type: "string", Description: "Working directory for the spawned process"},
			"cols":    {Type: "integer", Description: "Terminal width in columns (default 80)"},
			"rows":    {Type: "integer", Description: "Terminal height in rows (default 24)"},
		},
	}
}

func (t *PTYLaunchTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	opts := pty.LaunchOptions{
		Command: stringParam(params, "command"),
		Cwd:     stringParam(params, "cwd"),
	}
	if cols, ok := intParam(params, "cols"); ok {
		opts.Cols = cols
	}
	if rows, ok := intParam(params, "rows"); ok {
		opts.Rows = rows
	}

	sess, err := mgr.Launch(context.Background(), opts)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]any{
			"session_id": sess.ID,
			"command":    sess.Metadata.Command,
			"cwd":        sess.Metadata.Cwd,
		},
	}, nil
}

// PTYSendKeysTool writes input to a running session.
type PTYSendKeysTool struct{ ptyBacked }

func (t *PTYSendKeysTool) Name() string { return "pty_send_keys" }

func (t *PTYSendKeysTool) Description() string {
	return "Send keystrokes to a running PTY session's stdin. Special-key notation (e.g. \"C-c\", \"Enter\", \"Escape\") is translated when interpret_specials is true."
}

func (t *PTYSendKeysTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id":         {Type: "string", Description: "Session id returned by pty_launch"},
			"keys":               {Type: "string", Description: "Keys or text to send"},
			"interpret_specials": {Type: "boolean", Description: "Translate special-key notation like C-c, Enter, Escape (default true)"},
		},
		Required: []string{"session_id", "keys"},
	}
}

func (t *PTYSendKeysTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	id := stringParam(params, "session_id")
	sess, err := mgr.Get(id)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	if err := sess.SendKeys(stringParam(params, "keys"), boolParam(params, "interpret_specials", true)); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	return &Result{Success: true, Data: map[string]any{"session_id": id}}, nil
}

// PTYGetScreenTool renders a session's current screen.
type PTYGetScreenTool struct{ ptyBacked }

func (t *PTYGetScreenTool) Name() string { return "pty_get_screen" }

func (t *PTYGetScreenTool) Description() string {
	return "Read the current rendered screen contents of a PTY session, optionally including ANSI color codes and the cursor position."
}

func (t *PTYGetScreenTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id":     {Type: "string", Description: "Session id returned by pty_launch"},
			"include_colors": {Type: "boolean", Description: "Include ANSI color escape codes (default false)"},
			"include_cursor": {Type: "boolean", Description: "Include the cursor position (default false)"},
		},
		Required: []string{"session_id"},
	}
}

func (t *PTYGetScreenTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	sess, err := mgr.Get(stringParam(params, "session_id"))
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	snap := sess.GetScreen(boolParam(params, "include_colors", false), boolParam(params, "include_cursor", false))
	data := map[string]any{"text": snap.Text}
	if snap.ANSI != "" {
		data["ansi"] = snap.ANSI
	}
	if snap.IncludeCursor {
		data["cursor_x"] = snap.CursorX
		data["cursor_y"] = snap.CursorY
	}
	return &Result{Success: true, Data: data}, nil
}

// PTYGetCursorTool reports a session's cursor position.
type PTYGetCursorTool struct{ ptyBacked }

func (t *PTYGetCursorTool) Name() string { return "pty_get_cursor" }

func (t *PTYGetCursorTool) Description() string {
	return "Get the current cursor position (column, row) of a PTY session's screen."
}

func (t *PTYGetCursorTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id": {Type: "string", Description: "Session id returned by pty_launch"},
		},
		Required: []string{"session_id"},
	}
}

func (t *PTYGetCursorTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	sess, err := mgr.Get(stringParam(params, "session_id"))
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	x, y := sess.GetCursor()
	return &Result{Success: true, Data: map[string]any{"cursor_x": x, "cursor_y": y}}, nil
}

// PTYResizeTool changes a session's terminal dimensions.
type PTYResizeTool struct{ ptyBacked }

func (t *PTYResizeTool) Name() string { return "pty_resize" }

func (t *PTYResizeTool) Description() string {
	return "Resize a PTY session's terminal to the given columns and rows."
}

func (t *PTYResizeTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id": {Type: "string", Description: "Session id returned by pty_launch"},
			"cols":       {Type: "integer", Description: "New terminal width in columns"},
			"rows":       {Type: "integer", Description: "New terminal height in rows"},
		},
		Required: []string{"session_id", "cols", "rows"},
	}
}

func (t *PTYResizeTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	sess, err := mgr.Get(stringParam(params, "session_id"))
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	cols, _ := intParam(params, "cols")
	rows, _ := intParam(params, "rows")
	if cols <= 0 || rows <= 0 {
		return &Result{Success: false, Error: "cols and rows must be positive integers"}, nil
	}
	if err := sess.Resize(cols, rows); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	return &Result{Success: true, Data: map[string]any{"session_id": sess.ID, "cols": cols, "rows": rows}}, nil
}

// PTYSetScrollbackTool changes a session's retained scrollback depth
//.
type PTYSetScrollbackTool struct{ ptyBacked }

func (t *PTYSetScrollbackTool) Name() string { return "pty_set_scrollback" }

func (t *PTYSetScrollbackTool) Description() string {
	return "Change how many lines of scrollback history a PTY session retains."
}

func (t *PTYSetScrollbackTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id": {Type: "string", Description: "Session id returned by pty_launch"},
			"lines":      {Type: "integer", Description: "Number of scrollback lines to retain"},
		},
		Required: []string{"session_id", "lines"},
	}
}

func (t *PTYSetScrollbackTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	sess, err := mgr.Get(stringParam(params, "session_id"))
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	lines, _ := intParam(params, "lines")
	if lines <= 0 {
		return &Result{Success: false, Error: "lines must be a positive integer"}, nil
	}
	sess.SetScrollback(lines)
	return &Result{Success: true, Data: map[string]any{"session_id": sess.ID, "lines": lines}}, nil
}

// PTYStartCaptureTool begins recording a session's output to a JSONL file
//.
type PTYStartCaptureTool struct{ ptyBacked }

func (t *PTYStartCaptureTool) Name() string { return "pty_start_capture" }

func (t *PTYStartCaptureTool) Description() string {
	return "Start recording a PTY session's raw output to a JSONL file, one timestamped record per output chunk."
}

func (t *PTYStartCaptureTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id": {Type: "string", Description: "Session id returned by pty_launch"},
			"path":       {Type: "string", Description: "File path to write the JSONL capture to"},
		},
		Required: []string{"session_id", "path"},
	}
}

func (t *PTYStartCaptureTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	sess, err := mgr.Get(stringParam(params, "session_id"))
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	path := stringParam(params, "path")
	if path == "" {
		return &Result{Success: false, Error: "path parameter is required"}, nil
	}
	if err := sess.StartCapture(path); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	return &Result{Success: true, Data: map[string]any{"session_id": sess.ID, "path": path}}, nil
}

// PTYStopCaptureTool stops an active capture.
type PTYStopCaptureTool struct{ ptyBacked }

func (t *PTYStopCaptureTool) Name() string { return "pty_stop_capture" }

func (t *PTYStopCaptureTool) Description() string {
	return "Stop an active output capture on a PTY session and return the path of the recorded JSONL file."
}

func (t *PTYStopCaptureTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id": {Type: "string", Description: "Session id returned by pty_launch"},
		},
		Required: []string{"session_id"},
	}
}

func (t *PTYStopCaptureTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	sess, err := mgr.Get(stringParam(params, "session_id"))
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	path, err := sess.StopCapture()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	return &Result{Success: true, Data: map[string]any{"session_id": sess.ID, "path": path}}, nil
}

// PTYListTool lists every tracked session.
type PTYListTool struct{ ptyBacked }

func (t *PTYListTool) Name() string { return "pty_list" }

func (t *PTYListTool) Description() string {
	return "List every active and recently exited PTY session with its id, command, working directory, and status."
}

func (t *PTYListTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type:       "object",
		Properties: map[string]PropertySchema{},
	}
}

func (t *PTYListTool) Execute(_ map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	infos := mgr.List()
	sessions := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		sessions = append(sessions, map[string]any{
			"session_id": info.ID,
			"command":    info.Metadata.Command,
			"cwd":        info.Metadata.Cwd,
			"status":     string(info.Status),
			"exit_code":  info.ExitCode,
		})
	}

	return &Result{Success: true, Data: map[string]any{"sessions": sessions, "count": len(sessions)}}, nil
}

// PTYKillTool terminates a session.
type PTYKillTool struct{ ptyBacked }

func (t *PTYKillTool) Name() string { return "pty_kill" }

func (t *PTYKillTool) Description() string {
	return "Terminate a PTY session. Sends SIGTERM, escalating to SIGKILL after a grace period if the process doesn't exit."
}

func (t *PTYKillTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id": {Type: "string", Description: "Session id returned by pty_launch"},
		},
		Required: []string{"session_id"},
	}
}

func (t *PTYKillTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	id := stringParam(params, "session_id")
	if err := mgr.Kill(id, syscall.SIGTERM); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	return &Result{Success: true, Data: map[string]any{"session_id": id, "signaled": "SIGTERM"}}, nil
}

// PTYRequestUserInputTool hands interactive control of a session to the user
// for up to a timeout.
type PTYRequestUserInputTool struct{ ptyBacked }

func (t *PTYRequestUserInputTool) Name() string { return "pty_request_user_input" }

func (t *PTYRequestUserInputTool) Description() string {
	return "Suspend and hand a PTY session to the user for direct interaction (e.g. to answer a prompt the agent can't resolve on its own). Blocks until the user signals completion or the timeout elapses."
}

func (t *PTYRequestUserInputTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id":   {Type: "string", Description: "Session id returned by pty_launch"},
			"timeout_secs": {Type: "integer", Description: "Maximum seconds to wait for the user (default 300)"},
			"reason":       {Type: "string", Description: "Why direct user input is being requested"},
		},
		Required: []string{"session_id"},
	}
}

func (t *PTYRequestUserInputTool) Execute(params map[string]any) (*Result, error) {
	mgr, err := t.manager()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	sess, err := mgr.Get(stringParam(params, "session_id"))
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	var timeout time.Duration
	if secs, ok := intParam(params, "timeout_secs"); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	if err := sess.RequestUserInput(context.Background(), timeout); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	return &Result{Success: true, Data: map[string]any{"session_id": sess.ID, "status": "completed"}}, nil
}
