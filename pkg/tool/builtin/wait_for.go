package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/relaycode/loom/pkg/tool/runtime"
)

// WaitForTool blocks until a readiness condition holds: a TCP port accepts
// connections, a file appears, an HTTP health endpoint answers 2xx, or a
// log file matches a pattern. Useful after launching a server in a PTY or
// shell session, before the agent starts poking at it.
type WaitForTool struct{}

func (t *WaitForTool) Name() string { return "wait_for" }

func (t *WaitForTool) Description() string {
	return "Wait until a readiness condition is met: a TCP port is accepting connections, a file exists, an HTTP health check succeeds, or a log file matches a pattern."
}

func (t *WaitForTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"type": {
				Type:        "string",
				Description: "The condition to wait for.",
				Enum:        []string{"port_ready", "file_exists", "health_check", "log_match"},
			},
			"host": {
				Type:        "string",
				Description: "Host for port_ready (default localhost).",
			},
			"port": {
				Type:        "integer",
				Description: "Port for port_ready.",
			},
			"path": {
				Type:        "string",
				Description: "File path for file_exists, or log file for log_match.",
			},
			"url": {
				Type:        "string",
				Description: "URL for health_check.",
			},
			"pattern": {
				Type:        "string",
				Description: "Substring or regex for log_match.",
			},
			"timeout_seconds": {
				Type:        "integer",
				Description: "How long to wait before giving up (default 30, max 300).",
			},
		},
		Required: []string{"type"},
	}
}

func (t *WaitForTool) Execute(params map[string]any) (*Result, error) {
	condType, _ := params["type"].(string)

	data := map[string]any{"type": condType}
	for _, key := range []string{"host", "port", "path", "url", "pattern"} {
		if v, ok := params[key]; ok {
			data[key] = v
		}
	}
	// log_match's factory names the file "log_file".
	if condType == "log_match" {
		if p, ok := params["path"]; ok {
			data["log_file"] = p
		}
	}

	timeout := 30 * time.Second
	if v, ok := params["timeout_seconds"].(float64); ok && v > 0 {
		timeout = time.Duration(v) * time.Second
		if timeout > 5*time.Minute {
			timeout = 5 * time.Minute
		}
	}
	data["timeout"] = timeout.String()

	conditions, err := runtime.ParseConditionsFromYAML(map[string]any{
		"ready_conditions": []any{data},
	})
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	if len(conditions) != 1 {
		return &Result{Success: false, Error: fmt.Sprintf("expected one condition, got %d", len(conditions))}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	if err := runtime.WaitFor(ctx, conditions[0]); err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("condition not met within %s: %v", timeout, err),
		}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]any{
			"condition": conditions[0].String(),
			"waited":    time.Since(started).String(),
		},
	}, nil
}
