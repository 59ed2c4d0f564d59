package terminal

import (
	"bytes"
	"context"
	"testing"

	"github.com/relaycode/loom/pkg/policy"
)

func TestConfirmPrompterCancelledContextDenies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewConfirmPrompter(NewWithOutput(&bytes.Buffer{}))
	decision, remember, err := p.Confirm(ctx, policy.ToolCall{Name: "write_file"}, policy.Rule{})
	if err == nil {
		t.Fatal("cancelled context should surface an error")
	}
	if decision != policy.DecisionDeny || remember {
		t.Errorf("cancelled confirm = (%s, %v), want deny without remembering", decision, remember)
	}
}

func TestDescribeCallTarget(t *testing.T) {
	tests := []struct {
		input map[string]any
		want  string
	}{
		{map[string]any{"path": "main.go"}, "(main.go)"},
		{map[string]any{"command": "ls -la"}, "(ls -la)"},
		{map[string]any{"count": 3}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		got := describeCallTarget(policy.ToolCall{Name: "x", Input: tt.input})
		if got != tt.want {
			t.Errorf("describeCallTarget(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
