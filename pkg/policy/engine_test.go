package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCategorizeToolCall(t *testing.T) {
	tests := []struct {
		name     string
		call     ToolCall
		expected ActionType
	}{
		{"read file", ToolCall{Name: "read_file"}, ActionFileRead},
		{"write file", ToolCall{Name: "write_file"}, ActionFileWrite},
		{"edit file", ToolCall{Name: "edit_file"}, ActionFileWrite},
		{"run shell", ToolCall{Name: "run_shell"}, ActionShell},
		{"bash command", ToolCall{Name: "bash"}, ActionShell},
		{"git status", ToolCall{Name: "git_status"}, ActionGit},
		{"search files", ToolCall{Name: "search_files"}, ActionSearch},
		{"grep content", ToolCall{Name: "grep"}, ActionSearch},
		{"http fetch", ToolCall{Name: "http_fetch"}, ActionNetwork},
		{"pty session", ToolCall{Name: "pty_send_keys"}, ActionPTY},
		{"unknown tool", ToolCall{Name: "custom_tool"}, ActionAny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categorizeToolCall(tt.call); got != tt.expected {
				t.Errorf("categorizeToolCall() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEngineEvaluate_DefaultPolicy(t *testing.T) {
	engine := NewEngine(DefaultPolicy(), nil, "")
	ctx := context.Background()

	tests := []struct {
		name string
		call ToolCall
		want Decision
	}{
		{
			name: "file read auto-allowed",
			call: ToolCall{Name: "read_file", Input: map[string]any{"path": "/app/main.go"}},
			want: DecisionAllow,
		},
		{
			name: "write log file allowed by exception",
			call: ToolCall{Name: "write_file", Input: map[string]any{"path": "/var/log/app.log"}},
			want: DecisionAllow,
		},
		{
			name: "write arbitrary file needs confirm",
			call: ToolCall{Name: "write_file", Input: map[string]any{"path": "/app/config.yaml"}},
			want: DecisionConfirm,
		},
		{
			name: "rm -rf denied outright",
			call: ToolCall{Name: "run_shell", Input: map[string]any{"command": "rm -rf ./build"}},
			want: DecisionDeny,
		},
		{
			name: "go test allowed by exception",
			call: ToolCall{Name: "run_shell", Input: map[string]any{"command": "go test ./pkg/..."}},
			want: DecisionAllow,
		},
		{
			name: "dotenv read denied ahead of file_read allow",
			call: ToolCall{Name: "read_file", Input: map[string]any{"path": "/app/.env"}},
			want: DecisionDeny,
		},
		{
			name: "pty session allowed",
			call: ToolCall{Name: "pty_get_screen", Input: map[string]any{}},
			want: DecisionAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Evaluate(ctx, tt.call)
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if result.Decision != tt.want {
				t.Errorf("Decision = %v, want %v (matched %s)", result.Decision, tt.want, result.MatchedRule)
			}
		})
	}
}

type fakePrompter struct {
	decision Decision
	remember bool
}

func (f fakePrompter) Confirm(ctx context.Context, call ToolCall, rule Rule) (Decision, bool, error) {
	return f.decision, f.remember, nil
}

func TestEngineEvaluate_ConfirmInvokesPrompter(t *testing.T) {
	engine := NewEngine(DefaultPolicy(), fakePrompter{decision: DecisionAllow, remember: false}, "")
	call := ToolCall{Name: "write_file", Input: map[string]any{"path": "/app/config.yaml"}}

	result, err := engine.Evaluate(context.Background(), call)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if result.Decision != DecisionAllow {
		t.Errorf("Decision = %v, want allow", result.Decision)
	}
}

func TestEngineEvaluate_RemembersChoice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learned-policy.json")
	engine := NewEngine(DefaultPolicy(), fakePrompter{decision: DecisionAllow, remember: true}, path)
	call := ToolCall{Name: "write_file", Input: map[string]any{"path": "/app/config.yaml"}}

	if _, err := engine.Evaluate(context.Background(), call); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected remembered-choice file to be written: %v", err)
	}

	reloaded := NewEngine(DefaultPolicy(), nil, path)
	result, err := reloaded.Evaluate(context.Background(), call)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if result.Decision != DecisionAllow || !result.Remembered {
		t.Errorf("expected remembered allow on reload, got %+v", result)
	}
}

func TestMatchPathPattern(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		{"*.log", "/var/log/app.log", true},
		{"/tmp/*", "/tmp/build/output.txt", true},
		{"*.log", "/app/config.yaml", false},
	}
	for _, tt := range tests {
		if got := matchPathPattern(tt.pattern, tt.path); got != tt.want {
			t.Errorf("matchPathPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"go test *", "go test ./...", true},
		{"git status", "git status", true},
		{"go test *", "go build ./...", false},
	}
	for _, tt := range tests {
		if got := matchGlob(tt.pattern, tt.s); got != tt.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()
	if policy.Name != "default" {
		t.Errorf("Name = %v, want default", policy.Name)
	}
	if len(policy.Rules) == 0 {
		t.Error("expected a non-empty rule set")
	}
	if policy.Default != DecisionConfirm {
		t.Errorf("Default = %v, want confirm", policy.Default)
	}
}
