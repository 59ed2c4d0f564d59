package terminal

import (
	"context"
	"fmt"

	"github.com/relaycode/loom/pkg/policy"
)

// ConfirmPrompter binds the policy engine's confirm capability to an
// interactive terminal: when a rule resolves to confirm, the user picks
// allow or deny, once or remembered.
type ConfirmPrompter struct {
	writer *Writer
}

// NewConfirmPrompter wraps a Writer as a policy.Prompter. A nil writer gets
// a stdout-backed default.
func NewConfirmPrompter(w *Writer) *ConfirmPrompter {
	if w == nil {
		w = New()
	}
	return &ConfirmPrompter{writer: w}
}

// Confirm presents the pending tool call and returns the user's decision.
// A cancelled context or an unrecognized choice denies without remembering.
func (p *ConfirmPrompter) Confirm(ctx context.Context, call policy.ToolCall, rule policy.Rule) (policy.Decision, bool, error) {
	if err := ctx.Err(); err != nil {
		return policy.DecisionDeny, false, err
	}

	title := fmt.Sprintf("Confirm: %s", call.Name)
	if target := describeCallTarget(call); target != "" {
		title += " " + target
	}

	choice := p.writer.Menu(title, []MenuItem{
		{Key: "a", Label: "Allow once"},
		{Key: "r", Label: "Allow and remember", Description: "skip this prompt next time"},
		{Key: "d", Label: "Deny once"},
		{Key: "b", Label: "Deny and remember", Description: "block without asking next time"},
	})

	switch choice {
	case "a":
		return policy.DecisionAllow, false, nil
	case "r":
		return policy.DecisionAllow, true, nil
	case "b":
		return policy.DecisionDeny, true, nil
	default:
		return policy.DecisionDeny, false, nil
	}
}

// describeCallTarget pulls the most recognizable argument out of a call for
// the prompt title: a path, a command, or a session id.
func describeCallTarget(call policy.ToolCall) string {
	for _, key := range []string{"path", "file_path", "command", "id", "session_id"} {
		if v, ok := call.Input[key].(string); ok && v != "" {
			return fmt.Sprintf("(%s)", v)
		}
	}
	return ""
}
