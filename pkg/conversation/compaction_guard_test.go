package conversation

import (
	"testing"

	"github.com/relaycode/loom/pkg/model"
)

func TestSelectCompactionSegmentsProtectsSystemMessages(t *testing.T) {
	msgs := []Message{
		{Role: "system", Content: "steering/persona"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "more"},
		{Role: "assistant", Content: "reply"},
	}

	toSummarize, toKeep, err := selectCompactionSegments(msgs, defaultCompactionRatio)
	if err != nil {
		t.Fatalf("selectCompactionSegments error: %v", err)
	}

	for _, msg := range toSummarize {
		if msg.Role == "system" {
			t.Fatalf("system messages should not be summarized")
		}
	}

	protectedFound := false
	for _, msg := range toKeep {
		if msg.Role == "system" && msg.Content == "steering/persona" {
			protectedFound = true
		}
	}
	if !protectedFound {
		t.Fatalf("expected steering/system message to be retained in toKeep")
	}
}

func TestSelectCompactionSegmentsNeverSplitsToolPair(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "do the thing"},
		{Role: "assistant", Content: "on it", ToolCalls: []model.ToolCall{{ID: "call_1", Function: model.FunctionCall{Name: "read_file"}}}},
		{Role: "tool", Content: "file contents", ToolCallID: "call_1"},
		{Role: "assistant", Content: "done reading"},
		{Role: "user", Content: "now edit it"},
		{Role: "assistant", Content: "editing", ToolCalls: []model.ToolCall{{ID: "call_2", Function: model.FunctionCall{Name: "edit_file"}}}},
		{Role: "tool", Content: "edit applied", ToolCallID: "call_2"},
		{Role: "assistant", Content: "all set"},
	}

	// Force a ratio whose naive cutoff would land between call_1's
	// assistant message and its tool result.
	toSummarize, toKeep, err := selectCompactionSegments(msgs, 0.3)
	if err != nil {
		t.Fatalf("selectCompactionSegments error: %v", err)
	}

	pending := map[string]bool{}
	for _, msg := range toSummarize {
		for _, tc := range msg.ToolCalls {
			pending[tc.ID] = true
		}
		if msg.Role == "tool" && pending[msg.ToolCallID] {
			delete(pending, msg.ToolCallID)
		}
	}
	if len(pending) != 0 {
		t.Fatalf("tool call left unanswered in summarized segment: %v", pending)
	}

	for _, msg := range toKeep {
		if msg.Role == "tool" {
			found := false
			for _, m := range toKeep {
				for _, tc := range m.ToolCalls {
					if tc.ID == msg.ToolCallID {
						found = true
					}
				}
			}
			if !found {
				t.Fatalf("tool result %q kept without its issuing assistant message", msg.ToolCallID)
			}
		}
	}
}

func TestSelectCompactionSegmentsPreservesFinalTurns(t *testing.T) {
	msgs := make([]Message, 0, 20)
	for i := 0; i < 10; i++ {
		msgs = append(msgs,
			Message{Role: "user", Content: "q"},
			Message{Role: "assistant", Content: "a"},
		)
	}

	_, toKeep, err := selectCompactionSegments(msgs, 0.9)
	if err != nil {
		t.Fatalf("selectCompactionSegments error: %v", err)
	}

	if len(toKeep) < minPreservedTurns {
		t.Fatalf("expected at least %d preserved messages, got %d", minPreservedTurns, len(toKeep))
	}

	tail := msgs[len(msgs)-minPreservedTurns:]
	kept := toKeep[len(toKeep)-minPreservedTurns:]
	for i := range tail {
		if kept[i].Content != tail[i].Content || kept[i].Role != tail[i].Role {
			t.Fatalf("final turns were not preserved exactly: got %+v, want %+v", kept[i], tail[i])
		}
	}
}
