package conversation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/relaycode/loom/pkg/model"
)

// Some backends (notably local models served without native function
// calling) emit tool invocations as an XML-like block inside the assistant
// text instead of structured tool calls:
//
//	<tool_call>{"name": "read_file", "arguments": {"path": "main.go"}}</tool_call>
//
// NormalizeToolCallMarkup rewrites such a message into the structured form
// before the execution loop parses it. Messages that already carry
// structured tool calls, non-assistant messages, and blocks whose payload
// doesn't parse as a tool invocation are returned unchanged.

var toolCallMarkupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<tool_call>\s*(\{.*?\})\s*</tool_call>`),
	regexp.MustCompile(`(?s)<function_call>\s*(\{.*?\})\s*</function_call>`),
}

type textToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// NormalizeToolCallMarkup converts XML-like tool-call blocks embedded in an
// assistant message's text into structured tool calls, stripping the blocks
// from the content. Synthesized call IDs are unique within the message.
func NormalizeToolCallMarkup(msg model.Message) model.Message {
	if msg.Role != "assistant" || len(msg.ToolCalls) > 0 {
		return msg
	}
	text, err := model.ExtractTextContent(msg.Content)
	if err != nil || text == "" {
		return msg
	}
	if !strings.Contains(text, "<tool_call>") && !strings.Contains(text, "<function_call>") {
		return msg
	}

	var calls []model.ToolCall
	remaining := text
	for _, pattern := range toolCallMarkupPatterns {
		remaining = pattern.ReplaceAllStringFunc(remaining, func(block string) string {
			payload := pattern.FindStringSubmatch(block)[1]
			call, ok := parseTextToolCall(payload, len(calls))
			if !ok {
				return block
			}
			calls = append(calls, call)
			return ""
		})
	}

	if len(calls) == 0 {
		return msg
	}

	msg.Content = strings.TrimSpace(remaining)
	msg.ToolCalls = calls
	return msg
}

func parseTextToolCall(payload string, index int) (model.ToolCall, bool) {
	var parsed textToolCall
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil || parsed.Name == "" {
		return model.ToolCall{}, false
	}

	args := "{}"
	if len(parsed.Arguments) > 0 {
		trimmed := strings.TrimSpace(string(parsed.Arguments))
		switch {
		case strings.HasPrefix(trimmed, "{"):
			args = trimmed
		case strings.HasPrefix(trimmed, `"`):
			// Arguments double-encoded as a JSON string.
			var inner string
			if err := json.Unmarshal(parsed.Arguments, &inner); err == nil && strings.HasPrefix(strings.TrimSpace(inner), "{") {
				args = strings.TrimSpace(inner)
			} else {
				return model.ToolCall{}, false
			}
		default:
			return model.ToolCall{}, false
		}
	}

	return model.ToolCall{
		ID:   fmt.Sprintf("textcall-%d", index+1),
		Type: "function",
		Function: model.FunctionCall{
			Name:      parsed.Name,
			Arguments: args,
		},
	}, true
}
