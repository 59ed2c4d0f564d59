package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pkgcontext "github.com/relaycode/loom/pkg/context"
	"github.com/relaycode/loom/pkg/conversation"
	"github.com/relaycode/loom/pkg/model"
	"github.com/relaycode/loom/pkg/tool"
)

// delegateMaxIterations bounds how many model/tool round-trips a delegated
// sub-agent gets before it must produce a final answer. Sub-agents run a
// smaller loop than the top-level Agent Execution Loop since they handle one
// focused subtask rather than an entire request.
const delegateMaxIterations = 12

// Delegator manages sub-agent execution
type Delegator struct {
	modelMgr *model.Manager
	registry *tool.Registry
	specs    map[string]*pkgcontext.SubAgentSpec
}

// NewDelegator creates a new delegator instance
func NewDelegator(mgr *model.Manager, registry *tool.Registry, specs map[string]*pkgcontext.SubAgentSpec) *Delegator {
	return &Delegator{
		modelMgr: mgr,
		registry: registry,
		specs:    specs,
	}
}

// DelegationResult holds the result of a sub-agent execution
type DelegationResult struct {
	Output       string
	Success      bool
	Cost         float64
	TokensUsed   int
	ModelUsed    string
	ErrorMessage string
}

// Delegate executes a task using a sub-agent, running a full iterated loop:
// each model response that carries tool calls gets those calls dispatched
// against the agent's filtered tool set, with the results fed back as tool
// messages, until the sub-agent produces a final text answer or the
// delegation's own (smaller) iteration budget runs out.
func (d *Delegator) Delegate(ctx context.Context, agentName string, task string) (*DelegationResult, error) {
	spec, ok := d.specs[agentName]
	if !ok {
		return nil, fmt.Errorf("sub-agent not found: %s", agentName)
	}

	if d.modelMgr == nil {
		return nil, fmt.Errorf("model manager unavailable for delegation")
	}

	filtered := d.filterTools(spec.Tools)

	modelID := spec.Model
	if modelID == "" {
		modelID = d.modelMgr.GetExecutionModel()
	}

	systemPrompt := "You are a Loom sub-agent. Answer concisely and focus on the requested task."
	if strings.TrimSpace(spec.Instructions) != "" {
		systemPrompt = spec.Instructions
	}

	messages := []model.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: task},
	}

	result := &DelegationResult{ModelUsed: modelID}
	toolDefs := d.buildToolDefinitions(filtered)

	for i := 0; i < delegateMaxIterations; i++ {
		req := model.ChatRequest{
			Model:       modelID,
			Messages:    messages,
			Temperature: 0.3,
			Tools:       toolDefs,
			ToolChoice:  "auto",
		}

		chatResp, err := d.modelMgr.ChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("delegate call failed: %w", err)
		}
		if len(chatResp.Choices) == 0 {
			return nil, fmt.Errorf("delegate call returned no choices")
		}

		result.TokensUsed += chatResp.Usage.TotalTokens
		choice := chatResp.Choices[0]
		choice.Message = conversation.NormalizeToolCallMarkup(choice.Message)

		if len(choice.Message.ToolCalls) == 0 {
			content, err := model.ExtractTextContent(choice.Message.Content)
			if err != nil {
				return nil, fmt.Errorf("delegate response parse failed: %w", err)
			}
			result.Success = true
			result.Output = content
			return result, nil
		}

		messages = append(messages, model.Message{
			Role:      "assistant",
			Content:   choice.Message.Content,
			ToolCalls: choice.Message.ToolCalls,
		})

		for _, tc := range choice.Message.ToolCalls {
			messages = append(messages, model.Message{
				Role:       "tool",
				Content:    d.executeDelegatedTool(ctx, filtered, tc),
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
			})
		}
	}

	result.Success = false
	result.ErrorMessage = fmt.Sprintf("sub-agent %q did not finish within %d iterations", agentName, delegateMaxIterations)
	return result, nil
}

// executeDelegatedTool dispatches a single tool call from a delegated
// sub-agent's response and renders the outcome as a tool-message string.
func (d *Delegator) executeDelegatedTool(ctx context.Context, registry *tool.Registry, tc model.ToolCall) string {
	if _, ok := registry.Get(tc.Function.Name); !ok {
		return fmt.Sprintf("unknown tool: %s", tc.Function.Name)
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &params); err != nil {
		return fmt.Sprintf("invalid arguments for %s: %v", tc.Function.Name, err)
	}
	if params != nil && tc.ID != "" {
		params[tool.ToolCallIDParam] = tc.ID
	}

	res, err := registry.ExecuteWithContext(ctx, tc.Function.Name, params)
	if err != nil {
		return fmt.Sprintf("execution error: %v", err)
	}
	if res == nil {
		return "tool returned no result"
	}
	if !res.Success {
		if res.Error != "" {
			return res.Error
		}
		return "tool failed"
	}
	if res.Data != nil {
		if data, err := json.Marshal(res.Data); err == nil {
			return string(data)
		}
	}
	return "success"
}

// filterTools creates a filtered registry with only allowed tools
func (d *Delegator) filterTools(allowedTools []string) *tool.Registry {
	// If no tools specified, allow all
	if len(allowedTools) == 0 {
		return d.registry
	}

	// Create an empty registry (without built-in tools)
	filtered := tool.NewEmptyRegistry()

	// Create a set of allowed tool names for O(1) lookup
	allowed := make(map[string]bool, len(allowedTools))
	for _, name := range allowedTools {
		allowed[name] = true
	}

	// Copy only allowed tools from the original registry
	for _, t := range d.registry.List() {
		if allowed[t.Name()] {
			filtered.Register(t)
		}
	}

	return filtered
}

// buildToolDefinitions converts tools to OpenAI function format
func (d *Delegator) buildToolDefinitions(registry *tool.Registry) []map[string]any {
	tools := []map[string]any{}

	for _, t := range registry.List() {
		tools = append(tools, tool.ToOpenAIFunction(t))
	}

	return tools
}

// ListAgents returns all available sub-agents
func (d *Delegator) ListAgents() []string {
	agents := []string{}
	for name := range d.specs {
		agents = append(agents, name)
	}
	return agents
}

// GetSpec returns the specification for a sub-agent
func (d *Delegator) GetSpec(agentName string) (*pkgcontext.SubAgentSpec, bool) {
	spec, ok := d.specs[agentName]
	return spec, ok
}
