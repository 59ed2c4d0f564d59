package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaycode/loom/pkg/agent"
	loomerrors "github.com/relaycode/loom/pkg/errors"
	"github.com/relaycode/loom/pkg/model"
	"github.com/relaycode/loom/pkg/telemetry"
	"github.com/relaycode/loom/pkg/tool"
)

// SubtaskExecutor runs one subtask through the full agent execution loop
// (iteration budget, schema validation and repair, policy-gated tool
// dispatch). agent.TaskExecutor is the production implementation; tests
// substitute their own.
type SubtaskExecutor interface {
	Execute(ctx context.Context, taskID string, role agent.Role, task string, cfg agent.AgentConfig) (*agent.TaskResult, error)
}

// SetTaskExecutor routes subtask dispatch through the agent execution loop
// instead of the coordinator's minimal inline loop.
func (w *WorkflowManager) SetTaskExecutor(exec SubtaskExecutor) {
	w.subtaskExec = exec
}

// ProcessRequest is the Planning Coordinator's entry point: it turns one
// piece of free-text user input into a plan (single task or decomposed),
// dispatches the plan's subtasks to their assigned agents in sequence, and
// aggregates the results into a final response. Each subtask's output is
// fed back in as context for the next, so a later subtask can build on an
// earlier one's work instead of re-deriving it.
//
// defaultAgent is used whenever the planner names an agent knownAgents
// doesn't recognize (including the planner itself, which never appears in
// knownAgents and so can never be selected to execute).
//
// A failed subtask is reported inline in the aggregated response and the
// remaining subtasks still run; only a fatal failure (upstream rejection,
// invariant violation, cancellation) aborts the request.
func (w *WorkflowManager) ProcessRequest(ctx context.Context, userText, defaultAgent string, knownAgents []string) (string, error) {
	if w.planner == nil {
		return "", fmt.Errorf("coordinator has no planner configured")
	}

	plan, err := w.planner.PlanRequest(ctx, userText, defaultAgent, knownAgents)
	if err != nil {
		return "", fmt.Errorf("planning failed: %w", err)
	}

	w.planRef = plan
	w.EmitPlanSnapshot(plan, telemetry.EventPlanCreated)

	var results []string
	for i := range plan.Tasks {
		task := &plan.Tasks[i]
		task.Status = TaskRunning
		w.EmitTaskEvent(task, telemetry.EventTaskStarted)

		output, err := w.dispatchSubtask(ctx, task, results)
		if err != nil {
			task.Status = TaskFailed
			w.EmitTaskEvent(task, telemetry.EventTaskFailed)
			if isFatalSubtaskError(ctx, err) {
				return "", fmt.Errorf("subtask %q (agent %q) failed: %w", task.ID, task.AssignedAgent, err)
			}
			results = append(results, fmt.Sprintf("subtask %q (agent %q) failed: %v", task.ID, task.AssignedAgent, err))
			continue
		}

		task.Status = TaskCompleted
		w.EmitTaskEvent(task, telemetry.EventTaskCompleted)
		results = append(results, output)
	}

	w.EmitPlanSnapshot(plan, telemetry.EventPlanUpdated)

	if plan.Strategy() == StrategySingleTask || len(results) == 1 {
		return results[0], nil
	}
	return aggregateSubtaskResults(plan, results), nil
}

// isFatalSubtaskError decides whether a subtask failure should abort the
// remaining subtasks. Tool-level failures (policy denials, schema errors)
// never reach here - they surface to the agent as tool results - so what
// does is infrastructure: upstream auth rejection, cancellation, or an
// invariant violation.
func isFatalSubtaskError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	switch loomerrors.GetCode(err) {
	case loomerrors.ErrCodeUpstreamRejected, loomerrors.ErrCodeFatal, loomerrors.ErrCodeCancelled, loomerrors.ErrCodeConfigInvalid:
		return true
	}
	return false
}

// dispatchSubtask runs one subtask's assigned agent to completion. Prior
// subtask outputs are folded in as context so sequential subtasks can build
// on each other without re-deriving earlier work.
func (w *WorkflowManager) dispatchSubtask(ctx context.Context, task *Task, priorResults []string) (string, error) {
	var b strings.Builder
	if len(priorResults) > 0 {
		b.WriteString("Context from prior subtasks:\n")
		for i, r := range priorResults {
			fmt.Fprintf(&b, "--- subtask %d result ---\n%s\n\n", i+1, r)
		}
	}
	b.WriteString("Your subtask:\n")
	b.WriteString(task.Description)

	systemPrompt := fmt.Sprintf("You are the %q agent, executing one subtask of a larger plan. Focus only on your subtask; use the prior context for continuity.", task.AssignedAgent)

	if w.subtaskExec != nil {
		result, err := w.subtaskExec.Execute(ctx, task.ID, agent.Role(task.AssignedAgent), b.String(), agent.AgentConfig{
			Model:        w.config.Models.Execution,
			SystemPrompt: systemPrompt,
		})
		if err != nil {
			return "", err
		}
		if result != nil && !result.Success && result.Error != "" {
			return "", fmt.Errorf("%s", result.Error)
		}
		if result == nil {
			return "", fmt.Errorf("agent executor returned no result")
		}
		return result.Output, nil
	}

	// Without an agent executor wired, fall back to a minimal chat loop
	// against the model client alone.
	if w.modelClient == nil {
		return "", fmt.Errorf("no model client configured")
	}

	modelID := w.config.Models.Execution
	req := model.ChatRequest{
		Model: modelID,
		Messages: []model.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: b.String()},
		},
		Temperature: 0.3,
	}
	if w.toolRegistry != nil {
		req.Tools = w.toolRegistry.ToOpenAIFunctions()
		req.ToolChoice = "auto"
	}

	resp, err := w.modelClient.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	messages := req.Messages
	choice := resp.Choices[0]

	for iter := 0; len(choice.Message.ToolCalls) > 0 && iter < subtaskToolIterationLimit; iter++ {
		messages = append(messages, model.Message{
			Role:      "assistant",
			Content:   choice.Message.Content,
			ToolCalls: choice.Message.ToolCalls,
		})
		for _, tc := range choice.Message.ToolCalls {
			messages = append(messages, model.Message{
				Role:       "tool",
				Content:    executeSubtaskTool(ctx, w.toolRegistry, tc),
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
			})
		}

		req.Messages = messages
		resp, err = w.modelClient.ChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no response from model")
		}
		choice = resp.Choices[0]
	}

	return model.ExtractTextContent(choice.Message.Content)
}

// subtaskToolIterationLimit bounds a single subtask's own tool-call
// round-trips in the fallback loop, separate from the agent loop's
// iteration budget.
const subtaskToolIterationLimit = 8

// executeSubtaskTool dispatches one tool call from the fallback loop and
// renders its result as the tool-role message content. Failures come back
// as text for the model to reason about, never as an error.
func executeSubtaskTool(ctx context.Context, registry *tool.Registry, tc model.ToolCall) string {
	if registry == nil {
		return fmt.Sprintf("unknown tool: %s", tc.Function.Name)
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &params); err != nil {
		return fmt.Sprintf("invalid arguments for %s: %v", tc.Function.Name, err)
	}

	res, err := registry.ExecuteWithContext(ctx, tc.Function.Name, params)
	switch {
	case err != nil:
		return fmt.Sprintf("execution error: %v", err)
	case res == nil:
		return "tool returned no result"
	case res.Error != "":
		return res.Error
	case res.Data != nil:
		if data, merr := json.Marshal(res.Data); merr == nil {
			return string(data)
		}
		return "success"
	default:
		return "success"
	}
}

func aggregateSubtaskResults(plan *Plan, results []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Completed %d subtasks for: %s\n\n", len(results), plan.Description)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(r))
	}
	return b.String()
}
