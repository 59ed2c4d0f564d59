package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/relaycode/loom/pkg/bus"
	"github.com/relaycode/loom/pkg/conversation"
	loomerrors "github.com/relaycode/loom/pkg/errors"
	"github.com/relaycode/loom/pkg/logging"
	"github.com/relaycode/loom/pkg/model"
	"github.com/relaycode/loom/pkg/policy"
	"github.com/relaycode/loom/pkg/pty"
	"github.com/relaycode/loom/pkg/telemetry"
	"github.com/relaycode/loom/pkg/tool"
	"github.com/relaycode/loom/pkg/tool/builtin"
)

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	TaskID     string          `json:"task_id"`
	AgentID    string          `json:"agent_id"`
	Success    bool            `json:"success"`
	Output     string          `json:"output"`
	Error      string          `json:"error,omitempty"`
	Artifacts  []Artifact      `json:"artifacts,omitempty"`
	Duration   time.Duration   `json:"duration"`
	TokensUsed int             `json:"tokens_used"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	Transcript []model.Message `json:"transcript,omitempty"`
}

// Artifact represents a work product from task execution.
type Artifact struct {
	Type    string `json:"type"`    // file, pr, commit, etc.
	Path    string `json:"path"`    // File path or URL
	Content string `json:"content"` // Content or description
}

// ToolCall records a tool invocation during execution.
type ToolCall struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Arguments string        `json:"arguments"`
	Result    string        `json:"result"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
}

// ToolContext bundles the resources a tool dispatched from the execution
// loop may draw on beyond its own parameters: where the agent is working,
// what the policy manager permits, how to reach a PTY, where to publish
// visibility events, and the iteration budget request_more_iterations can
// extend. Built once per Execute call; a tool never retains it.
type ToolContext struct {
	WorkspaceRoot string
	Policy        *policy.Engine
	PTY           *pty.Manager
	Visibility    *telemetry.Hub
	SessionID     string
	Iterations    *IterationBudget
}

// IterationBudget tracks how many execution-loop iterations a task has used
// against its soft budget, and the hard ceiling request_more_iterations
// cannot push past.
type IterationBudget struct {
	used    int
	soft    int
	ceiling int
}

// NewIterationBudget creates a budget with the given soft limit and hard
// ceiling. A ceiling below soft is raised to soft.
func NewIterationBudget(soft, ceiling int) *IterationBudget {
	if soft <= 0 {
		soft = DefaultExecutorConfig().MaxIterations
	}
	if ceiling < soft {
		ceiling = soft
	}
	return &IterationBudget{soft: soft, ceiling: ceiling}
}

func (b *IterationBudget) Used() int { return b.used }
func (b *IterationBudget) Soft() int { return b.soft }

func (b *IterationBudget) advance() { b.used++ }

// NearExhaustion reports whether two or fewer iterations remain.
func (b *IterationBudget) NearExhaustion() bool {
	return b.soft-b.used <= 2
}

// Exhausted reports whether the soft budget has been used up.
func (b *IterationBudget) Exhausted() bool {
	return b.used >= b.soft
}

// Extend grows the soft budget by amount, capped at the hard ceiling.
// Returns the amount actually applied.
func (b *IterationBudget) Extend(amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("iteration extension must be positive")
	}
	available := b.ceiling - b.soft
	if available <= 0 {
		return 0, fmt.Errorf("iteration budget already at hard ceiling of %d", b.ceiling)
	}
	if amount > available {
		amount = available
	}
	b.soft += amount
	return amount, nil
}

// TaskExecutor executes a single task using an agent.
type TaskExecutor struct {
	bus        bus.MessageBus
	models     *model.Manager
	tools      *tool.Registry
	config     ExecutorConfig
	policy     *policy.Engine
	pty        *pty.Manager
	visibility *telemetry.Hub
	logger     *logging.Logger
	reasoning  *logging.ReasoningLogger
}

// SetLogger attaches a structured event logger for task/tool lifecycle
// events. Optional; a nil logger disables logging.
func (e *TaskExecutor) SetLogger(l *logging.Logger) {
	e.logger = l
}

// SetReasoningLogger attaches a sink for model reasoning traces. Optional.
func (e *TaskExecutor) SetReasoningLogger(l *logging.ReasoningLogger) {
	e.reasoning = l
}

func (e *TaskExecutor) logEvent(level logging.Level, eventType, message string, details map[string]any) {
	if e.logger == nil {
		return
	}
	switch level {
	case logging.LevelError:
		e.logger.Error(logging.CategoryWorkflow, eventType, message, details)
	case logging.LevelWarn:
		e.logger.Warn(logging.CategoryWorkflow, eventType, message, details)
	default:
		e.logger.Info(logging.CategoryWorkflow, eventType, message, details)
	}
}

// ExecutorConfig configures task execution behavior.
type ExecutorConfig struct {
	// MaxIterations is the soft iteration budget (prevents runaway).
	MaxIterations int

	// ToolTimeout is the max time for a single tool execution
	ToolTimeout time.Duration

	// TotalTimeout is the max time for entire task
	TotalTimeout time.Duration

	// HardIterationCeiling bounds how far request_more_iterations can push
	// the soft budget. Zero means 3x MaxIterations.
	HardIterationCeiling int
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxIterations: 50,
		ToolTimeout:   5 * time.Minute,
		TotalTimeout:  30 * time.Minute,
	}
}

func (c ExecutorConfig) hardCeiling() int {
	if c.HardIterationCeiling > 0 {
		return c.HardIterationCeiling
	}
	return c.MaxIterations * 3
}

// NewTaskExecutor creates a new executor.
func NewTaskExecutor(b bus.MessageBus, models *model.Manager, tools *tool.Registry, cfg ExecutorConfig) *TaskExecutor {
	if cfg.MaxIterations == 0 {
		cfg = DefaultExecutorConfig()
	}

	e := &TaskExecutor{bus: b, models: models, tools: tools, config: cfg}
	if tools != nil {
		e.policy = tools.PolicyEngine()
		e.pty = tools.PTYManager()
		e.visibility = tools.TelemetryHub()
		tools.Register(&builtin.RequestMoreIterationsTool{})
	}
	return e
}

// Execute runs a task to completion.
func (e *TaskExecutor) Execute(ctx context.Context, taskID string, role Role, task string, cfg AgentConfig) (*TaskResult, error) {
	start := time.Now()

	agt := NewAgent(taskID, role, e.bus, e.models, e.tools, cfg)

	result := &TaskResult{
		TaskID:  taskID,
		AgentID: agt.ID,
	}

	if err := agt.Start(ctx); err != nil {
		result.Error = err.Error()
		return result, err
	}
	defer agt.Cancel()

	execCtx, cancel := context.WithTimeout(ctx, e.config.TotalTimeout)
	defer cancel()

	workspaceRoot := ""
	if e.tools != nil {
		workspaceRoot = e.tools.WorkDir()
	}
	budget := NewIterationBudget(e.config.MaxIterations, e.config.hardCeiling())
	toolCtx := &ToolContext{
		WorkspaceRoot: workspaceRoot,
		Policy:        e.policy,
		PTY:           e.pty,
		Visibility:    e.visibility,
		SessionID:     taskID,
		Iterations:    budget,
	}

	messages := []model.Message{
		{Role: "user", Content: task},
	}
	wrappingUp := false

	e.logEvent(logging.LevelInfo, "task.started", "agent task started", map[string]any{
		"task_id": taskID,
		"agent":   string(role),
		"budget":  budget.Soft(),
	})

	for {
		select {
		case <-execCtx.Done():
			result.Error = "execution timeout"
			result.Duration = time.Since(start)
			result.Transcript = messages
			return result, execCtx.Err()
		default:
		}

		if budget.NearExhaustion() && !budget.Exhausted() {
			messages = append(messages, model.Message{
				Role: "system",
				Content: fmt.Sprintf(
					"Budget nearly exhausted: %d of %d iterations used. Wrap up with a final answer soon, or call %s with a justification if more work genuinely remains.",
					budget.Used(), budget.Soft(), builtin.RequestMoreIterationsToolName,
				),
			})
		}

		if budget.Exhausted() {
			if wrappingUp {
				e.logEvent(logging.LevelWarn, "task.budget_exhausted", "iteration budget exhausted", map[string]any{
					"task_id": taskID,
					"budget":  budget.Soft(),
				})
				err := loomerrors.New(loomerrors.ErrCodeBudgetExhausted, fmt.Sprintf("task %s exhausted its iteration budget (%d iterations) with tool calls still outstanding", taskID, budget.Soft())).
					WithContext("task_id", taskID).
					WithContext("iterations", budget.Soft())
				result.Error = err.Error()
				result.Duration = time.Since(start)
				result.Transcript = messages
				return result, err
			}
			wrappingUp = true
		}

		resp, err := agt.Chat(execCtx, messages)
		budget.advance()
		if err != nil {
			// A persistent upstream rejection on the current colour gets one
			// automatic fallback switch, recorded in the transcript, before
			// the turn is retried.
			if model.IsUpstreamRejection(err) && e.models != nil && e.models.Colours() != nil {
				if record := e.models.Colours().SwitchToFallback("upstream auth failure"); record != "" {
					messages = append(messages, model.Message{Role: "system", Content: record})
					continue
				}
			}
			result.Error = fmt.Sprintf("chat error: %v", err)
			result.Duration = time.Since(start)
			result.Transcript = messages
			return result, err
		}

		result.TokensUsed += resp.Usage.TotalTokens

		if len(resp.Choices) == 0 {
			result.Error = "no response from model"
			result.Duration = time.Since(start)
			result.Transcript = messages
			return result, fmt.Errorf("no response")
		}

		choice := resp.Choices[0]
		choice.Message = conversation.NormalizeToolCallMarkup(choice.Message)

		if e.reasoning != nil && choice.Message.Reasoning != "" {
			e.reasoning.WriteBlock(resp.Model, taskID, choice.Message.Reasoning)
		}

		if len(choice.Message.ToolCalls) > 0 {
			if wrappingUp {
				err := loomerrors.New(loomerrors.ErrCodeBudgetExhausted, fmt.Sprintf("task %s kept issuing tool calls after its wrap-up iteration", taskID)).
					WithContext("task_id", taskID)
				result.Error = err.Error()
				result.Duration = time.Since(start)
				result.Transcript = messages
				return result, err
			}

			messages = append(messages, model.Message{
				Role:      "assistant",
				Content:   choice.Message.Content,
				ToolCalls: choice.Message.ToolCalls,
			})

			toolResults := e.executeTools(execCtx, choice.Message.ToolCalls, toolCtx)
			result.ToolCalls = append(result.ToolCalls, toolResults...)
			for _, tr := range toolResults {
				messages = append(messages, model.Message{
					Role:       "tool",
					Content:    tr.Result,
					ToolCallID: tr.ID,
					Name:       tr.Name,
				})
			}

			agt.PublishTaskEvent(execCtx, "progress", map[string]any{
				"iteration":  budget.Used(),
				"tool_calls": len(toolResults),
			})

			continue
		}

		if choice.FinishReason == "stop" || choice.FinishReason == "" {
			content, extractErr := model.ExtractTextContent(choice.Message.Content)
			if extractErr != nil {
				content = fmt.Sprintf("%v", choice.Message.Content)
			}

			result.Success = true
			result.Output = content
			result.Duration = time.Since(start)
			result.Transcript = append(messages, choice.Message)

			agt.Resolve(execCtx, result)

			e.logEvent(logging.LevelInfo, "task.completed", "agent task completed", map[string]any{
				"task_id":    taskID,
				"iterations": budget.Used(),
				"tokens":     result.TokensUsed,
			})

			return result, nil
		}

		messages = append(messages, model.Message{
			Role:    "assistant",
			Content: choice.Message.Content,
		})
	}
}

// executeTools dispatches each tool call sequentially: request_more_iterations
// is intercepted before reaching the registry since it mutates the loop's own
// budget rather than the workspace; an unknown tool name produces a failed
// tool-role message instead of aborting the task; arguments that fail schema
// validation get one repair attempt before being reported as a failed call.
func (e *TaskExecutor) executeTools(ctx context.Context, toolCalls []model.ToolCall, toolCtx *ToolContext) []ToolCall {
	results := make([]ToolCall, 0, len(toolCalls))

	for _, tc := range toolCalls {
		toolCtx2, cancel := context.WithTimeout(ctx, e.config.ToolTimeout)

		started := time.Now()
		toolResult := ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}

		var params map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &params); err != nil {
			params = map[string]any{}
		}

		switch {
		case tc.Function.Name == builtin.RequestMoreIterationsToolName:
			toolResult.Success = true
			toolResult.Result = e.handleRequestMoreIterations(toolCtx, params)

		default:
			t, ok := e.tools.Get(tc.Function.Name)
			if !ok {
				toolResult.Success = false
				toolResult.Result = fmt.Sprintf("unknown tool: %s", tc.Function.Name)
				break
			}

			if verr := validateToolArgs(t, params); verr != nil {
				repaired, rerr := e.repairToolArgs(toolCtx2, t, tc.Function.Arguments, verr)
				if rerr != nil {
					toolResult.Success = false
					toolResult.Result = fmt.Sprintf("invalid arguments for %s: %v (repair failed: %v)", tc.Function.Name, verr, rerr)
					break
				}
				params = repaired
			}

			if params != nil && tc.ID != "" {
				params[tool.ToolCallIDParam] = tc.ID
			}

			res, err := e.tools.ExecuteWithContext(toolCtx2, tc.Function.Name, params)
			switch {
			case err != nil:
				toolResult.Success = false
				toolResult.Result = fmt.Sprintf("execution error: %v", err)
			case res == nil:
				toolResult.Success = false
				toolResult.Result = "tool returned no result"
			default:
				toolResult.Success = res.Success
				if res.Error != "" {
					toolResult.Result = res.Error
				} else if res.Data != nil {
					if data, merr := json.Marshal(res.Data); merr == nil {
						toolResult.Result = string(data)
					} else {
						toolResult.Result = "success"
					}
				} else {
					toolResult.Result = "success"
				}
			}
		}

		toolResult.Duration = time.Since(started)
		results = append(results, toolResult)
		cancel()
	}

	return results
}

func (e *TaskExecutor) handleRequestMoreIterations(toolCtx *ToolContext, params map[string]any) string {
	refuse := func(reason string) string {
		resp, _ := json.Marshal(map[string]any{"granted": false, "reason": reason})
		return string(resp)
	}

	var budget *IterationBudget
	if toolCtx != nil {
		budget = toolCtx.Iterations
	}
	if budget == nil {
		return refuse("no iteration budget available")
	}

	justification, _ := params["justification"].(string)
	if len(strings.TrimSpace(justification)) < builtin.MinIterationJustificationLen {
		return refuse(fmt.Sprintf("justification must be at least %d characters", builtin.MinIterationJustificationLen))
	}

	amount := 0
	switch v := params["iterations"].(type) {
	case float64:
		amount = int(v)
	case int:
		amount = v
	}

	granted, err := budget.Extend(amount)
	if err != nil {
		return refuse(err.Error())
	}

	e.logEvent(logging.LevelInfo, "task.iterations_extended", "iteration budget extended", map[string]any{
		"task_id":       toolCtx.SessionID,
		"granted":       granted,
		"new_budget":    budget.Soft(),
		"justification": justification,
	})

	resp, _ := json.Marshal(map[string]any{
		"granted":          true,
		"iterations_added": granted,
		"new_budget":       budget.Soft(),
		"justification":    justification,
	})
	return string(resp)
}

func validateToolArgs(t tool.Tool, params map[string]any) error {
	schema := t.Parameters()
	for _, req := range schema.Required {
		if _, ok := params[req]; !ok {
			return fmt.Errorf("missing required parameter %q", req)
		}
	}
	for name, value := range params {
		prop, ok := schema.Properties[name]
		if !ok {
			continue
		}
		if !toolArgTypeMatches(prop.Type, value) {
			return fmt.Errorf("parameter %q expected type %q", name, prop.Type)
		}
	}
	return nil
}

func toolArgTypeMatches(expected string, value any) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer", "number":
		switch value.(type) {
		case float64, int, int64:
			return true
		default:
			return false
		}
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

// repairToolArgs makes a single corrective call asking the model to fix
// arguments that failed schema validation, then validates the repair once
// more before accepting it.
func (e *TaskExecutor) repairToolArgs(ctx context.Context, t tool.Tool, original string, schemaErr error) (map[string]any, error) {
	if e.models == nil {
		return nil, fmt.Errorf("model manager unavailable for repair")
	}

	schemaJSON, err := json.Marshal(t.Parameters())
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	prompt := fmt.Sprintf(
		"The arguments supplied for tool %q failed validation: %v\n\nOriginal arguments:\n%s\n\nParameter schema:\n%s\n\nReturn only a corrected JSON object matching the schema. No prose, no markdown fences.",
		t.Name(), schemaErr, original, string(schemaJSON),
	)

	req := model.ChatRequest{
		Model: e.models.GetExecutionModel(),
		Messages: []model.Message{
			{Role: "system", Content: "You repair malformed tool-call arguments. Respond with raw JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	}

	resp, err := e.models.ChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("repair call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("repair call returned no choices")
	}

	content, err := model.ExtractTextContent(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("repair response unreadable: %w", err)
	}
	content = extractJSONObject(content)

	var params map[string]any
	if err := json.Unmarshal([]byte(content), &params); err != nil {
		return nil, fmt.Errorf("repaired arguments still invalid JSON: %w", err)
	}
	if err := validateToolArgs(t, params); err != nil {
		return nil, fmt.Errorf("repaired arguments still fail validation: %w", err)
	}
	return params, nil
}

func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "{") && strings.Contains(s, "}") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			return s[start : end+1]
		}
	}
	return s
}

// ExecuteSimple is a convenience method for simple task execution.
func (e *TaskExecutor) ExecuteSimple(ctx context.Context, task string) (*TaskResult, error) {
	taskID := fmt.Sprintf("simple-%d", time.Now().UnixNano())
	return e.Execute(ctx, taskID, RoleExecutor, task, DefaultAgentConfig())
}
