package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/relaycode/loom/pkg/conversation"
	"github.com/relaycode/loom/pkg/giturl"
	"github.com/relaycode/loom/pkg/model"
	"github.com/relaycode/loom/pkg/policy"
	"github.com/relaycode/loom/pkg/pty"
	"github.com/relaycode/loom/pkg/storage"
	"github.com/relaycode/loom/pkg/telemetry"
	"github.com/relaycode/loom/pkg/tool/builtin"
	"github.com/relaycode/loom/pkg/tool/external"
	"github.com/relaycode/loom/pkg/touch"
)

// ToolCallIDParam allows callers to attach a stable tool call ID for telemetry.
const ToolCallIDParam = "__loom_tool_call_id"

// Registry manages all available tools
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	middlewares []Middleware
	executor    Executor
	hooks       *HookRegistry

	telemetryHub     *telemetry.Hub
	telemetrySession string

	policyEngine    *policy.Engine
	policySessionID string

	workDir    string
	ptyManager *pty.Manager
}

type registryOptions struct {
	builtinFilter func(Tool) bool
}

// RegistryOption configures registry construction.
type RegistryOption func(*registryOptions)

// NewEmptyRegistry creates a new empty tool registry without any built-in tools
func NewEmptyRegistry() *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
		hooks: &HookRegistry{},
	}
	r.rebuildExecutor()
	return r
}

// NewRegistry creates a new tool registry with built-in tools
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := registryOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &Registry{
		tools: make(map[string]Tool),
		hooks: &HookRegistry{},
	}

	r.registerBuiltins(cfg)
	r.rebuildExecutor()

	return r
}

// SetWorkDir configures a base working directory for tools that support it.
// Tools may use this to resolve relative paths and run shell/git commands in
// the correct repository root (critical for hosted/multi-project deployments).
func (r *Registry) SetWorkDir(workDir string) {
	if r == nil {
		return
	}
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return
	}
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	workDir = filepath.Clean(workDir)
	r.workDir = workDir
	tools := r.snapshotTools()
	for _, t := range tools {
		if setter, ok := t.(interface{ SetWorkDir(string) }); ok {
			setter.SetWorkDir(workDir)
		}
	}
}

// WorkDir returns the base working directory configured via SetWorkDir.
func (r *Registry) WorkDir() string {
	if r == nil {
		return ""
	}
	return r.workDir
}

// PolicyEngine returns the policy engine wired via EnablePolicyGating, if any.
func (r *Registry) PolicyEngine() *policy.Engine {
	if r == nil {
		return nil
	}
	return r.policyEngine
}

// PTYManager returns the PTY manager wired via EnablePTY, if any.
func (r *Registry) PTYManager() *pty.Manager {
	if r == nil {
		return nil
	}
	return r.ptyManager
}

// TelemetryHub returns the telemetry hub wired via EnableTelemetry, if any.
func (r *Registry) TelemetryHub() *telemetry.Hub {
	if r == nil {
		return nil
	}
	return r.telemetryHub
}

// SetEnv configures environment variable overrides for tools that support it.
func (r *Registry) SetEnv(env map[string]string) {
	if r == nil {
		return
	}
	if len(env) == 0 {
		return
	}
	tools := r.snapshotTools()
	for _, t := range tools {
		if setter, ok := t.(interface{ SetEnv(map[string]string) }); ok {
			setter.SetEnv(env)
		}
	}
}

// SetMaxFileSizeBytes configures file size limits for tools that support it.
func (r *Registry) SetMaxFileSizeBytes(max int64) {
	if r == nil {
		return
	}
	tools := r.snapshotTools()
	for _, t := range tools {
		if setter, ok := t.(interface{ SetMaxFileSizeBytes(int64) }); ok {
			setter.SetMaxFileSizeBytes(max)
		}
	}
}

// SetMaxExecTimeSeconds configures a global max execution time for tools that support it.
func (r *Registry) SetMaxExecTimeSeconds(seconds int32) {
	if r == nil {
		return
	}
	tools := r.snapshotTools()
	for _, t := range tools {
		if setter, ok := t.(interface{ SetMaxExecTimeSeconds(int32) }); ok {
			setter.SetMaxExecTimeSeconds(seconds)
		}
	}
}

// SetMaxOutputBytes configures a global max output size for tools that support it.
func (r *Registry) SetMaxOutputBytes(max int) {
	if r == nil {
		return
	}
	tools := r.snapshotTools()
	for _, t := range tools {
		if setter, ok := t.(interface{ SetMaxOutputBytes(int) }); ok {
			setter.SetMaxOutputBytes(max)
		}
	}
}

// WithBuiltinFilter allows callers to filter built-in tools during registry construction.
func WithBuiltinFilter(filter func(Tool) bool) RegistryOption {
	return func(opts *registryOptions) {
		opts.builtinFilter = filter
	}
}

func (r *Registry) registerBuiltins(cfg registryOptions) {
	register := func(tool Tool) {
		if cfg.builtinFilter == nil || cfg.builtinFilter(tool) {
			r.Register(tool)
		}
	}

	// File tools (read/write/edit with diff preview)
	register(&builtin.ReadFileTool{})
	register(&builtin.WriteFileTool{})
	register(&builtin.ListDirectoryTool{})
	register(&builtin.PatchFileTool{})
	register(&builtin.FindFilesTool{})
	register(&builtin.FileExistsTool{})
	register(&builtin.GetFileInfoTool{})

	// Edit tools (diff preview + confirm handshake)
	register(&builtin.EditFileTool{})
	register(&builtin.InsertTextTool{})
	register(&builtin.DeleteLinesTool{})

	// Search
	register(&builtin.SearchTextTool{})

	// Shell command execution
	register(&builtin.ShellCommandTool{})
	register(&builtin.WaitForTool{})

	// Read-only git inspection
	register(&builtin.GitStatusTool{})
	register(&builtin.GitDiffTool{})
	register(&builtin.GitLogTool{})

	// Skill discovery/loading
	register(&builtin.CreateSkillTool{})

	// Navigation tools that need no store handle (grep/ripgrep only).
	register(&builtin.FindReferencesTool{})
	register(&builtin.GetFunctionSignatureTool{})

	// Note: the TODO tool, code-lookup tools (lookup_context, find_symbol),
	// and compaction tool are registered separately via
	// SetTodoStore/EnableCodeIndex/SetCompactionManager since they need
	// external dependencies (store handles, LLM client).
}

// EnableTelemetry wires telemetry events for selected built-in tools.
func (r *Registry) EnableTelemetry(hub *telemetry.Hub, sessionID string) {
	r.telemetryHub = hub
	r.telemetrySession = sessionID
}

// EnablePolicyGating wires a policy.Engine so mutating tools (write_file,
// apply_patch, browser_clipboard_read) evaluate against the active ruleset
// before running, confirming inline through the engine's Prompter instead
// of blocking on an external approval queue.
func (r *Registry) EnablePolicyGating(engine *policy.Engine, sessionID string) {
	if engine == nil {
		return
	}
	r.policyEngine = engine
	r.policySessionID = strings.TrimSpace(sessionID)
}

// UpdatePolicySession updates the session identifier attached to evaluated tool calls.
func (r *Registry) UpdatePolicySession(sessionID string) {
	r.policySessionID = strings.TrimSpace(sessionID)
}

// UpdateTelemetrySession updates the active session used for telemetry fan-out.
func (r *Registry) UpdateTelemetrySession(sessionID string) {
	r.telemetrySession = sessionID
}

// SetTodoStore initializes the TODO tool with a storage backend
func (r *Registry) SetTodoStore(store builtin.TodoStore) {
	r.Register(&builtin.TodoTool{Store: store})
}

// EnablePTY registers the pty_* tool family
// against a shared *pty.Manager. Launch and kill go through the same
// policy gate as write_file/apply_patch when EnablePolicyGating is active
// (see approvalMiddleware), since categorizeToolCall already routes any
// tool name containing "pty" to ActionPTY.
func (r *Registry) EnablePTY(manager *pty.Manager) {
	if manager == nil {
		return
	}
	r.ptyManager = manager
	r.Register(builtin.NewPTYLaunchTool(manager))
	r.Register(builtin.NewPTYSendKeysTool(manager))
	r.Register(builtin.NewPTYGetScreenTool(manager))
	r.Register(builtin.NewPTYGetCursorTool(manager))
	r.Register(builtin.NewPTYResizeTool(manager))
	r.Register(builtin.NewPTYSetScrollbackTool(manager))
	r.Register(builtin.NewPTYStartCaptureTool(manager))
	r.Register(builtin.NewPTYStopCaptureTool(manager))
	r.Register(builtin.NewPTYListTool(manager))
	r.Register(builtin.NewPTYKillTool(manager))
	r.Register(builtin.NewPTYRequestUserInputTool(manager))
}

// EnableRepositoryCloning registers the clone_repository tool, gated by the
// given clone policy (scheme/host allow and deny lists, private-network
// blocking).
func (r *Registry) EnableRepositoryCloning(policy giturl.ClonePolicy) {
	t := &builtin.CloneRepositoryTool{Policy: policy}
	if wd := r.WorkDir(); wd != "" {
		t.SetWorkDir(wd)
	}
	r.Register(t)
}

// EnableModelSwitching registers the switch_model tool against a shared
// colour selector, letting agents change the model colour used for
// subsequent turns.
func (r *Registry) EnableModelSwitching(selector *model.ColourSelector) {
	if selector == nil {
		return
	}
	r.Register(&builtin.SwitchModelTool{Selector: selector})
}

// EnableTodoStorage wires the TODO tool directly against a *storage.Store,
// adapting its SQLite-backed Todo/TodoCheckpoint types to builtin.TodoStore.
// llmClient and planningModel are optional; without an llmClient the
// brainstorm/refine actions report themselves unavailable.
func (r *Registry) EnableTodoStorage(store *storage.Store, llmClient builtin.PlanningClient, planningModel string) {
	if store == nil {
		return
	}
	r.Register(&builtin.TodoTool{
		Store:         &storageTodoAdapter{store: store},
		LLMClient:     llmClient,
		PlanningModel: planningModel,
	})
}

// storageTodoAdapter adapts storage.Store's Todo/TodoCheckpoint types to the
// builtin.TodoStore interface the TODO tool depends on.
type storageTodoAdapter struct {
	store *storage.Store
}

func (a *storageTodoAdapter) CreateTodo(todo *builtin.TodoItem) error {
	st := &storage.Todo{
		ID:           todo.ID,
		SessionID:    todo.SessionID,
		Content:      todo.Content,
		ActiveForm:   todo.ActiveForm,
		Status:       todo.Status,
		OrderIndex:   todo.OrderIndex,
		ParentID:     todo.ParentID,
		CreatedAt:    todo.CreatedAt,
		UpdatedAt:    todo.UpdatedAt,
		CompletedAt:  todo.CompletedAt,
		ErrorMessage: todo.ErrorMessage,
		Metadata:     todo.Metadata,
	}
	if err := a.store.CreateTodo(st); err != nil {
		return err
	}
	todo.ID = st.ID
	return nil
}

func (a *storageTodoAdapter) UpdateTodoStatus(id int64, status string, errorMessage string) error {
	return a.store.UpdateTodoStatus(id, status, errorMessage)
}

func (a *storageTodoAdapter) GetTodos(sessionID string) ([]builtin.TodoItem, error) {
	rows, err := a.store.GetTodos(sessionID)
	if err != nil {
		return nil, err
	}
	todos := make([]builtin.TodoItem, len(rows))
	for i, st := range rows {
		todos[i] = builtin.TodoItem{
			ID:           st.ID,
			SessionID:    st.SessionID,
			Content:      st.Content,
			ActiveForm:   st.ActiveForm,
			Status:       st.Status,
			OrderIndex:   st.OrderIndex,
			ParentID:     st.ParentID,
			CreatedAt:    st.CreatedAt,
			UpdatedAt:    st.UpdatedAt,
			CompletedAt:  st.CompletedAt,
			ErrorMessage: st.ErrorMessage,
			Metadata:     st.Metadata,
		}
	}
	return todos, nil
}

func (a *storageTodoAdapter) GetActiveTodo(sessionID string) (*builtin.TodoItem, error) {
	st, err := a.store.GetActiveTodo(sessionID)
	if err != nil || st == nil {
		return nil, err
	}
	return &builtin.TodoItem{
		ID:           st.ID,
		SessionID:    st.SessionID,
		Content:      st.Content,
		ActiveForm:   st.ActiveForm,
		Status:       st.Status,
		OrderIndex:   st.OrderIndex,
		ParentID:     st.ParentID,
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
		CompletedAt:  st.CompletedAt,
		ErrorMessage: st.ErrorMessage,
		Metadata:     st.Metadata,
	}, nil
}

func (a *storageTodoAdapter) DeleteTodos(sessionID string) error {
	return a.store.DeleteTodos(sessionID)
}

func (a *storageTodoAdapter) CreateCheckpoint(checkpoint *builtin.TodoCheckpointData) error {
	sc := &storage.TodoCheckpoint{
		ID:                  checkpoint.ID,
		SessionID:           checkpoint.SessionID,
		CheckpointType:      checkpoint.CheckpointType,
		TodoCount:           checkpoint.TodoCount,
		CompletedCount:      checkpoint.CompletedCount,
		ConversationSummary: checkpoint.ConversationSummary,
		ConversationTokens:  checkpoint.ConversationTokens,
		CreatedAt:           checkpoint.CreatedAt,
		Metadata:            checkpoint.Metadata,
	}
	if err := a.store.CreateCheckpoint(sc); err != nil {
		return err
	}
	checkpoint.ID = sc.ID
	return nil
}

func (a *storageTodoAdapter) GetLatestCheckpoint(sessionID string) (*builtin.TodoCheckpointData, error) {
	sc, err := a.store.GetLatestCheckpoint(sessionID)
	if err != nil || sc == nil {
		return nil, err
	}
	return &builtin.TodoCheckpointData{
		ID:                  sc.ID,
		SessionID:           sc.SessionID,
		CheckpointType:      sc.CheckpointType,
		TodoCount:           sc.TodoCount,
		CompletedCount:      sc.CompletedCount,
		ConversationSummary: sc.ConversationSummary,
		ConversationTokens:  sc.ConversationTokens,
		CreatedAt:           sc.CreatedAt,
		Metadata:            sc.Metadata,
	}, nil
}

func (a *storageTodoAdapter) EnsureSession(sessionID string) error {
	return a.store.EnsureSession(sessionID)
}

// SetCompactionManager registers the compact_context tool.
func (r *Registry) SetCompactionManager(compactor *conversation.CompactionManager) {
	if r == nil || compactor == nil {
		return
	}
	r.Register(builtin.NewCompactContextTool(compactor))
}

// GetTodoTool returns the registered TodoTool, or nil if not registered
func (r *Registry) GetTodoTool() *builtin.TodoTool {
	t, ok := r.Get("todo")
	if !ok {
		return nil
	}
	if todoTool, ok := t.(*builtin.TodoTool); ok {
		return todoTool
	}
	return nil
}

// ConfigureTodoPlanning enables planning capabilities on the TodoTool
func (r *Registry) ConfigureTodoPlanning(llmClient builtin.PlanningClient, planningModel string) {
	if todoTool := r.GetTodoTool(); todoTool != nil {
		todoTool.LLMClient = llmClient
		todoTool.PlanningModel = planningModel
	}
}

// EnableCodeIndex registers context lookup tools backed by storage.
func (r *Registry) EnableCodeIndex(store *storage.Store) {
	if store == nil {
		return
	}
	r.Register(&builtin.LookupContextTool{Store: store})
	if tool, ok := r.Get("find_symbol"); ok {
		if fs, ok := tool.(*builtin.FindSymbolTool); ok {
			fs.Store = store
			return
		}
	}
	r.Register(&builtin.FindSymbolTool{Store: store})
}

// Register registers a tool
func (r *Registry) Register(t Tool) {
	if r == nil || t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Remove unregisters a tool by name.
func (r *Registry) Remove(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Filter removes tools that do not match the predicate.
func (r *Registry) Filter(keep func(Tool) bool) {
	if r == nil || keep == nil {
		return
	}
	tools := r.snapshotToolMap()
	var remove []string
	for name, t := range tools {
		if !keep(t) {
			remove = append(remove, name)
		}
	}
	if len(remove) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range remove {
		delete(r.tools, name)
	}
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools
func (r *Registry) List() []Tool {
	return r.snapshotTools()
}

// Hooks returns the registry hook manager.
func (r *Registry) Hooks() *HookRegistry {
	if r == nil {
		return nil
	}
	return r.hooks
}

// Use registers a middleware on the registry.
func (r *Registry) Use(mw Middleware) {
	if r == nil || mw == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
	r.rebuildExecutorLocked()
}

// Execute executes a tool by name using a background context.
func (r *Registry) Execute(name string, params map[string]any) (*builtin.Result, error) {
	return r.ExecuteWithContext(context.Background(), name, params)
}

// ExecuteWithContext executes a tool by name using the provided context.
func (r *Registry) ExecuteWithContext(ctx context.Context, name string, params map[string]any) (*builtin.Result, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	execCtx := &ExecutionContext{
		Context:   ctx,
		ToolName:  name,
		Tool:      t,
		SessionID: r.telemetrySession,
		CallID:    toolCallIDFromParams(params),
		Params:    params,
		StartTime: time.Now(),
		Attempt:   1,
		Metadata:  make(map[string]any),
	}
	exec := r.executorForCall()
	if exec == nil {
		return nil, fmt.Errorf("tool executor not initialized")
	}
	return exec(execCtx)
}

func (r *Registry) executorForCall() Executor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	exec := r.executor
	r.mu.RUnlock()
	if exec != nil {
		return exec
	}
	r.rebuildExecutor()
	r.mu.RLock()
	exec = r.executor
	r.mu.RUnlock()
	return exec
}

func (r *Registry) rebuildExecutor() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuildExecutorLocked()
}

func (r *Registry) rebuildExecutorLocked() {
	base := r.baseExecutor()
	middlewares := make([]Middleware, 0, len(r.middlewares)+3)
	middlewares = append(middlewares, r.telemetryMiddleware(), Hooks(r.hooks), r.approvalMiddleware())
	middlewares = append(middlewares, r.middlewares...)
	r.executor = Chain(middlewares...)(base)
}

func (r *Registry) baseExecutor() Executor {
	return func(ctx *ExecutionContext) (*builtin.Result, error) {
		if ctx == nil {
			return nil, fmt.Errorf("execution context required")
		}
		name := strings.TrimSpace(ctx.ToolName)
		if name == "" {
			return nil, fmt.Errorf("tool name cannot be empty")
		}
		t := ctx.Tool
		if t == nil {
			var ok bool
			t, ok = r.Get(name)
			if !ok {
				return nil, fmt.Errorf("tool not found: %s", name)
			}
			ctx.Tool = t
		}

		params := ctx.Params
		if params == nil {
			params = map[string]any{}
			ctx.Params = params
		}
		if strings.TrimSpace(ctx.CallID) == "" {
			ctx.CallID = toolCallIDFromParams(params)
		}
		if ctx.StartTime.IsZero() {
			ctx.StartTime = time.Now()
		}
		return r.executeTool(ctx, t, params)
	}
}

func (r *Registry) executeTool(ctx *ExecutionContext, tool Tool, params map[string]any) (*builtin.Result, error) {
	if ctx != nil && ctx.Context != nil {
		if err := ctx.Context.Err(); err != nil {
			return nil, err
		}
	}
	if tool == nil {
		return nil, fmt.Errorf("tool required")
	}
	if ctxTool, ok := tool.(ContextTool); ok {
		execCtx := ctx.Context
		if execCtx == nil {
			execCtx = context.Background()
		}
		return ctxTool.ExecuteWithContext(execCtx, params)
	}
	return tool.Execute(params)
}

func (r *Registry) executeWithShellTelemetry(execFn func(map[string]any) (*builtin.Result, error), params map[string]any) (*builtin.Result, error) {
	command := sanitizeShellCommand(params)
	interactive := false
	if params != nil {
		if val, ok := params["interactive"].(bool); ok {
			interactive = val
		}
	}
	start := time.Now()
	r.publishShellEvent(telemetry.EventShellCommandStarted, map[string]any{
		"command":     command,
		"interactive": interactive,
	})

	res, err := execFn(params)
	duration := time.Since(start)

	payload := map[string]any{
		"command":     command,
		"duration_ms": duration.Milliseconds(),
		"interactive": interactive,
	}

	if res != nil {
		if exitCode, ok := res.Data["exit_code"]; ok {
			payload["exit_code"] = exitCode
		}
		if note, ok := res.DisplayData["message"].(string); ok && note != "" {
			payload["note"] = note
		}
		if stderr, ok := res.Data["stderr"].(string); ok && stderr != "" {
			payload["stderr_preview"] = truncateForTelemetry(stderr)
		}
		if stdout, ok := res.Data["stdout"].(string); ok && stdout != "" {
			payload["stdout_preview"] = truncateForTelemetry(stdout)
		}
		if res.Error != "" {
			payload["error"] = res.Error
		}
	}

	if err != nil || (res != nil && !res.Success) {
		if err != nil {
			payload["error"] = err.Error()
		}
		r.publishShellEvent(telemetry.EventShellCommandFailed, payload)
	} else {
		r.publishShellEvent(telemetry.EventShellCommandCompleted, payload)
	}

	return res, err
}

func (r *Registry) shouldGateChanges() bool {
	return r.policyEngine != nil
}

func (r *Registry) evaluateGatedCall(ctx context.Context, toolName string, params map[string]any) (policy.EvaluationResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return r.policyEngine.Evaluate(ctx, policy.ToolCall{
		Name:      toolName,
		Input:     params,
		SessionID: r.policySessionID,
	})
}

func (r *Registry) executeWithMissionWrite(ctx context.Context, params map[string]any, execFn func(map[string]any) (*builtin.Result, error)) (*builtin.Result, error) {
	path, ok := params["path"].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return &builtin.Result{Success: false, Error: "path parameter is required"}, nil
	}
	content, ok := params["content"].(string)
	if !ok {
		return &builtin.Result{Success: false, Error: "content parameter must be a string"}, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return &builtin.Result{Success: false, Error: fmt.Sprintf("invalid path: %v", err)}, nil
	}

	oldContent := ""
	if existing, err := os.ReadFile(absPath); err == nil {
		oldContent = string(existing)
	}
	if oldContent == content {
		return execFn(params)
	}

	result, err := r.evaluateGatedCall(ctx, "write_file", params)
	if err != nil {
		return &builtin.Result{Success: false, Error: fmt.Sprintf("policy evaluation failed: %v", err)}, nil
	}
	if result.Decision == policy.DecisionDeny {
		return &builtin.Result{Success: false, Error: fmt.Sprintf("write to %s denied by policy rule %q", absPath, result.MatchedRule)}, nil
	}

	return execFn(params)
}

func (r *Registry) executeWithMissionPatch(ctx context.Context, params map[string]any, execFn func(map[string]any) (*builtin.Result, error)) (*builtin.Result, error) {
	rawPatch, ok := params["patch"].(string)
	if !ok || strings.TrimSpace(rawPatch) == "" {
		return &builtin.Result{Success: false, Error: "patch parameter must be a non-empty string"}, nil
	}

	result, err := r.evaluateGatedCall(ctx, "apply_patch", params)
	if err != nil {
		return &builtin.Result{Success: false, Error: fmt.Sprintf("policy evaluation failed: %v", err)}, nil
	}
	if result.Decision == policy.DecisionDeny {
		return &builtin.Result{Success: false, Error: fmt.Sprintf("patch to %s denied by policy rule %q", derivePatchTarget(rawPatch), result.MatchedRule)}, nil
	}

	return execFn(params)
}

// executeWithPTYGate evaluates pty_launch/pty_kill against the policy engine
// before running them, since an interactive shell is as sensitive as a raw
// shell command.
func (r *Registry) executeWithPTYGate(ctx context.Context, toolName string, params map[string]any, execFn func(map[string]any) (*builtin.Result, error)) (*builtin.Result, error) {
	result, err := r.evaluateGatedCall(ctx, toolName, params)
	if err != nil {
		return &builtin.Result{Success: false, Error: fmt.Sprintf("policy evaluation failed: %v", err)}, nil
	}
	if result.Decision == policy.DecisionDeny {
		return &builtin.Result{Success: false, Error: fmt.Sprintf("%s denied by policy rule %q", toolName, result.MatchedRule)}, nil
	}
	return execFn(params)
}

func derivePatchTarget(rawPatch string) string {
	lines := strings.Split(rawPatch, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "+++ ") || strings.HasPrefix(line, "--- ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				return strings.TrimSpace(fields[1])
			}
		}
	}
	return "apply_patch"
}

func (r *Registry) publishShellEvent(eventType telemetry.EventType, data map[string]any) {
	if r.telemetryHub == nil {
		return
	}
	payload := map[string]any{
		"tool": "run_shell",
	}
	for k, v := range data {
		payload[k] = v
	}
	r.telemetryHub.Publish(telemetry.Event{
		Type:      eventType,
		SessionID: r.telemetrySession,
		Data:      payload,
	})
}

func (r *Registry) publishToolEvent(eventType telemetry.EventType, callID, toolName string, rich touch.RichFields, timestamp time.Time, res *builtin.Result, err error, attempt int, metadata map[string]any) {
	if r.telemetryHub == nil {
		return
	}
	payload := map[string]any{
		"toolName":      toolName,
		"operationType": rich.OperationType,
		"filePath":      rich.FilePath,
		"ranges":        rich.Ranges,
		"command":       rich.Command,
		"addedLines":    rich.AddedLines,
		"removedLines":  rich.RemovedLines,
		"expiresAt":     timestamp.Add(touch.TTLForOperation(rich.OperationType)),
	}
	if rich.Description != "" {
		payload["description"] = rich.Description
	}
	if attempt > 0 {
		payload["attempt"] = attempt
	}
	if res != nil {
		payload["success"] = res.Success
		if strings.TrimSpace(toolName) == "browser_stream" {
			if rawEvents, ok := res.Data["events"]; ok {
				summary := summarizeBrowserEvents(rawEvents, 25)
				if len(summary) > 0 {
					payload["browser_events"] = summary
				}
			}
			if count, ok := res.Data["event_count"]; ok {
				payload["browser_event_count"] = count
			}
		}
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	if metadata != nil {
		if stack, ok := metadata["panic_stack"].(string); ok && strings.TrimSpace(stack) != "" {
			payload["panic_stack"] = stack
		}
		if value, ok := metadata["panic_value"]; ok {
			payload["panic_value"] = fmt.Sprintf("%v", value)
		}
	}
	r.telemetryHub.Publish(telemetry.Event{
		Type:      eventType,
		SessionID: r.telemetrySession,
		TaskID:    callID,
		Timestamp: timestamp,
		Data:      payload,
	})
}

func eventTypeForResult(res *builtin.Result, err error) telemetry.EventType {
	if err != nil || (res != nil && !res.Success) {
		return telemetry.EventToolFailed
	}
	return telemetry.EventToolCompleted
}

func toolCallIDFromParams(params map[string]any) string {
	if params != nil {
		if raw, ok := params[ToolCallIDParam]; ok {
			switch v := raw.(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			case fmt.Stringer:
				if val := strings.TrimSpace(v.String()); val != "" {
					return val
				}
			default:
				if val := strings.TrimSpace(fmt.Sprintf("%v", raw)); val != "" {
					return val
				}
			}
		}
	}
	return ulid.Make().String()
}

func sanitizeShellCommand(params map[string]any) string {
	if params == nil {
		return ""
	}
	if cmd, ok := params["command"].(string); ok {
		return strings.TrimSpace(cmd)
	}
	return ""
}

func truncateForTelemetry(value string) string {
	const limit = 512
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

func summarizeBrowserEvents(raw any, limit int) []map[string]any {
	if limit <= 0 {
		limit = 10
	}
	out := make([]map[string]any, 0, limit)
	switch events := raw.(type) {
	case []map[string]any:
		for _, event := range events {
			if len(out) >= limit {
				break
			}
			out = append(out, summarizeBrowserEvent(event))
		}
	case []any:
		for _, item := range events {
			if len(out) >= limit {
				break
			}
			event, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, summarizeBrowserEvent(event))
		}
	}
	return out
}

func summarizeBrowserEvent(event map[string]any) map[string]any {
	summary := map[string]any{
		"type":          event["type"],
		"state_version": event["state_version"],
		"timestamp":     event["timestamp"],
	}
	if frame, ok := event["frame"].(map[string]any); ok {
		summary["has_frame"] = true
		if width, ok := frame["width"]; ok {
			summary["frame_width"] = width
		}
		if height, ok := frame["height"]; ok {
			summary["frame_height"] = height
		}
		if format, ok := frame["format"]; ok {
			summary["frame_format"] = format
		}
	} else if event["frame"] != nil {
		summary["has_frame"] = true
	}
	if event["dom_diff"] != nil {
		summary["has_dom_diff"] = true
	}
	if event["accessibility_diff"] != nil {
		summary["has_accessibility_diff"] = true
	}
	if event["hit_test"] != nil {
		summary["has_hit_test"] = true
	}
	return summary
}

// ToOpenAIFunctions converts all tools to OpenAI function calling format
func (r *Registry) ToOpenAIFunctions() []map[string]any {
	tools := r.snapshotTools()
	functions := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		functions = append(functions, ToOpenAIFunction(t))
	}
	return functions
}

// ToOpenAIFunctionsFiltered converts only allowed tools to OpenAI function format.
// If allowed is empty, all tools are returned.
func (r *Registry) ToOpenAIFunctionsFiltered(allowed []string) []map[string]any {
	if len(allowed) == 0 {
		return r.ToOpenAIFunctions()
	}
	tools := r.snapshotTools()
	functions := make([]map[string]any, 0, len(allowed))
	for _, t := range tools {
		if IsToolAllowed(t.Name(), allowed) {
			functions = append(functions, ToOpenAIFunction(t))
		}
	}
	return functions
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

func (r *Registry) snapshotTools() []Tool {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

func (r *Registry) snapshotToolMap() map[string]Tool {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make(map[string]Tool, len(r.tools))
	for name, t := range r.tools {
		tools[name] = t
	}
	return tools
}

// LoadExternal loads external plugin tools from a directory
func (r *Registry) LoadExternal(pluginDir string) error {
	tools, err := external.DiscoverPlugins(pluginDir)
	if err != nil {
		return fmt.Errorf("failed to discover plugins in %s: %w", pluginDir, err)
	}

	for _, tool := range tools {
		r.Register(tool)
	}

	return nil
}

// LoadExternalFromMultipleDirs loads external plugins from multiple directories
func (r *Registry) LoadExternalFromMultipleDirs(dirs []string) error {
	tools, err := external.DiscoverFromMultipleDirs(dirs)
	if err != nil {
		return fmt.Errorf("failed to discover plugins: %w", err)
	}

	for _, tool := range tools {
		r.Register(tool)
	}

	return nil
}

// LoadDefaultPlugins loads plugins from standard locations
func (r *Registry) LoadDefaultPlugins() error {
	dirs := []string{}

	// User plugin directory: ~/.loom/plugins/
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPluginDir := filepath.Join(homeDir, ".loom", "plugins")
		dirs = append(dirs, userPluginDir)
	}

	// Project plugin directory: ./.loom/plugins/
	cwd, err := os.Getwd()
	if err == nil {
		projectPluginDir := filepath.Join(cwd, ".loom", "plugins")
		dirs = append(dirs, projectPluginDir)
	}

	// Built-in plugin directory: ./plugins/
	if cwd != "" {
		builtinPluginDir := filepath.Join(cwd, "plugins")
		dirs = append(dirs, builtinPluginDir)
	}

	return r.LoadExternalFromMultipleDirs(dirs)
}
