package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Prompter is the abstract capability the engine uses to ask a human for a
// confirm decision. The coordinator supplies an implementation backed by
// whatever surface is driving the session (terminal prompt, chat UI, ...);
// the engine never talks to a terminal directly.
type Prompter interface {
	Confirm(ctx context.Context, call ToolCall, rule Rule) (decision Decision, remember bool, err error)
}

// Engine evaluates tool calls against an ordered policy: the first rule
// whose ActionType and TargetPattern match wins, falling through to the
// policy default when nothing matches.
type Engine struct {
	mu         sync.RWMutex
	policy     *Policy
	prompter   Prompter
	remembered []RememberedChoice
	storePath  string
}

// NewEngine creates an engine with the given policy and confirm prompter.
// storePath, if non-empty, is where remembered confirm answers persist
// across restarts; pass "" to keep them in-memory only.
func NewEngine(policy *Policy, prompter Prompter, storePath string) *Engine {
	if policy == nil {
		policy = DefaultPolicy()
	}
	e := &Engine{policy: policy, prompter: prompter, storePath: storePath}
	if storePath != "" {
		e.loadRemembered()
	}
	return e
}

func (e *Engine) loadRemembered() {
	data, err := os.ReadFile(e.storePath)
	if err != nil {
		return
	}
	var choices []RememberedChoice
	if err := json.Unmarshal(data, &choices); err == nil {
		e.remembered = choices
	}
}

func (e *Engine) saveRemembered() error {
	if e.storePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.storePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(e.remembered, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(e.storePath, data, 0o644)
}

// SetPolicy replaces the active policy.
func (e *Engine) SetPolicy(policy *Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = policy
}

// GetPolicy returns the active policy.
func (e *Engine) GetPolicy() *Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// Evaluate decides whether a tool call is allowed, denied, or needs
// confirmation, consulting remembered answers before the rule list and
// invoking the prompter (if any) on a confirm match.
func (e *Engine) Evaluate(ctx context.Context, call ToolCall) (EvaluationResult, error) {
	if call.Category == "" {
		call.Category = categorizeToolCall(call)
	}

	e.mu.RLock()
	policy := e.policy
	remembered := append([]RememberedChoice(nil), e.remembered...)
	e.mu.RUnlock()

	target := targetOf(call)

	for _, r := range remembered {
		if actionMatches(r.ActionType, call.Category) && patternMatches(r.TargetPattern, target) {
			return EvaluationResult{Decision: r.Decision, MatchedRule: "remembered", Remembered: true}, nil
		}
	}

	for _, rule := range policy.Rules {
		if !actionMatches(rule.ActionType, call.Category) {
			continue
		}
		if !patternMatches(rule.TargetPattern, target) {
			continue
		}

		if rule.Decision != DecisionConfirm || e.prompter == nil {
			return EvaluationResult{Decision: rule.Decision, MatchedRule: ruleLabel(rule)}, nil
		}

		decision, remember, err := e.prompter.Confirm(ctx, call, rule)
		if err != nil {
			return EvaluationResult{}, err
		}
		if remember {
			e.remember(rule.ActionType, target, decision)
		}
		return EvaluationResult{Decision: decision, MatchedRule: ruleLabel(rule)}, nil
	}

	return EvaluationResult{Decision: policy.Default, MatchedRule: "default"}, nil
}

func (e *Engine) remember(actionType ActionType, target string, decision Decision) {
	e.mu.Lock()
	e.remembered = append(e.remembered, RememberedChoice{
		ActionType:    actionType,
		TargetPattern: target,
		Decision:      decision,
	})
	choices := append([]RememberedChoice(nil), e.remembered...)
	e.mu.Unlock()

	if e.storePath != "" {
		e.mu.Lock()
		e.remembered = choices
		_ = e.saveRemembered()
		e.mu.Unlock()
	}
}

func ruleLabel(r Rule) string {
	if r.TargetPattern == "" {
		return string(r.ActionType)
	}
	return string(r.ActionType) + ":" + r.TargetPattern
}

func actionMatches(ruleType, callCategory ActionType) bool {
	return ruleType == ActionAny || ruleType == callCategory
}

// targetOf extracts the string a rule's TargetPattern matches against: a
// file path for file operations, the raw command line for shell calls.
func targetOf(call ToolCall) string {
	if path, ok := call.Input["path"].(string); ok {
		return path
	}
	if path, ok := call.Input["file_path"].(string); ok {
		return path
	}
	if cmd, ok := call.Input["command"].(string); ok {
		return cmd
	}
	if url, ok := call.Input["url"].(string); ok {
		return url
	}
	return ""
}

func patternMatches(pattern, target string) bool {
	if pattern == "" {
		return true
	}
	return matchPathPattern(pattern, target) || matchGlob(pattern, target)
}

// categorizeToolCall infers an ActionType from a tool name when the caller
// doesn't set Category explicitly.
func categorizeToolCall(call ToolCall) ActionType {
	name := strings.ToLower(call.Name)

	switch {
	case strings.Contains(name, "pty") || strings.Contains(name, "session"):
		return ActionPTY
	case strings.Contains(name, "read") || strings.Contains(name, "cat") || strings.Contains(name, "view"):
		return ActionFileRead
	case strings.Contains(name, "write") || strings.Contains(name, "edit") || strings.Contains(name, "create"):
		return ActionFileWrite
	case strings.Contains(name, "shell") || strings.Contains(name, "bash") || strings.Contains(name, "exec") || name == "run_shell":
		return ActionShell
	case strings.Contains(name, "search") || strings.Contains(name, "grep") || strings.Contains(name, "find") || strings.Contains(name, "glob"):
		return ActionSearch
	case strings.Contains(name, "git"):
		return ActionGit
	case strings.Contains(name, "fetch") || strings.Contains(name, "http") || strings.Contains(name, "curl") || strings.Contains(name, "request"):
		return ActionNetwork
	}
	return ActionAny
}

// matchPathPattern matches a path against a glob pattern, also accepting
// directory-prefix patterns like "/tmp/*".
func matchPathPattern(pattern, path string) bool {
	if path == "" {
		return false
	}
	if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		dir := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, dir+"/") {
			return true
		}
	}
	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}
	return false
}

// matchGlob matches a shell-style glob (only "*" and "?" wildcards) against
// an arbitrary string, such as a full shell command line.
func matchGlob(pattern, s string) bool {
	regexPattern := "^" + regexp.QuoteMeta(pattern) + "$"
	regexPattern = strings.ReplaceAll(regexPattern, "\\*", ".*")
	regexPattern = strings.ReplaceAll(regexPattern, "\\?", ".")
	matched, _ := regexp.MatchString(regexPattern, s)
	return matched
}

// DefaultPolicy mirrors the conservative defaults a fresh install ships
// with: reads and searches run unattended, writes and shell commands need
// confirmation except for a well-known safe set, and secrets/destructive
// patterns are denied outright ahead of the confirm rules below them.
func DefaultPolicy() *Policy {
	return &Policy{
		Name: "default",
		Rules: []Rule{
			{ActionType: ActionAny, TargetPattern: "*.env", Decision: DecisionDeny},
			{ActionType: ActionAny, TargetPattern: "*secret*", Decision: DecisionDeny},
			{ActionType: ActionShell, TargetPattern: "rm -rf*", Decision: DecisionDeny},
			{ActionType: ActionShell, TargetPattern: "*--force*", Decision: DecisionConfirm},
			{ActionType: ActionFileRead, Decision: DecisionAllow},
			{ActionType: ActionSearch, Decision: DecisionAllow},
			{ActionType: ActionFileWrite, TargetPattern: "*.log", Decision: DecisionAllow},
			{ActionType: ActionFileWrite, TargetPattern: "/tmp/*", Decision: DecisionAllow},
			{ActionType: ActionFileWrite, Decision: DecisionConfirm},
			{ActionType: ActionShell, TargetPattern: "go test *", Decision: DecisionAllow},
			{ActionType: ActionShell, TargetPattern: "go build *", Decision: DecisionAllow},
			{ActionType: ActionShell, TargetPattern: "git status", Decision: DecisionAllow},
			{ActionType: ActionShell, TargetPattern: "git diff *", Decision: DecisionAllow},
			{ActionType: ActionShell, TargetPattern: "git log *", Decision: DecisionAllow},
			{ActionType: ActionShell, Decision: DecisionConfirm},
			{ActionType: ActionGit, Decision: DecisionConfirm},
			{ActionType: ActionPTY, Decision: DecisionAllow},
		},
		Default: DecisionConfirm,
	}
}
