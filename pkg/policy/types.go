package policy

import "time"

// Decision is the outcome of evaluating a tool call against the rule set.
type Decision string

const (
	DecisionAllow   Decision = "allow"
	DecisionDeny    Decision = "deny"
	DecisionConfirm Decision = "confirm"
)

// ActionType groups tool calls the way rules target them. A rule's
// ActionType is matched against a ToolCall's Category, inferred from the
// tool name when the caller doesn't set one explicitly.
type ActionType string

const (
	ActionFileRead  ActionType = "file_read"
	ActionFileWrite ActionType = "file_write"
	ActionShell     ActionType = "shell_command"
	ActionSearch    ActionType = "search"
	ActionNetwork   ActionType = "network"
	ActionGit       ActionType = "git"
	ActionPTY       ActionType = "pty"
	ActionAny       ActionType = "*"
)

// Rule is one entry in the ordered policy list. The first rule whose
// ActionType and TargetPattern both match a call wins; nothing after it is
// consulted.
type Rule struct {
	ActionType    ActionType `json:"action_type" yaml:"action_type"`
	TargetPattern string     `json:"target_pattern,omitempty" yaml:"target_pattern,omitempty"`
	Decision      Decision   `json:"decision" yaml:"decision"`
}

// Policy is an ordered rule list plus the decision to fall back to when no
// rule matches.
type Policy struct {
	Name    string   `json:"name" yaml:"name"`
	Rules   []Rule   `json:"rules" yaml:"rules"`
	Default Decision `json:"default" yaml:"default"`
}

// ToolCall is a tool invocation awaiting a policy decision.
type ToolCall struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	SessionID string         `json:"session_id"`
	Category  ActionType     `json:"category,omitempty"`
}

// EvaluationResult is the outcome of Evaluate.
type EvaluationResult struct {
	Decision    Decision `json:"decision"`
	MatchedRule string   `json:"matched_rule,omitempty"`
	Remembered  bool     `json:"remembered"`
}

// RememberedChoice is a confirm-path answer the user asked to persist, so
// the same tool call (or pattern) skips confirmation on future runs.
type RememberedChoice struct {
	ActionType    ActionType `json:"action_type"`
	TargetPattern string     `json:"target_pattern"`
	Decision      Decision   `json:"decision"`
	CreatedAt     time.Time  `json:"created_at"`
}
