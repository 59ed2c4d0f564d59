// Package context loads project-level orchestration context (AGENTS.md)
// and the sub-agent specs it declares. Same-name filesystem entries
// override embedded defaults, the same rule pkg/config applies to the
// YAML agent configs.
package context

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/relaycode/loom/pkg/conversation"
)

// ProjectContext holds parsed AGENTS.md content.
type ProjectContext struct {
	Summary    string
	Rules      []string
	Guidelines []string
	SubAgents  map[string]*SubAgentSpec
	Loaded     bool
	RawContent string
}

// SubAgentSpec describes a sub-agent declared in AGENTS.md: a lightweight,
// project-local analogue of an agent config entry used by the
// agent-to-agent handoff tool.
type SubAgentSpec struct {
	Name         string
	Description  string
	Model        string
	Tools        []string
	MaxCost      float64
	Instructions string
}

// Loader reads and parses AGENTS.md from a project root.
type Loader struct {
	rootPath string
}

// NewLoader creates a context loader rooted at rootPath.
func NewLoader(rootPath string) *Loader {
	return &Loader{rootPath: rootPath}
}

// Load reads AGENTS.md if present; a missing file is not an error.
func (l *Loader) Load() (*ProjectContext, error) {
	agentsPath := filepath.Join(l.rootPath, "AGENTS.md")
	if _, err := os.Stat(agentsPath); os.IsNotExist(err) {
		return &ProjectContext{Loaded: false}, nil
	}

	content, err := os.ReadFile(agentsPath)
	if err != nil {
		return nil, err
	}

	ctx := &ProjectContext{
		Loaded:     true,
		SubAgents:  make(map[string]*SubAgentSpec),
		RawContent: string(content),
	}
	return l.parseContent(string(content), ctx)
}

func (l *Loader) parseContent(content string, ctx *ProjectContext) (*ProjectContext, error) {
	parser := newAgentsParser(ctx)
	for _, line := range strings.Split(content, "\n") {
		parser.processLine(strings.TrimSpace(line))
	}
	ctx.Summary = strings.TrimSpace(ctx.Summary)
	return ctx, nil
}

func extractValue(line, label string) string {
	parts := strings.SplitN(line, label, 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// InjectIntoConversation adds the parsed project context as a leading
// system message, ahead of the planner's own system prompt.
func (l *Loader) InjectIntoConversation(conv *conversation.Conversation, ctx *ProjectContext) {
	if ctx == nil || !ctx.Loaded {
		return
	}
	message := buildContextSystemMessage(ctx)
	if strings.TrimSpace(message) == "" {
		return
	}
	conv.AddSystemMessage(message)
}

func buildContextSystemMessage(ctx *ProjectContext) string {
	var b strings.Builder
	b.WriteString("# Project Context\n\n")

	hasStructured := ctx.Summary != "" || len(ctx.Rules) > 0 || len(ctx.Guidelines) > 0
	if hasStructured {
		if ctx.Summary != "" {
			b.WriteString("Summary: " + ctx.Summary + "\n\n")
		}
		if len(ctx.Rules) > 0 {
			b.WriteString("Development rules:\n")
			for _, rule := range ctx.Rules {
				b.WriteString("- " + rule + "\n")
			}
			b.WriteString("\n")
		}
		if len(ctx.Guidelines) > 0 {
			b.WriteString("Agent guidelines:\n")
			for _, guideline := range ctx.Guidelines {
				b.WriteString("- " + guideline + "\n")
			}
		}
	} else if strings.TrimSpace(ctx.RawContent) != "" {
		b.WriteString("## From AGENTS.md\n\n")
		b.WriteString(ctx.RawContent)
	}
	return b.String()
}
