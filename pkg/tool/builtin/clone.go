package builtin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/relaycode/loom/pkg/giturl"
)

// CloneRepositoryTool clones a git repository into the workspace via go-git.
// Every URL passes the configured clone policy first: scheme and host
// allow/deny lists and, when enabled, DNS-resolved private-network blocking,
// so an agent can't be steered into cloning from a link-local or internal
// address.
type CloneRepositoryTool struct {
	workDirAware
	Policy giturl.ClonePolicy
}

func (t *CloneRepositoryTool) Name() string { return "clone_repository" }

func (t *CloneRepositoryTool) Description() string {
	return "Clone a git repository into the workspace. The URL is checked against the clone policy (allowed schemes/hosts, private-network blocking) before anything touches the network."
}

func (t *CloneRepositoryTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"url": {
				Type:        "string",
				Description: "Repository URL (https, ssh, or scp-style if the policy allows).",
			},
			"directory": {
				Type:        "string",
				Description: "Target directory relative to the workspace. Defaults to the repository name.",
			},
			"branch": {
				Type:        "string",
				Description: "Branch to check out instead of the default.",
			},
			"depth": {
				Type:        "integer",
				Description: "Shallow-clone depth. 0 clones full history.",
			},
		},
		Required: []string{"url"},
	}
}

func (t *CloneRepositoryTool) Execute(params map[string]any) (*Result, error) {
	rawURL, _ := params["url"].(string)
	rawURL = strings.TrimSpace(rawURL)

	ctx, cancel := t.execContext()
	defer cancel()

	if err := giturl.ValidateCloneURLWithContext(ctx, t.Policy, rawURL); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("clone policy rejected %q: %v", rawURL, err)}, nil
	}

	dir, _ := params["directory"].(string)
	if strings.TrimSpace(dir) == "" {
		dir = repoNameFromURL(rawURL)
	}
	target, err := resolvePath(t.workDir, dir)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	if entries, err := os.ReadDir(target); err == nil && len(entries) > 0 {
		return &Result{Success: false, Error: fmt.Sprintf("target directory %s is not empty", dir)}, nil
	}

	opts := &git.CloneOptions{URL: rawURL}
	if branch, _ := params["branch"].(string); strings.TrimSpace(branch) != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(strings.TrimSpace(branch))
		opts.SingleBranch = true
	}
	if depth, ok := params["depth"].(float64); ok && depth > 0 {
		opts.Depth = int(depth)
	}

	repo, err := git.PlainCloneContext(ctx, target, false, opts)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("clone failed: %v", err)}, nil
	}

	head := ""
	if ref, err := repo.Head(); err == nil {
		head = ref.Hash().String()
	}

	return &Result{
		Success: true,
		Data: map[string]any{
			"directory": dir,
			"url":       rawURL,
			"head":      head,
		},
	}, nil
}

// repoNameFromURL derives a checkout directory name from the last path
// segment of a clone URL, with the .git suffix dropped.
func repoNameFromURL(raw string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(raw, "/"), ".git")
	if i := strings.LastIndexAny(trimmed, "/:"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return "repository"
	}
	return filepath.Base(trimmed)
}
