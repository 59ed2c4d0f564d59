package builtin

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitStatusTool shows git working tree status, read via go-git rather than
// shelling out to the git binary.
type GitStatusTool struct{ workDirAware }

func (t *GitStatusTool) Name() string {
	return "git_status"
}

func (t *GitStatusTool) Description() string {
	return "Show git working tree status including modified, staged, and untracked files. Use this to see what changes have been made before committing or to check repository state."
}

func (t *GitStatusTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type:       "object",
		Properties: map[string]PropertySchema{},
		Required:   []string{},
	}
}

func (t *GitStatusTool) Execute(params map[string]any) (*Result, error) {
	repo, err := t.openRepo()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to open worktree: %v", err)}, nil
	}
	status, err := wt.Status()
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to read status: %v", err)}, nil
	}

	paths := make([]string, 0, len(status))
	for path := range status {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	entries := make([]map[string]any, 0, len(paths))
	for _, path := range paths {
		fs := status[path]
		entries = append(entries, map[string]any{
			"path":     path,
			"staging":  string(fs.Staging),
			"worktree": string(fs.Worktree),
		})
	}

	return &Result{
		Success: true,
		Data: map[string]any{
			"clean":   status.IsClean(),
			"entries": entries,
			"count":   len(entries),
		},
	}, nil
}

// GitDiffTool shows a unified diff of working-tree or staged changes,
// comparing HEAD blob content against the worktree or index without
// shelling out to `git diff`.
type GitDiffTool struct{ workDirAware }

func (t *GitDiffTool) Name() string {
	return "git_diff"
}

func (t *GitDiffTool) Description() string {
	return "Show a unified diff of changes. Defaults to unstaged working-tree changes; set staged=true to compare the index against HEAD instead. Use this to review code changes before committing."
}

func (t *GitDiffTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"staged": {
				Type:        "boolean",
				Description: "Compare the staged index against HEAD instead of the working tree",
				Default:     false,
			},
			"file": {
				Type:        "string",
				Description: "Limit the diff to a single repository-relative file path",
			},
		},
		Required: []string{},
	}
}

func (t *GitDiffTool) Execute(params map[string]any) (*Result, error) {
	staged := false
	if v, ok := params["staged"].(bool); ok {
		staged = v
	}
	var onlyFile string
	if f, ok := params["file"].(string); ok {
		onlyFile = strings.TrimSpace(f)
	}

	repo, err := t.openRepo()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to open worktree: %v", err)}, nil
	}
	status, err := wt.Status()
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to read status: %v", err)}, nil
	}

	paths := make([]string, 0, len(status))
	for path, fs := range status {
		if onlyFile != "" && path != onlyFile {
			continue
		}
		if staged && fs.Staging == git.Unmodified {
			continue
		}
		if !staged && fs.Worktree == git.Unmodified {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var combined strings.Builder
	truncated := false
	for _, path := range paths {
		oldContent, err := t.headFileContent(repo, path)
		if err != nil {
			return &Result{Success: false, Error: fmt.Sprintf("reading HEAD content for %s: %v", path, err)}, nil
		}
		var newContent string
		if staged {
			newContent, err = t.indexFileContent(repo, path)
		} else {
			newContent, err = t.worktreeFileContent(wt.Filesystem.Root(), path)
		}
		if err != nil {
			return &Result{Success: false, Error: fmt.Sprintf("reading current content for %s: %v", path, err)}, nil
		}

		diff := generateDiff(path, oldContent, newContent)
		combined.WriteString(diff.UnifiedDiff)
		if !strings.HasSuffix(diff.UnifiedDiff, "\n") {
			combined.WriteString("\n")
		}

		if t.maxOutputBytes > 0 && combined.Len() > t.maxOutputBytes {
			truncated = true
			break
		}
	}

	data := map[string]any{
		"diff":   combined.String(),
		"files":  paths,
		"staged": staged,
	}
	if truncated {
		data["diff_truncated"] = true
	}
	result := &Result{Success: true, Data: data}
	if truncated {
		result.ShouldAbridge = true
		result.DisplayData = data
	}
	return result, nil
}

func (t *GitDiffTool) worktreeFileContent(root, path string) (string, error) {
	content, err := os.ReadFile(joinRepoPath(root, path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(content), nil
}

func (t *GitDiffTool) headFileContent(repo *git.Repository, path string) (string, error) {
	return headBlobContent(repo, path)
}

func (t *GitDiffTool) indexFileContent(repo *git.Repository, path string) (string, error) {
	return indexBlobContent(repo, path)
}

// GitLogTool shows git commit history via go-git's commit walker.
type GitLogTool struct{ workDirAware }

func (t *GitLogTool) Name() string {
	return "git_log"
}

func (t *GitLogTool) Description() string {
	return "Show git commit history with a configurable count. Defaults to the last 10 commits. Use this to review recent changes, find when features were added, or trace bug origins."
}

func (t *GitLogTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"count": {
				Type:        "integer",
				Description: "Number of commits to show",
				Default:     10,
			},
		},
		Required: []string{},
	}
}

func (t *GitLogTool) Execute(params map[string]any) (*Result, error) {
	count := parseInt(params["count"], 10)
	if count <= 0 {
		count = 10
	}

	repo, err := t.openRepo()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	head, err := repo.Head()
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to resolve HEAD: %v", err)}, nil
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("failed to walk commit log: %v", err)}, nil
	}
	defer iter.Close()

	commits := make([]map[string]any, 0, count)
	err = iter.ForEach(func(c *object.Commit) error {
		if len(commits) >= count {
			return io.EOF
		}
		commits = append(commits, map[string]any{
			"hash":    c.Hash.String(),
			"message": strings.TrimSpace(c.Message),
			"author":  c.Author.Name,
			"email":   c.Author.Email,
			"time":    c.Author.When.Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil && err != io.EOF {
		return &Result{Success: false, Error: fmt.Sprintf("failed to walk commit log: %v", err)}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]any{
			"commits": commits,
			"count":   len(commits),
		},
	}, nil
}

func (t *workDirAware) openRepo() (*git.Repository, error) {
	repoPath := strings.TrimSpace(t.workDir)
	if repoPath == "" {
		repoPath = "."
	}
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	return repo, nil
}

func headBlobContent(repo *git.Repository, path string) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", nil // unborn HEAD: treat as no prior content
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", err
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", err
	}
	f, err := tree.File(path)
	if err != nil {
		return "", nil // new file, no HEAD content
	}
	return f.Contents()
}

func indexBlobContent(repo *git.Repository, path string) (string, error) {
	idx, err := repo.Storer.Index()
	if err != nil {
		return "", err
	}
	entry, err := idx.Entry(path)
	if err != nil {
		return "", nil // not staged
	}
	blob, err := repo.BlobObject(entry.Hash)
	if err != nil {
		return "", err
	}
	reader, err := blob.Reader()
	if err != nil {
		return "", err
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func joinRepoPath(root, path string) string {
	if root == "" {
		return path
	}
	return strings.TrimSuffix(root, "/") + "/" + strings.TrimPrefix(path, "/")
}
