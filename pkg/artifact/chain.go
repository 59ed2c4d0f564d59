package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Chain links one feature's phase artifacts (planning, execution, review,
// and the archived PR document) so any phase can navigate to the others.
type Chain struct {
	Feature           string
	PlanningArtifact  string
	ExecutionArtifact string
	ReviewArtifact    string
	PRDocument        string
	IsArchived        bool
	ArchivePath       string // Archive directory, when archived
}

// chainSlots maps each phase to the active directory and filename suffix
// its artifact lives under.
var chainSlots = []struct {
	dir    string
	suffix string
}{
	{"plans", "planning"},
	{"execution", "execution"},
	{"reviews", "review"},
}

// ChainManager discovers and maintains artifact chains under one docs
// root.
type ChainManager struct {
	docsRoot string
}

// NewChainManager creates a manager rooted at docsRoot.
func NewChainManager(docsRoot string) *ChainManager {
	return &ChainManager{docsRoot: docsRoot}
}

// FindChain locates a feature's artifacts, checking the active phase
// directories first and the archive second.
func (m *ChainManager) FindChain(feature string) (*Chain, error) {
	chain := &Chain{Feature: feature}

	var paths [3]string
	found := false
	for i, slot := range chainSlots {
		paths[i] = m.findActiveArtifact(slot.dir, feature, slot.suffix)
		found = found || paths[i] != ""
	}
	if found {
		chain.PlanningArtifact, chain.ExecutionArtifact, chain.ReviewArtifact = paths[0], paths[1], paths[2]
		return chain, nil
	}

	if archivePath := m.findInArchive(feature); archivePath != "" {
		chain.IsArchived = true
		chain.ArchivePath = archivePath
		chain.PlanningArtifact = filepath.Join(archivePath, "planning.md")
		chain.ExecutionArtifact = filepath.Join(archivePath, "execution.md")
		chain.ReviewArtifact = filepath.Join(archivePath, "review.md")
		if prFiles, _ := filepath.Glob(filepath.Join(archivePath, "pr-*.md")); len(prFiles) > 0 {
			chain.PRDocument = prFiles[0]
		}
		return chain, nil
	}

	return nil, fmt.Errorf("no artifact chain found for feature: %s", feature)
}

// UpdateLinks refreshes the navigation links inside the chain's artifact
// files, e.g. after archiving moved them. Only the planning artifact needs
// rewriting today: the execution tracker rewrites its own links on every
// save, and the review generator writes its links at generation time.
func (m *ChainManager) UpdateLinks(chain *Chain) error {
	if chain.PlanningArtifact == "" || !fileExists(chain.PlanningArtifact) {
		return nil
	}
	if err := m.rewritePlanningLinks(chain); err != nil {
		return fmt.Errorf("failed to update planning links: %w", err)
	}
	return nil
}

// rewritePlanningLinks replaces the chain-navigation lines directly under
// the planning artifact's "# Planning:" title with a freshly generated set.
func (m *ChainManager) rewritePlanningLinks(chain *Chain) error {
	content, err := os.ReadFile(chain.PlanningArtifact)
	if err != nil {
		return err
	}

	var out []string
	inHeader := false
	for _, line := range strings.Split(string(content), "\n") {
		switch {
		case strings.HasPrefix(line, "# Planning:") && !inHeader:
			inHeader = true
			out = append(out, line, "")
			out = append(out, m.planningChainLinks(chain)...)
		case inHeader && isChainLinkLine(line):
			// Drop the previous generation's links.
		default:
			out = append(out, line)
		}
	}

	return os.WriteFile(chain.PlanningArtifact, []byte(strings.Join(out, "\n")), 0644)
}

func isChainLinkLine(line string) bool {
	return strings.HasPrefix(line, "**Chain:**") ||
		strings.HasPrefix(line, "**Next:**") ||
		strings.HasPrefix(line, "**Archived:**")
}

// planningChainLinks renders the navigation block for the planning
// artifact: sibling-relative links when archived together, cross-directory
// links while the chain is active.
func (m *ChainManager) planningChainLinks(chain *Chain) []string {
	var parts []string

	if chain.IsArchived {
		if chain.ExecutionArtifact != "" {
			parts = append(parts, "[Execution](execution.md)")
		}
		if chain.ReviewArtifact != "" {
			parts = append(parts, "[Review](review.md)")
		}
		if chain.PRDocument != "" {
			parts = append(parts, fmt.Sprintf("[PR](%s)", filepath.Base(chain.PRDocument)))
		}

		links := []string{}
		if len(parts) > 0 {
			links = append(links, "**Chain:** "+strings.Join(parts, " | "))
		}
		return append(links, "**Archived:** true")
	}

	if chain.ExecutionArtifact != "" {
		parts = append(parts, fmt.Sprintf("[Execution](../execution/%s)", filepath.Base(chain.ExecutionArtifact)))
	}
	if chain.ReviewArtifact != "" {
		parts = append(parts, fmt.Sprintf("[Review](../reviews/%s)", filepath.Base(chain.ReviewArtifact)))
	}
	if len(parts) == 0 {
		return nil
	}
	return []string{"**Next:** " + strings.Join(parts, " | ")}
}

// findActiveArtifact globs for *-{feature}-{suffix}.md in one phase
// directory.
func (m *ChainManager) findActiveArtifact(dir, feature, suffix string) string {
	pattern := filepath.Join(m.docsRoot, dir, fmt.Sprintf("*-%s-%s.md", feature, suffix))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// findInArchive walks archive/YYYY-MM directories for the feature.
func (m *ChainManager) findInArchive(feature string) string {
	archiveRoot := filepath.Join(m.docsRoot, "archive")
	entries, err := os.ReadDir(archiveRoot)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		featurePath := filepath.Join(archiveRoot, entry.Name(), feature)
		if _, err := os.Stat(featurePath); err == nil {
			return featurePath
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
