package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReviewGenerator writes the review phase's durable record: what was
// checked, what was found, how many iterations it took, and the final
// verdict - linked back to the planning and execution artifacts it judged.
type ReviewGenerator struct {
	outputDir string
}

// NewReviewGenerator creates a generator writing into outputDir.
func NewReviewGenerator(outputDir string) *ReviewGenerator {
	return &ReviewGenerator{outputDir: outputDir}
}

// Generate renders the artifact to markdown, writes it as
// YYYY-MM-DD-{feature}-review.md, and stamps the artifact metadata.
func (g *ReviewGenerator) Generate(artifact *ReviewArtifact) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	now := time.Now()
	filePath := filepath.Join(g.outputDir, fmt.Sprintf("%s-%s-review.md", now.Format("2006-01-02"), artifact.Feature))

	if err := os.WriteFile(filePath, []byte(g.render(artifact)), 0644); err != nil {
		return "", fmt.Errorf("failed to write review artifact: %w", err)
	}

	artifact.FilePath = filePath
	artifact.UpdatedAt = now
	return filePath, nil
}

func (g *ReviewGenerator) render(artifact *ReviewArtifact) string {
	doc := &mdDoc{}

	doc.title("Review: " + formatFeatureName(artifact.Feature))
	doc.field("Planning Artifact", fmt.Sprintf("[%s](%s)",
		filepath.Base(artifact.PlanningArtifactPath), crossDirLink("plans", artifact.PlanningArtifactPath)))
	doc.field("Execution Artifact", fmt.Sprintf("[%s](%s)",
		filepath.Base(artifact.ExecutionArtifactPath), crossDirLink("execution", artifact.ExecutionArtifactPath)))
	doc.field("Reviewed", artifact.ReviewedAt.Format(time.RFC3339))
	doc.field("Reviewer Model", artifact.ReviewerModel)
	doc.field("Status", formatStatus(artifact.Status))
	doc.blank()

	g.renderStrategy(doc, artifact.ValidationStrategy)
	g.renderResults(doc, artifact.ValidationResults)
	g.renderIssues(doc, artifact.IssuesFound)
	g.renderIterations(doc, artifact.Iterations)
	g.renderImprovements(doc, artifact.OpportunisticImprovements)
	g.renderApproval(doc, artifact.Approval)

	return doc.String()
}

func (g *ReviewGenerator) renderStrategy(doc *mdDoc, strategy ValidationStrategy) {
	doc.section("Validation Strategy")
	if len(strategy.CriticalPath) > 0 {
		doc.line("### Critical Path Validation")
		for i, item := range strategy.CriticalPath {
			doc.line("%d. %s", i+1, item)
		}
		doc.blank()
	}
	if len(strategy.HighRiskAreas) > 0 {
		doc.line("### High-Risk Areas (from execution artifact)")
		for _, area := range strategy.HighRiskAreas {
			doc.line("- %s", area)
		}
		doc.blank()
	}
}

func (g *ReviewGenerator) renderResults(doc *mdDoc, results []ValidationResult) {
	if len(results) == 0 {
		return
	}
	doc.section("Validation Results")
	for _, result := range results {
		doc.subsection(result.Category + " " + strings.ToUpper(formatStatus(result.Status)))
		for _, check := range result.Checks {
			doc.line("- %s %s", statusMark(check.Status), check.Name)
			if check.Description != "" {
				doc.line("  - %s", check.Description)
			}
			if check.Issue != nil {
				doc.line("  - **Issue:** %s", check.Issue.Description)
				if check.Issue.Fix != "" {
					doc.line("  - **Fix Required:** %s", check.Issue.Fix)
				}
			}
		}
		doc.blank()
	}
}

// renderIssues groups findings by severity tier, most consequential first.
func (g *ReviewGenerator) renderIssues(doc *mdDoc, issues []Issue) {
	if len(issues) == 0 {
		return
	}
	doc.section("Issues Found")

	tiers := []struct {
		severity string
		heading  string
		terse    bool
	}{
		{"critical", "Critical Issues (Must Fix)", false},
		{"quality", "Quality Concerns (Should Fix)", false},
		{"nit", "Nits (Future Work)", true},
	}

	for _, tier := range tiers {
		matched := issuesWithSeverity(issues, tier.severity)
		if len(matched) == 0 {
			continue
		}
		doc.subsection(fmt.Sprintf("%s - %d found", tier.heading, len(matched)))
		for _, issue := range matched {
			if tier.terse {
				doc.line("%d. %s", issue.ID, issue.Description)
				continue
			}
			doc.line("%d. **%s** (`%s`)", issue.ID, issue.Title, issue.Location)
			doc.line("   - %s", issue.Description)
			if issue.Fix != "" {
				doc.line("   - Fix: %s", issue.Fix)
			}
			doc.blank()
		}
		doc.blank()
	}
}

func (g *ReviewGenerator) renderIterations(doc *mdDoc, iterations []ReviewIteration) {
	if len(iterations) == 0 {
		return
	}
	doc.section("Review Iterations")
	for _, iteration := range iterations {
		doc.subsection(fmt.Sprintf("Iteration %d (%s)", iteration.Number, formatStatus(iteration.Status)))
		doc.line("- Found %d issues", iteration.IssuesFound)
		if iteration.Notes != "" {
			doc.line("- %s", iteration.Notes)
		}
		doc.blank()
	}
}

func (g *ReviewGenerator) renderImprovements(doc *mdDoc, improvements []Improvement) {
	if len(improvements) == 0 {
		return
	}
	doc.section("Opportunistic Improvements")
	doc.line("Noticed during review but unrelated to this feature; candidates for future work or separate PRs.")
	doc.blank()

	byCategory := make(map[string][]Improvement)
	for _, improvement := range improvements {
		byCategory[improvement.Category] = append(byCategory[improvement.Category], improvement)
	}
	for category, group := range byCategory {
		doc.subsection(category)
		for i, improvement := range group {
			doc.line("%d. **%s**", i+1, improvement.Title)
			doc.line("   - **Observation:** %s", improvement.Observation)
			doc.line("   - **Suggestion:** %s", improvement.Suggestion)
			doc.line("   - **Impact:** %s", improvement.Impact)
			if len(improvement.Files) > 0 {
				doc.line("   - **Files:** %s", strings.Join(improvement.Files, ", "))
			}
			doc.blank()
		}
	}
}

func (g *ReviewGenerator) renderApproval(doc *mdDoc, approval *Approval) {
	if approval == nil {
		return
	}
	doc.section("Approval")
	doc.field("Status", formatStatus(approval.Status))
	if len(approval.RemainingWork) > 0 {
		doc.field("Remaining Work", fmt.Sprintf("%d nits logged as future enhancements", len(approval.RemainingWork)))
	}
	doc.field("Ready for PR", fmt.Sprintf("%v", approval.ReadyForPR))
	doc.blank()
	doc.field("Summary", approval.Summary)
}

// crossDirLink links a sibling artifact directory's file from the reviews
// directory.
func crossDirLink(toDir, targetPath string) string {
	return filepath.Join("..", toDir, filepath.Base(targetPath))
}

// issuesWithSeverity filters issues to one severity tier.
func issuesWithSeverity(issues []Issue, severity string) []Issue {
	var filtered []Issue
	for _, issue := range issues {
		if strings.EqualFold(issue.Severity, severity) {
			filtered = append(filtered, issue)
		}
	}
	return filtered
}
