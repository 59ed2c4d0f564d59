package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PlanningGenerator writes the planning phase's durable record: the plan
// the coordinator will execute, persisted so a later phase (or a restarted
// session) can resume from the written contract instead of replaying
// conversation history.
type PlanningGenerator struct {
	outputDir string
}

// NewPlanningGenerator creates a generator writing into outputDir.
func NewPlanningGenerator(outputDir string) *PlanningGenerator {
	return &PlanningGenerator{outputDir: outputDir}
}

// Generate renders the artifact to markdown, writes it as
// YYYY-MM-DD-{feature}-planning.md, and stamps the artifact metadata.
func (g *PlanningGenerator) Generate(artifact *PlanningArtifact) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	now := time.Now()
	filePath := filepath.Join(g.outputDir, fmt.Sprintf("%s-%s-planning.md", now.Format("2006-01-02"), artifact.Feature))

	if err := os.WriteFile(filePath, []byte(g.render(artifact)), 0644); err != nil {
		return "", fmt.Errorf("failed to write planning artifact: %w", err)
	}

	artifact.FilePath = filePath
	artifact.CreatedAt = now
	artifact.UpdatedAt = now
	artifact.Status = "completed"
	return filePath, nil
}

// render lays the plan out in dispatch order: what the request is, the
// decisions that shape it, the contracts agents must honor, then the
// subtask breakdown the coordinator walks.
func (g *PlanningGenerator) render(artifact *PlanningArtifact) string {
	doc := &mdDoc{}

	// The "# Planning:" header is load-bearing: ChainManager keys its
	// link rewriting off it.
	doc.title("Planning: " + formatFeatureName(artifact.Feature))
	doc.field("Date", artifact.CreatedAt.Format("2006-01-02"))
	doc.field("Status", artifact.Status)
	doc.field("Type", "Planning Artifact")
	doc.blank()

	g.renderContext(doc, artifact.Context)
	g.renderDecisions(doc, artifact.Decisions)
	g.renderContracts(doc, artifact.CodeContracts)
	g.renderLayers(doc, artifact.LayerMap)
	g.renderTasks(doc, artifact.Tasks)
	g.renderCrossCutting(doc, artifact.CrossCuttingScope)

	return doc.String()
}

func (g *PlanningGenerator) renderContext(doc *mdDoc, ctx ContextSection) {
	doc.section("1. Context")
	doc.field("User Goal", ctx.UserGoal)
	doc.blank()
	doc.field("Architecture Style", ctx.ArchitectureStyle)
	doc.blank()
	doc.list("Existing Patterns Detected", ctx.ExistingPatterns)
	doc.codeList("Relevant Files Analyzed", ctx.RelevantFiles)
	if ctx.ResearchSummary != "" {
		doc.line("**Research Summary:**\n%s", ctx.ResearchSummary)
		doc.blank()
	}
	doc.list("Top Research Risks", ctx.ResearchRisks)
}

func (g *PlanningGenerator) renderDecisions(doc *mdDoc, decisions []ArchitectureDecision) {
	if len(decisions) == 0 {
		return
	}
	doc.section("2. Architecture Decisions")
	for i, decision := range decisions {
		doc.subsection(fmt.Sprintf("Decision %d: %s", i+1, decision.Title))
		doc.list("Alternatives Considered", decision.Alternatives)
		doc.line("**Rationale:**\n%s", decision.Rationale)
		doc.blank()
		doc.list("Trade-offs", decision.TradeOffs)
		if len(decision.LayerImpact) > 0 {
			doc.field("Layer Impact", strings.Join(decision.LayerImpact, ", "))
			doc.blank()
		}
	}
}

func (g *PlanningGenerator) renderContracts(doc *mdDoc, contracts []CodeContract) {
	if len(contracts) == 0 {
		return
	}
	doc.section("3. Code Contracts")
	for _, contract := range contracts {
		doc.subsection(fmt.Sprintf("%s Layer - `%s`", contract.Layer, contract.FilePath))
		if contract.Description != "" {
			doc.line("%s", contract.Description)
			doc.blank()
		}
		doc.codeBlock("go", contract.Code)
	}
}

func (g *PlanningGenerator) renderLayers(doc *mdDoc, layerMap LayerMap) {
	if len(layerMap.Layers) == 0 {
		return
	}
	doc.section("4. Layer Map")
	for _, layer := range layerMap.Layers {
		doc.subsection(layer.Name + " Layer")
		doc.codeList("Files", layer.Files)
		if len(layer.Dependencies) > 0 {
			doc.field("Dependencies", strings.Join(layer.Dependencies, ", "))
			doc.blank()
		}
	}
}

func (g *PlanningGenerator) renderTasks(doc *mdDoc, tasks []TaskBreakdown) {
	if len(tasks) == 0 {
		return
	}
	doc.section("5. Task Breakdown")
	for _, task := range tasks {
		doc.subsection(fmt.Sprintf("Task %d: %s", task.ID, task.Description))
		doc.field("File", "`"+task.FilePath+"`")
		doc.blank()
		if task.Pseudocode != "" {
			doc.line("**Pseudocode:**")
			doc.codeBlock("", task.Pseudocode)
		}
		doc.field("Complexity", task.Complexity)
		doc.field("Maintainability", task.Maintainability)
		if len(task.Dependencies) > 0 {
			deps := make([]string, len(task.Dependencies))
			for i, dep := range task.Dependencies {
				deps[i] = fmt.Sprintf("Task %d", dep)
			}
			doc.field("Dependencies", strings.Join(deps, ", "))
		}
		doc.blank()
		doc.list("Verification", task.Verification)
	}
}

func (g *PlanningGenerator) renderCrossCutting(doc *mdDoc, scope CrossCuttingConcerns) {
	doc.section("6. Cross-Cutting Concerns")
	if scope.ErrorHandling != "" {
		doc.field("Error Handling", scope.ErrorHandling)
		doc.blank()
	}
	if scope.Logging != "" {
		doc.field("Logging", scope.Logging)
		doc.blank()
	}
	if scope.Testing != "" {
		doc.field("Testing", scope.Testing)
		doc.blank()
	}
	doc.list("Security Considerations", scope.Security)
}
