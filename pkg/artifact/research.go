package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ResearchBrief is the research phase's durable record: what the request
// needs from the workspace, compressed tightly enough to seed the planner's
// context.
type ResearchBrief struct {
	Feature       string
	UserGoal      string
	Questions     []ResearchQuestion
	Risks         []string
	RelevantFiles []RelevantFile
	Decisions     []string
	Summary       string

	FilePath string
	Created  time.Time
	Updated  time.Time
	Status   string
}

type ResearchQuestion struct {
	Question string
	Answer   string
}

type RelevantFile struct {
	Path    string
	Reason  string
	Summary string
}

// ResearchGenerator persists research briefs as markdown.
type ResearchGenerator struct {
	outputDir string
}

// NewResearchGenerator creates an artifact generator for research briefs.
func NewResearchGenerator(outputDir string) *ResearchGenerator {
	return &ResearchGenerator{outputDir: outputDir}
}

// Generate writes the brief as YYYY-MM-DD-{feature}-research.md and stamps
// its metadata.
func (g *ResearchGenerator) Generate(brief *ResearchBrief) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create research dir: %w", err)
	}

	now := time.Now()
	path := filepath.Join(g.outputDir, fmt.Sprintf("%s-%s-research.md", now.Format("2006-01-02"), brief.Feature))

	if err := os.WriteFile(path, []byte(g.render(brief, now)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write research brief: %w", err)
	}

	brief.FilePath = path
	brief.Created = now
	brief.Updated = now
	brief.Status = "completed"
	return path, nil
}

func (g *ResearchGenerator) render(brief *ResearchBrief, now time.Time) string {
	doc := &mdDoc{}

	doc.title("Research Brief: " + formatFeatureName(brief.Feature))
	doc.field("Date", now.Format("2006-01-02"))
	doc.field("Status", defaultStatus(brief.Status))
	doc.blank()

	if brief.UserGoal != "" {
		doc.section("1. User Goal")
		doc.line("%s", brief.UserGoal)
		doc.blank()
	}
	if brief.Summary != "" {
		doc.section("2. Summary")
		doc.line("%s", brief.Summary)
		doc.blank()
	}
	if len(brief.RelevantFiles) > 0 {
		doc.section("3. Relevant Files")
		for _, file := range brief.RelevantFiles {
			doc.line("- `%s` - %s", file.Path, file.Reason)
			if file.Summary != "" {
				doc.line("  - %s", file.Summary)
			}
		}
		doc.blank()
	}
	if len(brief.Questions) > 0 {
		doc.section("4. Open Questions")
		for _, q := range brief.Questions {
			doc.line("- **Q:** %s\n  - **A:** %s", q.Question, q.Answer)
		}
		doc.blank()
	}
	if len(brief.Risks) > 0 {
		doc.section("5. Risks & Unknowns")
		for _, risk := range brief.Risks {
			doc.line("- %s", risk)
		}
		doc.blank()
	}
	if len(brief.Decisions) > 0 {
		doc.section("6. Preliminary Decisions")
		for _, decision := range brief.Decisions {
			doc.line("- %s", decision)
		}
		doc.blank()
	}

	return doc.String()
}

func defaultStatus(status string) string {
	if status == "" {
		return "in_progress"
	}
	return status
}
