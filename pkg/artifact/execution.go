package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecutionTracker maintains the execution phase's durable record. Unlike
// the planning and review artifacts, which are written once, this one is
// rewritten after every task, pause, and checklist addition so an
// interrupted session can resume from the file alone.
type ExecutionTracker struct {
	outputDir string
	artifact  *ExecutionArtifact
	filePath  string
}

// NewExecutionTracker creates a tracker for one feature's execution phase.
func NewExecutionTracker(outputDir string, planningArtifactPath string, feature string, totalTasks int) *ExecutionTracker {
	now := time.Now()
	return &ExecutionTracker{
		outputDir: outputDir,
		artifact: &ExecutionArtifact{
			Artifact: Artifact{
				Type:      ArtifactTypeExecution,
				Feature:   feature,
				CreatedAt: now,
				UpdatedAt: now,
				Status:    "in_progress",
			},
			PlanningArtifactPath: planningArtifactPath,
			StartedAt:            now,
			TotalTasks:           totalTasks,
			ProgressLog:          []TaskProgress{},
			Pauses:               []ExecutionPause{},
			DeviationSummary:     []Deviation{},
			ReviewChecklist:      []string{},
		},
	}
}

// Initialize writes the artifact's first revision as
// YYYY-MM-DD-{feature}-execution.md.
func (t *ExecutionTracker) Initialize() error {
	if err := os.MkdirAll(t.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s-execution.md", time.Now().Format("2006-01-02"), t.artifact.Feature)
	t.filePath = filepath.Join(t.outputDir, filename)
	t.artifact.FilePath = t.filePath
	return t.save()
}

// AddTaskProgress records one task's outcome, folding its deviations into
// the running summary.
func (t *ExecutionTracker) AddTaskProgress(progress TaskProgress) error {
	t.artifact.ProgressLog = append(t.artifact.ProgressLog, progress)
	t.artifact.CurrentTask = progress.TaskID
	t.artifact.DeviationSummary = append(t.artifact.DeviationSummary, progress.Deviations...)
	t.artifact.UpdatedAt = time.Now()
	return t.save()
}

// AddPause records a suspension for user input.
func (t *ExecutionTracker) AddPause(pause ExecutionPause) error {
	pause.Number = len(t.artifact.Pauses) + 1
	pause.Timestamp = time.Now()
	t.artifact.Pauses = append(t.artifact.Pauses, pause)
	t.artifact.UpdatedAt = time.Now()
	return t.save()
}

// ResolvePause attaches the user's answer to the most recent pause.
func (t *ExecutionTracker) ResolvePause(userResponse, resolution string) error {
	if t == nil || t.artifact == nil || len(t.artifact.Pauses) == 0 {
		return fmt.Errorf("no pause to resolve")
	}

	last := &t.artifact.Pauses[len(t.artifact.Pauses)-1]
	if userResponse != "" {
		last.UserResponse = userResponse
	}
	if resolution != "" {
		last.Resolution = resolution
	}
	t.artifact.UpdatedAt = time.Now()
	return t.save()
}

// AddReviewChecklistItem flags a high-risk area for the review phase.
func (t *ExecutionTracker) AddReviewChecklistItem(item string) error {
	t.artifact.ReviewChecklist = append(t.artifact.ReviewChecklist, item)
	t.artifact.UpdatedAt = time.Now()
	return t.save()
}

// Complete marks the execution phase finished.
func (t *ExecutionTracker) Complete() error {
	t.artifact.Status = "completed"
	t.artifact.UpdatedAt = time.Now()
	return t.save()
}

// GetFilePath returns where the artifact lives on disk.
func (t *ExecutionTracker) GetFilePath() string {
	return t.filePath
}

func (t *ExecutionTracker) save() error {
	return os.WriteFile(t.filePath, []byte(t.render()), 0644)
}

// render rewrites the whole document from current state: header, per-task
// log, pauses, the deviation table, and the handoff checklist for review.
func (t *ExecutionTracker) render() string {
	doc := &mdDoc{}

	doc.title("Execution: " + formatFeatureName(t.artifact.Feature))
	doc.field("Planning Artifact", fmt.Sprintf("[%s](%s)",
		filepath.Base(t.artifact.PlanningArtifactPath),
		t.relativePath(t.artifact.PlanningArtifactPath)))
	doc.field("Started", t.artifact.StartedAt.Format(time.RFC3339))
	doc.field("Status", fmt.Sprintf("%s (Task %d/%d)",
		formatStatus(t.artifact.Status), t.artifact.CurrentTask, t.artifact.TotalTasks))
	doc.blank()

	t.renderProgress(doc)
	t.renderPauses(doc)
	t.renderDeviations(doc)

	if len(t.artifact.ReviewChecklist) > 0 {
		doc.section("High-Risk Areas for Review")
		for _, item := range t.artifact.ReviewChecklist {
			doc.line("- [ ] %s", item)
		}
		doc.blank()
	}

	return doc.String()
}

func (t *ExecutionTracker) renderProgress(doc *mdDoc) {
	if len(t.artifact.ProgressLog) == 0 {
		return
	}
	doc.section("Progress Log")

	for _, progress := range t.artifact.ProgressLog {
		doc.subsection(fmt.Sprintf("Task %d: %s", progress.TaskID, progress.Description))
		doc.field("Status", statusMark(progress.Status)+" "+progress.Status)
		doc.field("Duration", progress.Duration)

		if len(progress.FilesModified) > 0 {
			files := make([]string, 0, len(progress.FilesModified))
			for _, file := range progress.FilesModified {
				entry := "`" + file.Path + "`"
				if file.LinesAdded > 0 {
					entry += fmt.Sprintf(" (+%d lines)", file.LinesAdded)
				}
				files = append(files, entry)
			}
			doc.list("Files Modified", files)
		}

		if progress.ImplementationNotes != "" {
			doc.line("\n#### Implementation Notes\n%s", progress.ImplementationNotes)
		}

		if len(progress.Deviations) > 0 {
			doc.line("\n#### Deviations from Plan")
			for _, dev := range progress.Deviations {
				doc.line("- **%s:** %s", dev.Type, dev.Description)
				if dev.Rationale != "" {
					doc.line("  - **Rationale:** %s", dev.Rationale)
				}
			}
		}

		if len(progress.TestsAdded) > 0 {
			doc.line("\n#### Tests Added")
			for _, test := range progress.TestsAdded {
				entry := fmt.Sprintf("- `%s` - %s", test.Name, statusMark(test.Status))
				if test.Coverage > 0 {
					entry += fmt.Sprintf(" (%.1f%% coverage)", test.Coverage)
				}
				doc.line("%s", entry)
			}
		}

		if progress.CodeSnippet != "" {
			doc.line("\n#### Code Snippet")
			doc.codeBlock("go", progress.CodeSnippet)
		}

		doc.blank()
	}
}

func (t *ExecutionTracker) renderPauses(doc *mdDoc) {
	if len(t.artifact.Pauses) == 0 {
		return
	}
	doc.section("Pauses and Decisions")
	for _, pause := range t.artifact.Pauses {
		doc.subsection(fmt.Sprintf("Pause #%d: %s (Task %d)", pause.Number, pause.Reason, pause.TaskID))
		doc.field("Question", pause.Question)
		doc.blank()
		doc.field("User Response", pause.UserResponse)
		doc.blank()
		doc.field("Resolution", pause.Resolution)
		doc.blank()
	}
}

func (t *ExecutionTracker) renderDeviations(doc *mdDoc) {
	if len(t.artifact.DeviationSummary) == 0 {
		return
	}
	doc.section("Summary of Deviations")
	doc.line("| Task | Type | Description | Impact |")
	doc.line("|------|------|-------------|--------|")
	for _, dev := range t.artifact.DeviationSummary {
		doc.line("| %d | %s | %s | %s |", dev.TaskID, dev.Type, dev.Description, dev.Impact)
	}
	doc.blank()
}

// relativePath rewrites a planning-artifact path as a ../plans link when
// the layout matches the default docs tree; anything else links as-is.
func (t *ExecutionTracker) relativePath(targetPath string) string {
	if strings.Contains(filepath.Dir(targetPath), "plans") {
		return filepath.Join("../plans", filepath.Base(targetPath))
	}
	return targetPath
}
