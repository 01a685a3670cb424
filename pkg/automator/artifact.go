package automator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactWriter persists run reports for offline inspection.
type ArtifactWriter struct {
	dir string
}

// NewArtifactWriter creates a writer rooted at dir.
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir}
}

// WriteAll writes every artifact format for the report.
func (w *ArtifactWriter) WriteAll(report *Report) error {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	if err := w.writeExecutionJSON(report); err != nil {
		return err
	}
	return w.writeSummaryMarkdown(report)
}

func (w *ArtifactWriter) writeExecutionJSON(report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	path := filepath.Join(w.dir, "execution.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write execution JSON: %w", err)
	}
	return nil
}

func (w *ArtifactWriter) writeSummaryMarkdown(report *Report) error {
	var md strings.Builder

	md.WriteString("# Drover Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Run ID:** %s\n\n", report.RunID))
	if report.Source != "" {
		md.WriteString(fmt.Sprintf("**Source:** %s\n\n", report.Source))
	}
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", report.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", report.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", report.Duration.Round(time.Millisecond)))

	md.WriteString("## Actions\n\n")
	for _, rec := range report.Actions {
		switch rec.Status {
		case StatusSucceeded:
			md.WriteString(fmt.Sprintf("✅ **%d.** %s (%d attempt(s), %s)\n",
				rec.Index, rec.Description, rec.Attempts, rec.Elapsed.Round(time.Millisecond)))
		case StatusFailed:
			md.WriteString(fmt.Sprintf("❌ **%d.** %s (%d attempt(s), %s)\n",
				rec.Index, rec.Description, rec.Attempts, rec.Elapsed.Round(time.Millisecond)))
			if rec.Error != "" {
				md.WriteString(fmt.Sprintf("   Error: %s\n", rec.Error))
			}
			if rec.ScreenshotPath != "" {
				md.WriteString(fmt.Sprintf("   Screenshot: `%s`\n", rec.ScreenshotPath))
			}
		case StatusSkipped:
			md.WriteString(fmt.Sprintf("⏭️ **%d.** %s (skipped)\n", rec.Index, rec.Description))
		}
	}
	md.WriteString("\n")

	md.WriteString("## Totals\n\n")
	md.WriteString(fmt.Sprintf("- **Actions:** %d\n", report.Totals.Actions))
	md.WriteString(fmt.Sprintf("- **Succeeded:** %d\n", report.Totals.Succeeded))
	md.WriteString(fmt.Sprintf("- **Failed:** %d\n", report.Totals.Failed))
	md.WriteString(fmt.Sprintf("- **Skipped:** %d\n", report.Totals.Skipped))
	md.WriteString(fmt.Sprintf("- **Attempts:** %d\n", report.Totals.Attempts))
	md.WriteString(fmt.Sprintf("- **Prompt Tokens:** %d\n", report.Totals.PromptTokens))
	md.WriteString(fmt.Sprintf("- **Completion Tokens:** %d\n", report.Totals.CompletionTokens))
	md.WriteString(fmt.Sprintf("- **Cache Hits/Misses:** %d/%d\n",
		report.Totals.CacheHits, report.Totals.CacheMisses))

	if report.Halted {
		md.WriteString("\n⚠️ Run halted before completing all actions.\n")
	}

	path := filepath.Join(w.dir, "summary.md")
	if err := os.WriteFile(path, []byte(md.String()), 0600); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}
	return nil
}
