package summary

import (
	"fmt"
	"os"
	"strings"

	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/google/renameio/v2"
)

const (
	DefaultAudience = "VP+ level executives"
	DefaultPurpose  = "Quick understanding of video content"
)

// Template holds the fixed lines of the summary placeholder. The summary
// itself is left for a person to write into the numbered key points.
type Template struct {
	Audience string
	Purpose  string
}

func (t Template) withDefaults() Template {
	if strings.TrimSpace(t.Audience) == "" {
		t.Audience = DefaultAudience
	}
	if strings.TrimSpace(t.Purpose) == "" {
		t.Purpose = DefaultPurpose
	}
	return t
}

// Render embeds the transcript text verbatim together with the formatted
// duration.
func (t Template) Render(transcriptText string, durationSeconds float64) string {
	t = t.withDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, "Video Duration: %s\n\n", transcript.FormatTimestamp(durationSeconds))
	b.WriteString("Executive Summary\n")
	b.WriteString("================\n")
	b.WriteString(transcriptText)
	b.WriteString("\n\nKey Points:\n")
	b.WriteString("1. \n2. \n3. \n\n")
	fmt.Fprintf(&b, "Target Audience: %s\n", t.Audience)
	fmt.Fprintf(&b, "Purpose: %s\n", t.Purpose)
	return b.String()
}

// WriteFile reads the transcript at transcriptPath back from disk and
// writes the rendered template to outputPath.
func (t Template) WriteFile(transcriptPath string, durationSeconds float64, outputPath string) error {
	content, err := os.ReadFile(transcriptPath)
	if err != nil {
		return fmt.Errorf("read transcript %s: %w", transcriptPath, err)
	}

	rendered := t.Render(string(content), durationSeconds)
	if err := renameio.WriteFile(outputPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write summary %s: %w", outputPath, err)
	}
	return nil
}
