package summary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRenderDefaultTemplate(t *testing.T) {
	t.Parallel()

	text := "TIMESTAMPED TRANSCRIPT\n===================\n\n[0:00:00] Hello\n"
	got := Template{}.Render(text, 75.0)

	want := "Video Duration: 0:01:15\n" +
		"\n" +
		"Executive Summary\n" +
		"================\n" +
		text +
		"\n" +
		"\n" +
		"Key Points:\n" +
		"1. \n" +
		"2. \n" +
		"3. \n" +
		"\n" +
		"Target Audience: VP+ level executives\n" +
		"Purpose: Quick understanding of video content\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderCustomAudienceAndPurpose(t *testing.T) {
	t.Parallel()

	got := Template{Audience: "Engineering leads", Purpose: "Release review"}.Render("", 3600)
	require.True(t, strings.HasPrefix(got, "Video Duration: 1:00:00\n"))
	require.Contains(t, got, "Target Audience: Engineering leads\n")
	require.Contains(t, got, "Purpose: Release review\n")
}

func TestWriteFileEmbedsTranscriptVerbatim(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "talk.transcript.txt")
	summaryPath := filepath.Join(dir, "talk.summary.txt")
	text := "TIMESTAMPED TRANSCRIPT\n===================\n\n[0:00:00] Hello\n[0:00:02] world\n"
	require.NoError(t, os.WriteFile(transcriptPath, []byte(text), 0o644))

	require.NoError(t, Template{}.WriteFile(transcriptPath, 75, summaryPath))

	content, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "================\n"+text+"\n\nKey Points:")
}

func TestWriteFileMissingTranscript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := Template{}.WriteFile(filepath.Join(dir, "nope.txt"), 1, filepath.Join(dir, "out.txt"))
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "out.txt"))
	require.True(t, os.IsNotExist(statErr))
}
