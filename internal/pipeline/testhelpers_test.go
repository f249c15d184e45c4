package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/vidbrief/internal/media"
	"github.com/fmueller/vidbrief/internal/runner"
	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/stretchr/testify/require"
)

type transcriberFunc func(ctx context.Context, audioPath string) (transcript.Result, error)

func (f transcriberFunc) Transcribe(ctx context.Context, audioPath string) (transcript.Result, error) {
	return f(ctx, audioPath)
}

func helloWorld() transcript.Result {
	return transcript.Result{
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0.0, End: 1.2, Text: "hello"},
			{Start: 75.0, End: 76.0, Text: "world"},
		},
	}
}

// mediaRunner answers ffprobe with durationJSON and makes ffmpeg create its
// destination file. Sources listed in failExtract make ffmpeg exit 1 after
// leaving a partial file behind.
func mediaRunner(durationJSON string, failExtract ...string) *runner.Fake {
	failing := make(map[string]bool, len(failExtract))
	for _, src := range failExtract {
		failing[src] = true
	}

	return &runner.Fake{Handler: func(_ context.Context, name string, args []string) (runner.Result, error) {
		switch name {
		case "ffprobe":
			return runner.Result{Stdout: []byte(durationJSON)}, nil
		case "ffmpeg":
			src, dst := args[3], args[len(args)-1]
			if err := os.WriteFile(dst, []byte("RIFF"), 0o644); err != nil {
				return runner.Result{}, err
			}
			if failing[src] {
				return runner.Result{ExitCode: 1, Stderr: []byte("Invalid data found when processing input")}, nil
			}
			return runner.Result{}, nil
		default:
			return runner.Result{}, errors.New("unexpected command " + name)
		}
	}}
}

func newTestPipeline(r runner.Runner, tr Transcriber) *Pipeline {
	return &Pipeline{
		Prober:      media.NewProber(r, "ffprobe"),
		Extractor:   media.NewExtractor(r, "ffmpeg"),
		Transcriber: tr,
	}
}

func touchVideo(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))
	return path
}

func requireMissing(t *testing.T, path string) {
	t.Helper()

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "expected %s to be absent", path)
}
