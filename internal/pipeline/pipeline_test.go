package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/vidbrief/internal/audio"
	"github.com/fmueller/vidbrief/internal/media"
	"github.com/fmueller/vidbrief/internal/runner"
	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/fmueller/vidbrief/internal/whisper"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const seventyFiveSeconds = `{"format":{"filename":"talk.mp4","duration":"75.000000"}}`

func TestProcessWritesTranscriptAndSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := touchVideo(t, dir, "talk.mp4")
	r := mediaRunner(seventyFiveSeconds)

	var transcribed string
	p := newTestPipeline(r, transcriberFunc(func(_ context.Context, audioPath string) (transcript.Result, error) {
		transcribed = audioPath
		return helloWorld(), nil
	}))

	outcome, err := p.Process(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, StageDone, outcome.Stage)
	require.Equal(t, 75.0, outcome.Duration)
	require.Equal(t, 2, outcome.Segments)
	require.Equal(t, filepath.Join(dir, "talk.wav"), transcribed)

	gotTranscript, err := os.ReadFile(filepath.Join(dir, "talk.transcript.txt"))
	require.NoError(t, err)
	wantTranscript := "TIMESTAMPED TRANSCRIPT\n===================\n\n[0:00:00] hello\n[0:01:15] world\n"
	if diff := cmp.Diff(wantTranscript, string(gotTranscript)); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}

	gotSummary, err := os.ReadFile(filepath.Join(dir, "talk.summary.txt"))
	require.NoError(t, err)
	require.Contains(t, string(gotSummary), "Video Duration: 0:01:15\n")
	require.Contains(t, string(gotSummary), wantTranscript)

	requireMissing(t, filepath.Join(dir, "talk.wav"))

	calls := r.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, runner.Call{Name: "ffprobe", Args: media.ProbeArgs(src)}, calls[0])
	require.Equal(t, runner.Call{Name: "ffmpeg", Args: media.ExtractArgs(src, filepath.Join(dir, "talk.wav"))}, calls[1])
}

func TestProcessKeepAudioLeavesWaveform(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := touchVideo(t, dir, "talk.mp4")
	p := newTestPipeline(mediaRunner(seventyFiveSeconds), transcriberFunc(func(context.Context, string) (transcript.Result, error) {
		return helloWorld(), nil
	}))
	p.KeepAudio = true

	_, err := p.Process(context.Background(), src)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "talk.wav"))
}

func TestProcessExtractFailureProducesNoArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := touchVideo(t, dir, "broken.mp4")
	transcribeCalled := false
	p := newTestPipeline(mediaRunner(seventyFiveSeconds, src), transcriberFunc(func(context.Context, string) (transcript.Result, error) {
		transcribeCalled = true
		return transcript.Result{}, nil
	}))

	outcome, err := p.Process(context.Background(), src)
	require.Error(t, err)
	require.Equal(t, StageExtract, outcome.Stage)
	require.False(t, transcribeCalled)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, StageExtract, stageErr.Stage)

	var extractErr *media.ExtractError
	require.ErrorAs(t, err, &extractErr)
	require.Contains(t, extractErr.Error(), "Invalid data")

	requireMissing(t, filepath.Join(dir, "broken.wav"))
	requireMissing(t, filepath.Join(dir, "broken.transcript.txt"))
	requireMissing(t, filepath.Join(dir, "broken.summary.txt"))
}

func TestProcessProbeFailureSkipsAllStages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := touchVideo(t, dir, "nodur.mp4")
	r := mediaRunner(`{"format":{"filename":"nodur.mp4"}}`)
	p := newTestPipeline(r, transcriberFunc(func(context.Context, string) (transcript.Result, error) {
		t.Fatal("transcriber must not run")
		return transcript.Result{}, nil
	}))

	outcome, err := p.Process(context.Background(), src)
	require.ErrorIs(t, err, media.ErrNoDuration)
	require.Equal(t, StageProbe, outcome.Stage)
	require.Empty(t, r.CallsTo("ffmpeg"))
	requireMissing(t, filepath.Join(dir, "nodur.transcript.txt"))
}

func TestProcessTranscriptionFailureRemovesWaveform(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := touchVideo(t, dir, "talk.mp4")
	p := newTestPipeline(mediaRunner(seventyFiveSeconds), transcriberFunc(func(context.Context, string) (transcript.Result, error) {
		return transcript.Result{}, &whisper.Failure{Stage: whisper.StageModelLoad, Err: errors.New("bad magic")}
	}))

	outcome, err := p.Process(context.Background(), src)
	require.Error(t, err)
	require.Equal(t, StageTranscribe, outcome.Stage)

	stage, ok := whisper.FailureStage(err)
	require.True(t, ok)
	require.Equal(t, whisper.StageModelLoad, stage)

	requireMissing(t, filepath.Join(dir, "talk.wav"))
	requireMissing(t, filepath.Join(dir, "talk.transcript.txt"))
	requireMissing(t, filepath.Join(dir, "talk.summary.txt"))
}

func TestProcessSilentAudioIsSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := touchVideo(t, dir, "quiet.mp4")
	p := newTestPipeline(mediaRunner(seventyFiveSeconds), transcriberFunc(func(context.Context, string) (transcript.Result, error) {
		t.Fatal("transcriber must not run for silent audio")
		return transcript.Result{}, nil
	}))
	p.Silence = func(string) (bool, audio.Levels, error) {
		return true, audio.Levels{RMSdBFS: -90, PeakdBFS: -88, Samples: 16000}, nil
	}

	outcome, err := p.Process(context.Background(), src)
	require.NoError(t, err)
	require.True(t, outcome.Skipped)
	require.Equal(t, StageSilence, outcome.Stage)
	requireMissing(t, filepath.Join(dir, "quiet.wav"))
	requireMissing(t, filepath.Join(dir, "quiet.transcript.txt"))
}

func TestProcessSilenceGateErrorContinues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := touchVideo(t, dir, "talk.mp4")
	p := newTestPipeline(mediaRunner(seventyFiveSeconds), transcriberFunc(func(context.Context, string) (transcript.Result, error) {
		return helloWorld(), nil
	}))
	p.Silence = SilenceGate(audio.DefaultSilenceDBFS)

	// The fake ffmpeg writes a truncated RIFF header, so analysis fails.
	outcome, err := p.Process(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, StageDone, outcome.Stage)
	require.FileExists(t, filepath.Join(dir, "talk.summary.txt"))
}

func TestProcessCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := mediaRunner(seventyFiveSeconds)
	p := newTestPipeline(r, nil)
	_, err := p.Process(ctx, filepath.Join(t.TempDir(), "talk.mp4"))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, r.Calls())
}

func TestArtifactPaths(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/videos/q3 review.transcript.txt", TranscriptPath("/videos/q3 review.mp4"))
	require.Equal(t, "/videos/q3 review.summary.txt", SummaryPath("/videos/q3 review.mp4"))
	require.Equal(t, "/videos/archive.tar.summary.txt", SummaryPath("/videos/archive.tar.MP4"))
}
