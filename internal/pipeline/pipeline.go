package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmueller/vidbrief/internal/audio"
	"github.com/fmueller/vidbrief/internal/media"
	"github.com/fmueller/vidbrief/internal/summary"
	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/fmueller/vidbrief/internal/whisper"
	"go.uber.org/zap"
)

// Stage names the step a file reached in Process.
type Stage string

const (
	StageProbe      Stage = "probe"
	StageExtract    Stage = "extract"
	StageSilence    Stage = "silence-gate"
	StageTranscribe Stage = "transcribe"
	StageTranscript Stage = "write-transcript"
	StageSummary    Stage = "write-summary"
	StageDone       Stage = "done"
)

type Prober interface {
	Probe(ctx context.Context, path string) (media.File, error)
}

type Extractor interface {
	Extract(ctx context.Context, src, dst string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (transcript.Result, error)
}

// SilenceDetector reports whether a waveform is near-silent.
type SilenceDetector func(path string) (bool, audio.Levels, error)

// SilenceGate returns a SilenceDetector using the given RMS threshold.
func SilenceGate(thresholdDBFS float64) SilenceDetector {
	return func(path string) (bool, audio.Levels, error) {
		return audio.IsSilentWAV(path, thresholdDBFS)
	}
}

// Outcome describes what Process did with one source file.
type Outcome struct {
	Source         string
	Duration       float64
	Stage          Stage
	Skipped        bool
	Segments       int
	TranscriptPath string
	SummaryPath    string
	Elapsed        time.Duration
}

// StageError is returned by Process when a stage fails.
type StageError struct {
	Source string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Source, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline runs probe, extract, transcribe and the two writers for one
// source file at a time.
type Pipeline struct {
	Prober      Prober
	Extractor   Extractor
	Transcriber Transcriber
	Summary     summary.Template
	Silence     SilenceDetector
	KeepAudio   bool
	Logger      *zap.Logger
}

// TranscriptPath is <dir>/<name>.transcript.txt for src.
func TranscriptPath(src string) string {
	return stem(src) + ".transcript.txt"
}

// SummaryPath is <dir>/<name>.summary.txt for src.
func SummaryPath(src string) string {
	return stem(src) + ".summary.txt"
}

func stem(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src))
}

func (p *Pipeline) log() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Process handles one source file. A failing stage stops the file and is
// reported as a *StageError; nothing written by earlier stages other than
// the waveform is removed.
func (p *Pipeline) Process(ctx context.Context, src string) (Outcome, error) {
	started := time.Now()
	logger := p.log().With(zap.String("source", src))
	outcome := Outcome{Source: src, Stage: StageProbe}

	fail := func(stage Stage, err error) (Outcome, error) {
		outcome.Stage = stage
		outcome.Elapsed = time.Since(started)
		fields := []zap.Field{zap.String("stage", string(stage)), zap.Error(err)}
		if engineStage, ok := whisper.FailureStage(err); ok {
			fields = append(fields, zap.String("engine_stage", string(engineStage)))
		}
		logger.Error("processing failed; skipping file", fields...)
		return outcome, &StageError{Source: src, Stage: stage, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(StageProbe, err)
	}

	logger.Info("processing video")
	file, err := p.Prober.Probe(ctx, src)
	if err != nil {
		return fail(StageProbe, err)
	}
	outcome.Duration = file.Duration
	logger.Debug("probed duration", zap.Float64("seconds", file.Duration), zap.String("formatted", transcript.FormatTimestamp(file.Duration)))

	wavPath := media.WaveformPath(src)
	if err := p.Extractor.Extract(ctx, src, wavPath); err != nil {
		return fail(StageExtract, err)
	}
	if !p.KeepAudio {
		defer p.removeWaveform(logger, wavPath)
	}

	if p.Silence != nil {
		silent, levels, err := p.Silence(wavPath)
		switch {
		case err != nil:
			logger.Warn("silence gate analysis failed; continuing transcription", zap.String("audio", wavPath), zap.Error(err))
		case silent:
			logger.Info(
				"audio considered silent; skipping transcription",
				zap.String("audio", wavPath),
				zap.Float64("rms_dbfs", levels.RMSdBFS),
				zap.Float64("peak_dbfs", levels.PeakdBFS),
			)
			outcome.Stage = StageSilence
			outcome.Skipped = true
			outcome.Elapsed = time.Since(started)
			return outcome, nil
		}
	}

	result, err := p.Transcriber.Transcribe(ctx, wavPath)
	if err != nil {
		return fail(StageTranscribe, err)
	}
	outcome.Segments = len(result.Segments)

	transcriptPath := TranscriptPath(src)
	if err := transcript.WriteFile(transcriptPath, result); err != nil {
		return fail(StageTranscript, err)
	}
	outcome.TranscriptPath = transcriptPath

	summaryPath := SummaryPath(src)
	if err := p.Summary.WriteFile(transcriptPath, file.Duration, summaryPath); err != nil {
		return fail(StageSummary, err)
	}
	outcome.SummaryPath = summaryPath

	outcome.Stage = StageDone
	outcome.Elapsed = time.Since(started)
	logger.Info(
		"video processed",
		zap.String("transcript", transcriptPath),
		zap.String("summary", summaryPath),
		zap.Int("segments", outcome.Segments),
		zap.Duration("elapsed", outcome.Elapsed),
	)
	return outcome, nil
}

func (p *Pipeline) removeWaveform(logger *zap.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove waveform", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Debug("removed waveform", zap.String("path", path))
}
