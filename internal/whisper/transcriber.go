package whisper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fmueller/vidbrief/internal/transcript"
	"go.uber.org/zap"
)

// ModelLoader makes a model file available and returns its path.
type ModelLoader func(ctx context.Context) (string, error)

// Transcriber runs an Engine over waveform files with a fixed model and
// language. The model is loaded at most once per Transcriber; a failed load
// is remembered and reported for every later file.
type Transcriber struct {
	Engine   Engine
	Load     ModelLoader
	Language string
	Logger   *zap.Logger

	once      sync.Once
	modelPath string
	loadErr   error
}

func (t *Transcriber) model(ctx context.Context) (string, error) {
	t.once.Do(func() {
		if t.Load == nil {
			t.loadErr = errors.New("no model loader configured")
			return
		}
		t.modelPath, t.loadErr = t.Load(ctx)
	})
	return t.modelPath, t.loadErr
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (transcript.Result, error) {
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	modelPath, err := t.model(ctx)
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) {
			return transcript.Result{}, err
		}
		return transcript.Result{}, modelLoadFailure(err)
	}

	if t.Engine == nil {
		return transcript.Result{}, modelLoadFailure(errors.New("no whisper engine configured"))
	}

	language := strings.TrimSpace(t.Language)
	logger.Info("transcribing", zap.String("audio", audioPath), zap.String("model", modelPath), zap.String("language", language))
	started := time.Now()

	result, err := t.Engine.Transcribe(ctx, TranscriptionRequest{
		AudioPath: audioPath,
		ModelPath: modelPath,
		Language:  language,
	})
	if err != nil {
		logger.Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		if _, ok := FailureStage(err); ok {
			return transcript.Result{}, err
		}
		return transcript.Result{}, inferenceFailure(err)
	}

	if !transcript.Ordered(result.Segments) {
		logger.Debug("engine returned segments out of order; sorting", zap.Int("segments", len(result.Segments)))
		transcript.SortSegments(result.Segments)
	}
	logger.Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.Int("segments", len(result.Segments)))
	return result, nil
}
