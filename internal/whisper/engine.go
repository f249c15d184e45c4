package whisper

import (
	"context"
	"errors"
	"fmt"

	"github.com/fmueller/vidbrief/internal/transcript"
)

type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	Language  string
}

type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (transcript.Result, error)
}

// Stage tells where a transcription failed.
type Stage string

const (
	StageModelLoad Stage = "model-load"
	StageInference Stage = "inference"
)

// Failure is the error returned for every failed transcription.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	switch f.Stage {
	case StageModelLoad:
		return fmt.Sprintf("load speech model: %v", f.Err)
	default:
		return fmt.Sprintf("transcribe audio: %v", f.Err)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func modelLoadFailure(err error) error {
	return &Failure{Stage: StageModelLoad, Err: err}
}

func inferenceFailure(err error) error {
	return &Failure{Stage: StageInference, Err: err}
}

// FailureStage returns the stage recorded in err, if err carries one.
func FailureStage(err error) (Stage, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Stage, true
	}
	return "", false
}
