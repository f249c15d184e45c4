package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/vidbrief/internal/audio"
	"github.com/fmueller/vidbrief/internal/download"
	"github.com/fmueller/vidbrief/internal/platform"
	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/fmueller/vidbrief/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a WAV file and print timestamped lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioPath := filepath.Clean(args[0])
			if _, err := os.Stat(audioPath); err != nil {
				return fmt.Errorf("audio file not found: %w", err)
			}

			if app.silentAudio(audioPath) {
				app.log().Warn(noSpeechHint())
				return nil
			}

			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			stopSpinner := startSpinner(app.progressEnabled(), "Transcribing")
			result, err := transcribeFn(cmd.Context(), audioPath)
			stopSpinner()
			if err != nil {
				return err
			}

			if output != "" {
				if err := transcript.WriteFile(output, result); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transcript written to %s\n", output)
				return nil
			}

			if len(result.Segments) == 0 {
				app.log().Warn(noSpeechHint())
			}
			for _, seg := range result.Segments {
				fmt.Fprintln(cmd.OutOrStdout(), transcript.SegmentLine(seg))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write a transcript file instead of printing lines")
	return cmd
}

func noSpeechHint() string {
	return "No speech detected in the audio track."
}

// silentAudio applies the configured silence gate to a WAV file. Analysis
// errors are logged and treated as not silent.
func (a *appState) silentAudio(audioPath string) bool {
	if !a.cfg.SilenceGate.Enabled {
		return false
	}
	if !strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		return false
	}

	silent, levels, err := audio.IsSilentWAV(audioPath, a.cfg.SilenceGate.ThresholdDBFS)
	if err != nil {
		a.log().Warn("silence gate analysis failed; continuing transcription", zap.Error(err), zap.String("audio", audioPath))
		return false
	}
	if silent {
		a.log().Info(
			"audio considered silent; skipping transcription",
			zap.String("audio", audioPath),
			zap.Float64("rms_dbfs", levels.RMSdBFS),
			zap.Float64("peak_dbfs", levels.PeakdBFS),
			zap.Float64("threshold_dbfs", a.cfg.SilenceGate.ThresholdDBFS),
		)
	}
	return silent
}

// transcribeAudio runs the whisper engine on a waveform. The engine and
// model are resolved on first use and reused for the rest of the run.
func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (transcript.Result, error) {
	if a.transcriber == nil {
		engine, err := whisper.NewCLIEngine(a.cfg.Whisper.Binary, a.commandRunner(), a.log())
		if err != nil {
			return transcript.Result{}, &whisper.Failure{Stage: whisper.StageModelLoad, Err: err}
		}
		a.transcriber = &whisper.Transcriber{
			Engine:   engine,
			Language: a.cfg.Whisper.Language,
			Logger:   a.log(),
			Load: func(ctx context.Context) (string, error) {
				model, err := a.ensureModelAvailable(ctx)
				if err != nil {
					return "", err
				}
				return model.Path, nil
			},
		}
	}
	return a.transcriber.Transcribe(ctx, audioPath)
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.cfg.Whisper.ModelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(a.cfg.Whisper.Model, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.cfg.Whisper.AutoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `vidbrief setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}
