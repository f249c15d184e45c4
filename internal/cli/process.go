package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fmueller/vidbrief/internal/logging"
	"github.com/fmueller/vidbrief/internal/media"
	"github.com/fmueller/vidbrief/internal/pipeline"
	"github.com/fmueller/vidbrief/internal/platform"
	"github.com/fmueller/vidbrief/internal/summary"
	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type transcriberFunc func(ctx context.Context, audioPath string) (transcript.Result, error)

func (f transcriberFunc) Transcribe(ctx context.Context, audioPath string) (transcript.Result, error) {
	return f(ctx, audioPath)
}

func newProcessCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "process <video-file>...",
		Short: "Transcribe and summarize the given video files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]string, 0, len(args))
			for _, arg := range args {
				files = append(files, filepath.Clean(arg))
			}
			return app.processFiles(cmd.Context(), cmd.OutOrStdout(), files)
		},
	}
}

func (a *appState) runDefault(ctx context.Context, cmd *cobra.Command) error {
	dir, err := platform.ResolveInputDir(a.cfg.Input.Dir)
	if err != nil {
		return err
	}

	files, err := pipeline.Scan(dir, a.cfg.Input.Ext)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No %s files found in %s\n", a.cfg.Input.Ext, dir)
		return nil
	}

	return a.processFiles(ctx, cmd.OutOrStdout(), files)
}

// processFiles runs the batch. Per-file failures, including a missing
// engine or model, are logged and counted but do not fail the command.
func (a *appState) processFiles(ctx context.Context, out io.Writer, files []string) error {
	logger, runID := logging.WithRunID(a.log())
	progress := startBatchProgress(a.progressEnabled(), len(files))
	defer progress.Finish()

	batch := &pipeline.Batch{
		Processor: a.newPipeline(logger),
		Logger:    logger,
		OnStart: func(index, total int, path string) {
			progress.Describe(fmt.Sprintf("[%d/%d] %s", index+1, total, filepath.Base(path)))
		},
		OnDone: func(_, _ int, _ pipeline.FileOutcome) {
			progress.Advance()
		},
	}

	report, err := batch.Run(ctx, files)
	progress.Finish()
	printReport(out, report)
	if err != nil {
		return fmt.Errorf("batch %s interrupted: %w", runID, err)
	}
	return nil
}

func (a *appState) newPipeline(logger *zap.Logger) *pipeline.Pipeline {
	transcribeFn := a.transcribeFn
	if transcribeFn == nil {
		transcribeFn = a.transcribeAudio
	}

	bins := media.ResolveBinaries(a.cfg.Media.FFmpeg, a.cfg.Media.FFprobe)
	r := a.commandRunner()

	p := &pipeline.Pipeline{
		Prober:      media.NewProber(r, bins.FFprobe),
		Extractor:   media.NewExtractor(r, bins.FFmpeg),
		Transcriber: transcriberFunc(transcribeFn),
		Summary: summary.Template{
			Audience: a.cfg.Summary.Audience,
			Purpose:  a.cfg.Summary.Purpose,
		},
		KeepAudio: a.cfg.KeepAudio,
		Logger:    logger,
	}
	if a.cfg.SilenceGate.Enabled {
		p.Silence = pipeline.SilenceGate(a.cfg.SilenceGate.ThresholdDBFS)
	}
	return p
}

func printReport(out io.Writer, report pipeline.Report) {
	for _, entry := range report.Processed {
		fmt.Fprintf(out, "Please review and complete the executive summary at: %s\n", entry.SummaryPath)
	}
	for _, entry := range report.Skipped {
		fmt.Fprintf(out, "Skipped %s: no speech detected\n", entry.Source)
	}
	for _, entry := range report.Failed {
		fmt.Fprintf(out, "Failed %s at %s: %v\n", entry.Source, entry.Stage, entry.Err)
	}
	fmt.Fprintf(out, "Processed %d, skipped %d, failed %d\n", len(report.Processed), len(report.Skipped), len(report.Failed))
}
