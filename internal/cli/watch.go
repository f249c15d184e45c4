package cli

import (
	"context"
	"fmt"

	"github.com/fmueller/vidbrief/internal/logging"
	"github.com/fmueller/vidbrief/internal/pipeline"
	"github.com/fmueller/vidbrief/internal/platform"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the input directory and process new videos as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dir, err := platform.ResolveInputDir(app.cfg.Input.Dir)
			if err != nil {
				return err
			}

			logger, _ := logging.WithRunID(app.log())
			p := app.newPipeline(logger)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Watching %s for new %s files (Ctrl+C to stop)\n", dir, app.cfg.Input.Ext)
			return pipeline.Watch(ctx, dir, app.cfg.Input.Ext, func(ctx context.Context, path string) {
				outcome, err := p.Process(ctx, path)
				switch {
				case err != nil:
					fmt.Fprintf(out, "Failed %s at %s: %v\n", path, outcome.Stage, err)
				case outcome.Skipped:
					fmt.Fprintf(out, "Skipped %s: no speech detected\n", path)
				default:
					fmt.Fprintf(out, "Please review and complete the executive summary at: %s\n", outcome.SummaryPath)
				}
			}, pipeline.WatchOptions{
				SettleDelay: app.cfg.Watch.SettleDelay,
				Logger:      logger.With(zap.String("mode", "watch")),
			})
		},
	}
}
