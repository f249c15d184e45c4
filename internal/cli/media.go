package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fmueller/vidbrief/internal/audio"
	"github.com/fmueller/vidbrief/internal/media"
	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newProbeCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <video-file>",
		Short: "Print the duration of a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bins := media.ResolveBinaries(app.cfg.Media.FFmpeg, app.cfg.Media.FFprobe)
			file, err := media.NewProber(app.commandRunner(), bins.FFprobe).Probe(cmd.Context(), filepath.Clean(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.3f\t%s\n", file.Path, file.Duration, transcript.FormatTimestamp(file.Duration))
			return nil
		},
	}
}

func newExtractCmd(app *appState) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <video-file>",
		Short: "Extract the 16 kHz mono WAV track of a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := filepath.Clean(args[0])
			dst := output
			if dst == "" {
				dst = media.WaveformPath(src)
			}

			bins := media.ResolveBinaries(app.cfg.Media.FFmpeg, app.cfg.Media.FFprobe)
			stopSpinner := startSpinner(app.progressEnabled(), "Extracting audio")
			err := media.NewExtractor(app.commandRunner(), bins.FFmpeg).Extract(cmd.Context(), src, dst)
			stopSpinner()
			if err != nil {
				return err
			}

			if info, err := audio.Inspect(dst); err == nil {
				app.log().Debug(
					"waveform written",
					zap.String("path", dst),
					zap.Uint32("sample_rate", info.SampleRate),
					zap.Uint16("channels", info.Channels),
					zap.Float64("seconds", info.Duration()),
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination WAV path (default: next to the video)")
	return cmd
}
