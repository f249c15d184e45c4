package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fmueller/vidbrief/internal/config"
	"github.com/fmueller/vidbrief/internal/logging"
	"github.com/fmueller/vidbrief/internal/platform"
	"github.com/fmueller/vidbrief/internal/runner"
	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/fmueller/vidbrief/internal/version"
	"github.com/fmueller/vidbrief/internal/whisper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	configPath string
	cfg        config.Config

	verbose    bool
	jsonLogs   bool
	noProgress bool

	dir          string
	ext          string
	model        string
	modelDir     string
	language     string
	autoDownload bool
	keepAudio    bool
	silenceGate  bool
	silenceDBFS  float64

	logger      *zap.Logger
	runner      runner.Runner
	transcriber *whisper.Transcriber

	transcribeFn func(ctx context.Context, audioPath string) (transcript.Result, error)
}

func newAppState() *appState {
	defaults := config.Default()
	app := &appState{
		cfg:          defaults,
		ext:          defaults.Input.Ext,
		model:        defaults.Whisper.Model,
		language:     defaults.Whisper.Language,
		autoDownload: defaults.Whisper.AutoDownload,
		keepAudio:    defaults.KeepAudio,
		silenceGate:  defaults.SilenceGate.Enabled,
		silenceDBFS:  defaults.SilenceGate.ThresholdDBFS,
	}
	app.transcribeFn = app.transcribeAudio
	return app
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidbrief",
		Short: "Transcribe videos and prepare executive summary templates",
		Long: "vidbrief scans a directory (default ~/Downloads) for videos, extracts their audio with ffmpeg,\n" +
			"transcribes it with whisper.cpp and writes <name>.transcript.txt and <name>.summary.txt next to each video.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runDefault(cmd.Context(), cmd)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindConfigFlag(cmd, app)
	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindInputFlags(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindAudioFlags(cmd, app)

	cmd.AddCommand(newProcessCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newProbeCmd(app))
	cmd.AddCommand(newExtractCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindConfigFlag(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.configPath, "config", app.configPath, "Path to config file (default: per-user config directory)")
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindInputFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.dir, "dir", app.dir, "Directory to scan for videos (default: ~/Downloads)")
	cmd.PersistentFlags().StringVar(&app.ext, "ext", app.ext, "Video file extension to pick up")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.model, "model", app.model, "Model name or model file path")
	cmd.PersistentFlags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndModelDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.language, "language", app.language, "Language code (auto|en|de|...) for transcription")
	cmd.PersistentFlags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindAudioFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.keepAudio, "keep-audio", app.keepAudio, "Keep the extracted WAV next to each video")
	cmd.PersistentFlags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Detect near-silent audio and skip transcription")
	cmd.PersistentFlags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
}

// prepare builds the logger and the effective configuration: defaults, then
// the config file, then flags the user actually set.
func (a *appState) prepare(flags *pflag.FlagSet) error {
	logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.jsonLogs})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger

	path, err := platform.ResolveConfigPath(a.configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, a.configPath != "")
	if err != nil {
		return err
	}
	a.applyFlagOverrides(flags, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	logger.Debug("configuration loaded", zap.String("path", path), zap.String("model", cfg.Whisper.Model), zap.String("language", cfg.Whisper.Language))

	if a.runner == nil {
		a.runner = runner.NewExec(logger)
	}
	return nil
}

func (a *appState) applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	changed := func(name string) bool {
		return flags != nil && flags.Changed(name)
	}

	if changed("dir") {
		cfg.Input.Dir = a.dir
	}
	if changed("ext") {
		cfg.Input.Ext = a.ext
	}
	if changed("model") {
		cfg.Whisper.Model = a.model
	}
	if changed("model-dir") {
		cfg.Whisper.ModelDir = a.modelDir
	}
	if changed("language") {
		cfg.Whisper.Language = a.language
	}
	if changed("auto-download") {
		cfg.Whisper.AutoDownload = a.autoDownload
	}
	if changed("keep-audio") {
		cfg.KeepAudio = a.keepAudio
	}
	if changed("silence-gate") {
		cfg.SilenceGate.Enabled = a.silenceGate
	}
	if changed("silence-threshold-dbfs") {
		cfg.SilenceGate.ThresholdDBFS = a.silenceDBFS
	}
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) commandRunner() runner.Runner {
	if a.runner == nil {
		a.runner = runner.NewExec(a.log())
	}
	return a.runner
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
