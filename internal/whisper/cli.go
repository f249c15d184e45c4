package whisper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fmueller/vidbrief/internal/runner"
	"github.com/fmueller/vidbrief/internal/transcript"
	"go.uber.org/zap"
)

const EnginePathEnv = "VIDBRIEF_WHISPER_PATH"

// CLIEngine runs a whisper.cpp command-line binary and reads its full JSON
// output, which carries segment and token timestamps.
type CLIEngine struct {
	Executable string
	Runner     runner.Runner
	Logger     *zap.Logger
}

// NewCLIEngine locates the engine binary. Resolution order: the
// VIDBRIEF_WHISPER_PATH environment variable, the configured path, a
// bundled binary next to the running executable, then whisper-cli on PATH.
func NewCLIEngine(configured string, r runner.Runner, logger *zap.Logger) (*CLIEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = runner.NewExec(logger)
	}

	if override := strings.TrimSpace(os.Getenv(EnginePathEnv)); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("%s is not executable: %w", EnginePathEnv, err)
		}
		return &CLIEngine{Executable: override, Runner: r, Logger: logger}, nil
	}

	if configured = strings.TrimSpace(configured); configured != "" {
		path, err := lookExecutable(configured)
		if err != nil {
			return nil, fmt.Errorf("configured whisper engine %s: %w", configured, err)
		}
		return &CLIEngine{Executable: path, Runner: r, Logger: logger}, nil
	}

	if self, err := os.Executable(); err == nil {
		if path, err := ResolveBundledEnginePath(self); err == nil {
			return &CLIEngine{Executable: path, Runner: r, Logger: logger}, nil
		}
	}

	path, err := exec.LookPath(engineBinaryName())
	if err != nil {
		return nil, fmt.Errorf("whisper engine not found: set %s, whisper.binary in the config file, or put %s on PATH", EnginePathEnv, engineBinaryName())
	}
	return &CLIEngine{Executable: path, Runner: r, Logger: logger}, nil
}

func ResolveBundledEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("bundled whisper engine not found near %s", selfExecutable)
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()
	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, engineName),
	}
}

// EngineArgs builds the whisper-cli argument vector. outBase is the output
// path without extension; whisper-cli appends .json.
func EngineArgs(req TranscriptionRequest, outBase string) []string {
	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-ojf", "-of", outBase, "-np"}
	lang := strings.TrimSpace(req.Language)
	if lang != "" && lang != "auto" {
		args = append(args, "-l", lang)
	}
	return args
}

func (e *CLIEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (transcript.Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return transcript.Result{}, inferenceFailure(errors.New("audio path is required"))
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return transcript.Result{}, modelLoadFailure(errors.New("model path is required"))
	}
	if _, err := os.Stat(req.ModelPath); err != nil {
		return transcript.Result{}, modelLoadFailure(fmt.Errorf("model file: %w", err))
	}

	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	outDir, err := os.MkdirTemp("", "vidbrief-whisper-*")
	if err != nil {
		return transcript.Result{}, inferenceFailure(fmt.Errorf("create output directory: %w", err))
	}
	defer os.RemoveAll(outDir)
	outBase := filepath.Join(outDir, "result")

	args := EngineArgs(req, outBase)
	logger.Debug("running whisper engine", zap.String("engine", e.Executable), zap.Strings("args", args))

	res, err := e.Runner.Run(ctx, e.Executable, args...)
	if err != nil {
		return transcript.Result{}, inferenceFailure(err)
	}
	if exitErr := res.Err(filepath.Base(e.Executable)); exitErr != nil {
		return transcript.Result{}, classifyEngineError(e.Executable, string(res.Stderr), exitErr)
	}

	content, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return transcript.Result{}, inferenceFailure(fmt.Errorf("read whisper output: %w", err))
	}

	result, err := ParseFullJSON(content)
	if err != nil {
		return transcript.Result{}, inferenceFailure(err)
	}
	return result, nil
}

func classifyEngineError(executable, stderr string, exitErr error) error {
	text := strings.TrimSpace(stderr)
	switch {
	case isMissingSharedLibraryError(text):
		return modelLoadFailure(fmt.Errorf("whisper engine at %s is missing required shared libraries (%s): %w", executable, text, exitErr))
	case isIllegalInstructionError(text) || isIllegalInstructionError(exitErr.Error()):
		return modelLoadFailure(fmt.Errorf("whisper engine crashed with an illegal CPU instruction; set %s to a whisper-cli built for this CPU: %w", EnginePathEnv, exitErr))
	case isModelLoadError(text):
		return modelLoadFailure(exitErr)
	default:
		return inferenceFailure(exitErr)
	}
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func lookExecutable(path string) (string, error) {
	if strings.ContainsRune(path, os.PathSeparator) {
		return path, ensureExecutable(path)
	}
	return exec.LookPath(path)
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func containsAny(value string, patterns ...string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}
	return false
}

func isMissingSharedLibraryError(stderr string) bool {
	return containsAny(stderr,
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	)
}

func isIllegalInstructionError(stderr string) bool {
	return containsAny(stderr, "illegal instruction")
}

func isModelLoadError(stderr string) bool {
	return containsAny(stderr,
		"failed to load model",
		"failed to initialize whisper context",
		"invalid model data",
		"bad magic",
	)
}
