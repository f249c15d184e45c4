package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fmueller/vidbrief/internal/runner"
)

const (
	SampleRate = 16000
	Channels   = 1
)

// ExtractError is returned when ffmpeg exits non-zero. It keeps the
// captured output so the caller can surface it.
type ExtractError struct {
	Source string
	Exit   *runner.ExitError
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract audio from %s: %v", e.Source, e.Exit)
}

func (e *ExtractError) Unwrap() error {
	return e.Exit
}

type Extractor struct {
	Runner runner.Runner
	Binary string
}

func NewExtractor(r runner.Runner, binary string) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Extractor{Runner: r, Binary: binary}
}

// ExtractArgs is the ffmpeg argument vector that strips video and writes
// mono 16 kHz signed 16-bit PCM to dst, overwriting it.
func ExtractArgs(src, dst string) []string {
	return []string{
		"-nostdin", "-hide_banner",
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-y",
		dst,
	}
}

// Extract writes the waveform for src to dst. On failure no file is left
// at dst.
func (x *Extractor) Extract(ctx context.Context, src, dst string) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return errors.New("source and destination paths are required")
	}
	if filepath.Clean(src) == filepath.Clean(dst) {
		return fmt.Errorf("destination %s would overwrite the source", dst)
	}

	res, err := x.Runner.Run(ctx, x.Binary, ExtractArgs(src, dst)...)
	if err != nil {
		removePartial(dst)
		return fmt.Errorf("extract audio from %s: %w", src, err)
	}

	if runErr := res.Err(x.Binary); runErr != nil {
		removePartial(dst)
		var exitErr *runner.ExitError
		errors.As(runErr, &exitErr)
		return &ExtractError{Source: src, Exit: exitErr}
	}

	return nil
}

// WaveformPath is where the transient waveform for src is written: the
// source path with a .wav extension, or .extracted.wav when the source is
// itself a WAV file.
func WaveformPath(src string) string {
	base := strings.TrimSuffix(src, filepath.Ext(src))
	if strings.EqualFold(filepath.Ext(src), ".wav") {
		return base + ".extracted.wav"
	}
	return base + ".wav"
}

func removePartial(path string) {
	_ = os.Remove(path)
}
