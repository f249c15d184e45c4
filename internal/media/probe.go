package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fmueller/vidbrief/internal/runner"
)

var (
	ErrProbeFailed = errors.New("ffprobe failed")
	ErrProbeOutput = errors.New("ffprobe output is not valid JSON")
	ErrNoDuration  = errors.New("ffprobe reported no usable duration")
)

// File is a probed source video. It is not modified after probing.
type File struct {
	Path     string
	Duration float64
}

type Prober struct {
	Runner runner.Runner
	Binary string
}

func NewProber(r runner.Runner, binary string) *Prober {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &Prober{Runner: r, Binary: binary}
}

type probeFormat struct {
	Format *struct {
		Duration *string `json:"duration"`
	} `json:"format"`
}

// ProbeArgs is the argument vector passed to ffprobe for path.
func ProbeArgs(path string) []string {
	return []string{"-v", "quiet", "-print_format", "json", "-show_format", path}
}

// Probe returns the container duration of path in seconds.
func (p *Prober) Probe(ctx context.Context, path string) (File, error) {
	res, err := p.Runner.Run(ctx, p.Binary, ProbeArgs(path)...)
	if err != nil {
		return File{}, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if exitErr := res.Err(p.Binary); exitErr != nil {
		return File{}, fmt.Errorf("%w: %w", ErrProbeFailed, exitErr)
	}

	duration, err := ParseDuration(res.Stdout)
	if err != nil {
		return File{}, err
	}

	return File{Path: path, Duration: duration}, nil
}

// ParseDuration extracts format.duration from ffprobe's JSON output.
func ParseDuration(out []byte) (float64, error) {
	var data probeFormat
	if err := json.Unmarshal(out, &data); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeOutput, err)
	}

	if data.Format == nil || data.Format.Duration == nil {
		return 0, fmt.Errorf("%w: format.duration missing", ErrNoDuration)
	}

	raw := strings.TrimSpace(*data.Format.Duration)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: format.duration %q: %v", ErrNoDuration, raw, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("%w: format.duration %q out of range", ErrNoDuration, raw)
	}

	return value, nil
}
