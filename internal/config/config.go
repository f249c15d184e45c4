package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/fmueller/vidbrief/internal/audio"
	"github.com/fmueller/vidbrief/internal/summary"
	"github.com/fmueller/vidbrief/internal/whisper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Input       InputConfig   `yaml:"input"`
	Whisper     WhisperConfig `yaml:"whisper"`
	Media       MediaConfig   `yaml:"media"`
	Summary     SummaryConfig `yaml:"summary"`
	SilenceGate SilenceConfig `yaml:"silence_gate"`
	Watch       WatchConfig   `yaml:"watch"`
	KeepAudio   bool          `yaml:"keep_audio"`
}

type InputConfig struct {
	Dir string `yaml:"dir"`
	Ext string `yaml:"ext"`
}

type WhisperConfig struct {
	Binary       string `yaml:"binary"`
	Model        string `yaml:"model"`
	ModelDir     string `yaml:"model_dir"`
	Language     string `yaml:"language"`
	AutoDownload bool   `yaml:"auto_download"`
}

type MediaConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

type SummaryConfig struct {
	Audience string `yaml:"audience"`
	Purpose  string `yaml:"purpose"`
}

type SilenceConfig struct {
	Enabled       bool    `yaml:"enabled"`
	ThresholdDBFS float64 `yaml:"threshold_dbfs"`
}

type WatchConfig struct {
	SettleDelay time.Duration `yaml:"settle_delay"`
}

const (
	DefaultExt         = ".mp4"
	DefaultLanguage    = "en"
	DefaultSettleDelay = 2 * time.Second
)

// Default returns the configuration used when no file is present. Input.Dir
// is left empty and resolved per OS by the caller.
func Default() Config {
	return Config{
		Input: InputConfig{Ext: DefaultExt},
		Whisper: WhisperConfig{
			Model:        whisper.DefaultModel,
			Language:     DefaultLanguage,
			AutoDownload: true,
		},
		Media: MediaConfig{FFmpeg: "ffmpeg"},
		Summary: SummaryConfig{
			Audience: summary.DefaultAudience,
			Purpose:  summary.DefaultPurpose,
		},
		SilenceGate: SilenceConfig{ThresholdDBFS: audio.DefaultSilenceDBFS},
		Watch:       WatchConfig{SettleDelay: DefaultSettleDelay},
	}
}

// Load reads the YAML file at path on top of Default. A missing file is not
// an error unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

// Validate normalizes values in place and rejects ones the pipeline cannot
// use.
func (c *Config) Validate() error {
	c.Input.Ext = NormalizeExt(c.Input.Ext)
	if c.Input.Ext == "." {
		return errors.New("input.ext must not be empty")
	}

	c.Whisper.Language = SanitizeLanguage(c.Whisper.Language)
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = whisper.DefaultModel
	}

	if strings.TrimSpace(c.Media.FFmpeg) == "" {
		c.Media.FFmpeg = "ffmpeg"
	}
	if strings.TrimSpace(c.Summary.Audience) == "" {
		c.Summary.Audience = summary.DefaultAudience
	}
	if strings.TrimSpace(c.Summary.Purpose) == "" {
		c.Summary.Purpose = summary.DefaultPurpose
	}

	threshold := c.SilenceGate.ThresholdDBFS
	if math.IsNaN(threshold) || threshold > 0 {
		return fmt.Errorf("silence_gate.threshold_dbfs must be <= 0, got %v", threshold)
	}

	if c.Watch.SettleDelay < 0 {
		return fmt.Errorf("watch.settle_delay must not be negative, got %s", c.Watch.SettleDelay)
	}
	if c.Watch.SettleDelay == 0 {
		c.Watch.SettleDelay = DefaultSettleDelay
	}
	return nil
}

// NormalizeExt lowercases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// SanitizeLanguage lowercases the hint. "auto" and empty mean the engine
// detects the language itself.
func SanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
