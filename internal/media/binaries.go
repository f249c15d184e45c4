package media

import (
	"os"
	"path/filepath"
	"strings"
)

// Binaries names the ffmpeg and ffprobe executables to run.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// ResolveBinaries fills in defaults. An empty ffprobe is derived from a
// concrete ffmpeg path (.../ffmpeg -> .../ffprobe) when that file exists,
// otherwise PATH lookup of "ffprobe" is used.
func ResolveBinaries(ffmpeg, ffprobe string) Binaries {
	return resolveBinariesWithStat(ffmpeg, ffprobe, os.Stat)
}

func resolveBinariesWithStat(ffmpeg, ffprobe string, stat func(string) (os.FileInfo, error)) Binaries {
	ffmpeg = strings.TrimSpace(ffmpeg)
	ffprobe = strings.TrimSpace(ffprobe)

	if ffprobe == "" && strings.ContainsRune(ffmpeg, os.PathSeparator) && filepath.Base(ffmpeg) == "ffmpeg" {
		candidate := filepath.Join(filepath.Dir(ffmpeg), "ffprobe")
		if fi, err := stat(candidate); err == nil && !fi.IsDir() {
			ffprobe = candidate
		}
	}

	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}

	return Binaries{FFmpeg: ffmpeg, FFprobe: ffprobe}
}
