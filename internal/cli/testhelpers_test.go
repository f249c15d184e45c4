package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/vidbrief/internal/runner"
	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	return runApp(t, newAppState(), args)
}

func runApp(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// emptyConfig writes an empty config file so tests do not pick up the
// developer's own configuration.
func emptyConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

// fakeApp returns an appState whose external tools are faked: ffprobe
// reports 75 seconds, ffmpeg writes its destination file, and transcription
// yields two segments.
func fakeApp(failExtract ...string) (*appState, *runner.Fake) {
	failing := make(map[string]bool, len(failExtract))
	for _, src := range failExtract {
		failing[src] = true
	}

	fake := &runner.Fake{Handler: func(_ context.Context, name string, args []string) (runner.Result, error) {
		switch name {
		case "ffprobe":
			return runner.Result{Stdout: []byte(`{"format":{"duration":"75.0"}}`)}, nil
		case "ffmpeg":
			src, dst := args[3], args[len(args)-1]
			if failing[src] {
				return runner.Result{ExitCode: 1, Stderr: []byte("moov atom not found")}, nil
			}
			return runner.Result{}, os.WriteFile(dst, []byte("RIFF"), 0o644)
		default:
			return runner.Result{}, errors.New("unexpected command " + name)
		}
	}}

	app := newAppState()
	app.runner = fake
	app.transcribeFn = func(context.Context, string) (transcript.Result, error) {
		return transcript.Result{Segments: []transcript.Segment{
			{Start: 0, Text: "hello"},
			{Start: 75, Text: "world"},
		}}, nil
	}
	return app, fake
}

func makePCM16WAVForTest(samples []int16, sampleRate int, channels int) []byte {
	bytesPerSample := 2
	dataSize := len(samples) * bytesPerSample
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	out := make([]byte, 12+8+fmtChunkSize+8+dataSize)
	off := 0

	copy(out[off:], []byte("RIFF"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(riffSize))
	off += 4
	copy(out[off:], []byte("WAVE"))
	off += 4

	copy(out[off:], []byte("fmt "))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(fmtChunkSize))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint16(out[off:], uint16(channels))
	off += 2
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate*channels*bytesPerSample))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], uint16(channels*bytesPerSample))
	off += 2
	binary.LittleEndian.PutUint16(out[off:], 16)
	off += 2

	copy(out[off:], []byte("data"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(dataSize))
	off += 4

	for _, s := range samples {
		binary.LittleEndian.PutUint16(out[off:], uint16(s))
		off += 2
	}

	return out
}
