package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

const (
	formatPCM   = 1
	formatFloat = 3
)

// Format is the fmt chunk of a RIFF/WAVE file.
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// Info describes a WAV file without its sample data.
type Info struct {
	Format
	DataOffset int64
	DataSize   uint32
}

// Duration is the playback length in seconds derived from the data size.
func (i Info) Duration() float64 {
	frameSize := int64(i.Channels) * int64(i.BitsPerSample/8)
	if frameSize == 0 || i.SampleRate == 0 {
		return 0
	}
	return float64(int64(i.DataSize)/frameSize) / float64(i.SampleRate)
}

// Inspect reads the chunk headers of the WAV file at path.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	return readInfo(f)
}

func readInfo(r io.ReadSeeker) (Info, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Info{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return Info{}, fmt.Errorf("read wav header: %w", err)
	}
	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Info{}, ErrInvalidWAV
	}

	var (
		info    Info
		hasFmt  bool
		hasData bool
	)

	chunkHeader := make([]byte, 8)
	for !(hasFmt && hasData) {
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return Info{}, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])
		skip := int64(chunkSize)
		if chunkSize%2 != 0 {
			skip++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Info{}, ErrInvalidWAV
			}
			buf := make([]byte, skip)
			if _, err := io.ReadFull(r, buf); err != nil {
				return Info{}, fmt.Errorf("read wav fmt chunk: %w", err)
			}
			info.AudioFormat = binary.LittleEndian.Uint16(buf[0:2])
			info.Channels = binary.LittleEndian.Uint16(buf[2:4])
			info.SampleRate = binary.LittleEndian.Uint32(buf[4:8])
			info.BitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			hasFmt = true
		case "data":
			offset, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return Info{}, fmt.Errorf("seek wav data chunk: %w", err)
			}
			info.DataOffset = offset
			info.DataSize = chunkSize
			hasData = true
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return Info{}, fmt.Errorf("seek wav data chunk: %w", err)
			}
		default:
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return Info{}, fmt.Errorf("seek wav chunk %s: %w", chunkID, err)
			}
		}
	}

	if !hasFmt || !hasData {
		return Info{}, ErrInvalidWAV
	}
	if err := validateFormat(info.AudioFormat, info.BitsPerSample); err != nil {
		return Info{}, err
	}
	return info, nil
}

func validateFormat(audioFormat, bitsPerSample uint16) error {
	switch audioFormat {
	case formatPCM:
		switch bitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
	case formatFloat:
		switch bitsPerSample {
		case 32, 64:
			return nil
		}
	}
	return ErrUnsupportedWAV
}

// Levels summarizes the amplitude of the sample data.
type Levels struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// MeasureLevels streams the data chunk of the WAV file at path and returns
// its RMS and peak level.
func MeasureLevels(path string) (Levels, error) {
	f, err := os.Open(path)
	if err != nil {
		return Levels{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	info, err := readInfo(f)
	if err != nil {
		return Levels{}, err
	}
	if _, err := f.Seek(info.DataOffset, io.SeekStart); err != nil {
		return Levels{}, fmt.Errorf("seek wav data offset: %w", err)
	}

	bytesPerSample := int(info.BitsPerSample / 8)
	reader := bufio.NewReaderSize(io.LimitReader(f, int64(info.DataSize)), 64*1024)
	sample := make([]byte, bytesPerSample)

	var (
		peak       float64
		sumSquares float64
		samples    int64
	)
	for {
		if _, err := io.ReadFull(reader, sample); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return Levels{}, fmt.Errorf("read wav data: %w", err)
		}

		value := decodeSample(sample, info.AudioFormat, info.BitsPerSample)
		if abs := math.Abs(value); abs > peak {
			peak = abs
		}
		sumSquares += value * value
		samples++
	}

	if samples == 0 {
		return Levels{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	return Levels{
		RMSdBFS:  amplitudeToDBFS(math.Sqrt(sumSquares / float64(samples))),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}, nil
}

// decodeSample normalizes one sample to [-1, 1]. The format has already
// been validated.
func decodeSample(sample []byte, audioFormat, bitsPerSample uint16) float64 {
	if audioFormat == formatFloat {
		if bitsPerSample == 64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(sample))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(sample)))
	}

	switch bitsPerSample {
	case 8:
		return (float64(sample[0]) - 128.0) / 128.0
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(sample))) / 32768.0
	case 24:
		v := int32(sample[0]) | int32(sample[1])<<8 | int32(sample[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608.0
	default:
		return float64(int32(binary.LittleEndian.Uint32(sample))) / 2147483648.0
	}
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
