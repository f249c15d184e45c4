package audio

import "math"

// DefaultSilenceDBFS is the RMS level at or below which audio counts as
// silent.
const DefaultSilenceDBFS = -65.0

// IsSilentWAV reports whether the WAV file at path is near-silent: RMS at
// or below thresholdDBFS and peak no more than 6 dB above it.
func IsSilentWAV(path string, thresholdDBFS float64) (bool, Levels, error) {
	levels, err := MeasureLevels(path)
	if err != nil {
		return false, Levels{}, err
	}

	if levels.Samples == 0 {
		return true, levels, nil
	}
	if math.IsInf(levels.RMSdBFS, -1) && math.IsInf(levels.PeakdBFS, -1) {
		return true, levels, nil
	}

	peakGate := thresholdDBFS + 6
	return levels.RMSdBFS <= thresholdDBFS && levels.PeakdBFS <= peakGate, levels, nil
}
