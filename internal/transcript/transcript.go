package transcript

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Word is a single recognized word with its timing in seconds.
type Word struct {
	Start float64
	End   float64
	Text  string
}

// Segment is a contiguous span of recognized speech.
type Segment struct {
	Start float64
	End   float64
	Text  string
	Words []Word
}

// Result is the output of one transcription run. Segments are ordered by
// non-decreasing Start.
type Result struct {
	Language string
	Segments []Segment
}

// SortSegments orders segments by start time, keeping the engine order for
// equal starts.
func SortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
}

// Ordered reports whether segments are non-decreasing in Start.
func Ordered(segments []Segment) bool {
	for i := 1; i < len(segments); i++ {
		if segments[i].Start < segments[i-1].Start {
			return false
		}
	}
	return true
}

// FormatTimestamp renders seconds as H:MM:SS. Seconds are rounded half to
// even; hours are not wrapped at 24.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	total := int64(math.RoundToEven(seconds))
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// SegmentLine renders one transcript body line.
func SegmentLine(seg Segment) string {
	return fmt.Sprintf("[%s] %s", FormatTimestamp(seg.Start), singleLine(seg.Text))
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// singleLine trims the text and turns line breaks into spaces. Other
// whitespace inside the text is kept as the engine produced it.
func singleLine(text string) string {
	return lineBreaks.Replace(strings.TrimSpace(text))
}
