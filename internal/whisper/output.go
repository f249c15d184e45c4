package whisper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fmueller/vidbrief/internal/transcript"
)

type fullOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets offsets `json:"offsets"`
		Text    string  `json:"text"`
		Tokens  []struct {
			Text    string  `json:"text"`
			Offsets offsets `json:"offsets"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// offsets are milliseconds from the start of the audio.
type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}

// ParseFullJSON decodes whisper-cli -ojf output into segments. Tokens are
// merged into words: a token starting with a space opens a new word, other
// tokens extend the previous one. Special tokens such as [_BEG_] are dropped.
func ParseFullJSON(content []byte) (transcript.Result, error) {
	var out fullOutput
	if err := json.Unmarshal(content, &out); err != nil {
		return transcript.Result{}, fmt.Errorf("parse whisper output: %w", err)
	}

	result := transcript.Result{Language: out.Result.Language}
	for _, entry := range out.Transcription {
		seg := transcript.Segment{
			Start: msToSeconds(entry.Offsets.From),
			End:   msToSeconds(entry.Offsets.To),
			Text:  strings.TrimSpace(entry.Text),
		}

		for _, tok := range entry.Tokens {
			if isSpecialToken(tok.Text) || strings.TrimSpace(tok.Text) == "" {
				continue
			}
			startsWord := strings.HasPrefix(tok.Text, " ") || len(seg.Words) == 0
			if startsWord {
				seg.Words = append(seg.Words, transcript.Word{
					Start: msToSeconds(tok.Offsets.From),
					End:   msToSeconds(tok.Offsets.To),
					Text:  strings.TrimSpace(tok.Text),
				})
				continue
			}
			last := &seg.Words[len(seg.Words)-1]
			last.Text += tok.Text
			last.End = msToSeconds(tok.Offsets.To)
		}

		result.Segments = append(result.Segments, seg)
	}

	transcript.SortSegments(result.Segments)
	return result, nil
}

func isSpecialToken(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "[_") && strings.HasSuffix(trimmed, "]")
}
