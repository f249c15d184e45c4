package whisper

import (
	"testing"

	"github.com/fmueller/vidbrief/internal/transcript"
	"github.com/stretchr/testify/require"
)

const sampleFullJSON = `{
  "result": {"language": "en"},
  "transcription": [
    {
      "timestamps": {"from": "00:00:02,500", "to": "00:00:04,000"},
      "offsets": {"from": 2500, "to": 4000},
      "text": " world",
      "tokens": [
        {"text": "[_BEG_]", "offsets": {"from": 2500, "to": 2500}},
        {"text": " world", "offsets": {"from": 2500, "to": 4000}}
      ]
    },
    {
      "timestamps": {"from": "00:00:00,000", "to": "00:00:02,500"},
      "offsets": {"from": 0, "to": 2500},
      "text": " Hello there",
      "tokens": [
        {"text": " Hel", "offsets": {"from": 0, "to": 400}},
        {"text": "lo", "offsets": {"from": 400, "to": 900}},
        {"text": " there", "offsets": {"from": 1000, "to": 2400}},
        {"text": "[_TT_125]", "offsets": {"from": 2500, "to": 2500}}
      ]
    }
  ]
}`

func TestParseFullJSONBuildsOrderedSegmentsAndWords(t *testing.T) {
	t.Parallel()

	result, err := ParseFullJSON([]byte(sampleFullJSON))
	require.NoError(t, err)
	require.Equal(t, "en", result.Language)
	require.Len(t, result.Segments, 2)
	require.True(t, transcript.Ordered(result.Segments))

	first := result.Segments[0]
	require.Equal(t, "Hello there", first.Text)
	require.InDelta(t, 0.0, first.Start, 1e-9)
	require.InDelta(t, 2.5, first.End, 1e-9)
	require.Equal(t, []transcript.Word{
		{Start: 0, End: 0.9, Text: "Hello"},
		{Start: 1.0, End: 2.4, Text: "there"},
	}, first.Words)

	second := result.Segments[1]
	require.Equal(t, "world", second.Text)
	require.InDelta(t, 2.5, second.Start, 1e-9)
	require.Equal(t, []transcript.Word{{Start: 2.5, End: 4.0, Text: "world"}}, second.Words)
}

func TestParseFullJSONEmptyTranscription(t *testing.T) {
	t.Parallel()

	result, err := ParseFullJSON([]byte(`{"result":{"language":"en"},"transcription":[]}`))
	require.NoError(t, err)
	require.Empty(t, result.Segments)
}

func TestParseFullJSONRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseFullJSON([]byte("whisper_init_from_file: loading model"))
	require.Error(t, err)
}
