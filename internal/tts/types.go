package tts

import "encoding/json"

// SampleRate is the output rate of the synthesis pipeline in Hz. Audio is
// mono float32.
const SampleRate = 24000

// Stages reported in error context.
const (
	StageList        = "list"
	StageMaterialize = "materialize"
	StageSynthesis   = "synthesis"
)

// Token is a lexical unit emitted by the pipeline. Start and End are seconds
// relative to the start of the chunk the token arrived in; either may be nil
// when the pipeline could not align the token.
type Token struct {
	Text  string   `json:"text"`
	Tag   string   `json:"tag"`
	Start *float64 `json:"start_ts"`
	End   *float64 `json:"end_ts"`
}

// Chunk is one unit of streamed synthesis output.
type Chunk struct {
	// Samples is mono audio at the pipeline's sample rate.
	Samples []float32

	// Tokens covers the text span synthesized in this chunk.
	Tokens []Token
}

// WordTiming is a word with timestamps relative to the start of the whole
// utterance.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// MarshalTimings encodes timings as the JSON array written next to the audio.
func MarshalTimings(timings []WordTiming) ([]byte, error) {
	if timings == nil {
		timings = []WordTiming{}
	}
	return json.Marshal(timings)
}

// Float returns a pointer to v, for building tokens.
func Float(v float64) *float64 {
	return &v
}
