// Package timeline stitches independently timed synthesis chunks into one
// waveform and one utterance-wide word timeline.
package timeline

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/tts"
)

// PunctuationTags are the token tags that mark punctuation.
var PunctuationTags = map[string]struct{}{
	".": {}, ",": {}, "!": {}, "?": {}, ":": {}, ";": {}, "-": {}, "(": {}, ")": {},
}

// IsPunctuationOnly reports whether tok is bare punctuation: its tag is a
// punctuation tag and its trimmed text is at most one character. "Mr." with
// a "." tag is kept.
func IsPunctuationOnly(tok tts.Token) bool {
	if _, ok := PunctuationTags[tok.Tag]; !ok {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(tok.Text)) <= 1
}

// ExtractWordTimings converts the timed, non-punctuation tokens to word
// timings shifted by offset seconds. Token text is kept as produced.
func ExtractWordTimings(tokens []tts.Token, offset float64) []tts.WordTiming {
	var timings []tts.WordTiming
	for _, tok := range tokens {
		if IsPunctuationOnly(tok) {
			continue
		}
		if tok.Start == nil || tok.End == nil {
			continue
		}
		timings = append(timings, tts.WordTiming{
			Word:  tok.Text,
			Start: offset + *tok.Start,
			End:   offset + *tok.End,
		})
	}
	return timings
}

// Result is a fully assembled utterance.
type Result struct {
	// Audio is every chunk's samples concatenated in arrival order.
	Audio []float32

	// Timings is ordered by emission.
	Timings []tts.WordTiming

	// Elapsed is the total audio duration in seconds.
	Elapsed float64

	// Chunks is the number of chunks consumed.
	Chunks int

	SampleRate int
}

// Assembler consumes a chunk stream. The zero value uses tts.SampleRate.
type Assembler struct {
	SampleRate int
}

// New creates an assembler for audio at sampleRate.
func New(sampleRate int) *Assembler {
	return &Assembler{SampleRate: sampleRate}
}

// Assemble pulls chunks one at a time, fully processing each before asking
// for the next. A stream error aborts assembly and no partial result is
// returned. A stream without chunks fails with tts.ErrEmptyOutput.
func (a *Assembler) Assemble(chunks iter.Seq2[tts.Chunk, error]) (*Result, error) {
	rate := a.SampleRate
	if rate <= 0 {
		rate = tts.SampleRate
	}

	var (
		audio   [][]float32
		timings = []tts.WordTiming{}
		elapsed float64
		total   int
	)

	for chunk, err := range chunks {
		if err != nil {
			return nil, err
		}

		audio = append(audio, chunk.Samples)
		total += len(chunk.Samples)
		timings = append(timings, ExtractWordTimings(chunk.Tokens, elapsed)...)

		elapsed += float64(len(chunk.Samples)) / float64(rate)

		log.Debug("Chunk assembled",
			"index", len(audio)-1,
			"samples", len(chunk.Samples),
			"tokens", len(chunk.Tokens),
			"elapsed", elapsed)
	}

	if len(audio) == 0 {
		return nil, tts.NewError(tts.ErrorCodeEmptyOutput, "pipeline yielded no chunks", nil).
			WithContext("stage", tts.StageSynthesis)
	}

	joined := make([]float32, 0, total)
	for _, samples := range audio {
		joined = append(joined, samples...)
	}

	return &Result{
		Audio:      joined,
		Timings:    timings,
		Elapsed:    elapsed,
		Chunks:     len(audio),
		SampleRate: rate,
	}, nil
}

// Slice adapts a fixed list of chunks to a stream.
func Slice(chunks []tts.Chunk) iter.Seq2[tts.Chunk, error] {
	return func(yield func(tts.Chunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}
