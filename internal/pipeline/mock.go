package pipeline

import (
	"context"
	"iter"
	"math"
	"strings"
	"unicode"

	"github.com/dgnsrekt/kokoro/internal/tts"
)

// Mock is a deterministic pipeline for tests and dry runs. It emits one
// chunk per sentence with a fixed duration per word and a short tone as
// audio.
type Mock struct {
	// SampleRate of the generated audio. Zero means tts.SampleRate.
	SampleRate int

	// WordDuration in seconds. Zero means 0.25.
	WordDuration float64

	// FailAfter makes the stream fail with Err after that many chunks when
	// Err is set.
	FailAfter int
	Err       error

	calls int
}

var _ tts.Pipeline = (*Mock)(nil)

// NewMock creates a mock pipeline with default timing.
func NewMock() *Mock {
	return &Mock{SampleRate: tts.SampleRate, WordDuration: 0.25}
}

// Calls returns how many streams were started.
func (m *Mock) Calls() int {
	return m.calls
}

// Stream splits req.Text into sentences and yields one chunk per sentence.
func (m *Mock) Stream(ctx context.Context, req tts.Request) iter.Seq2[tts.Chunk, error] {
	return func(yield func(tts.Chunk, error) bool) {
		m.calls++
		rate := m.SampleRate
		if rate <= 0 {
			rate = tts.SampleRate
		}
		per := m.WordDuration
		if per <= 0 {
			per = 0.25
		}

		for i, sentence := range splitSentences(req.Text) {
			if err := ctx.Err(); err != nil {
				yield(tts.Chunk{}, err)
				return
			}
			if m.Err != nil && i >= m.FailAfter {
				yield(tts.Chunk{}, m.Err)
				return
			}

			var (
				tokens []tts.Token
				t      float64
			)
			for _, w := range strings.Fields(sentence) {
				text, trail := splitTrailingPunct(w)
				if text != "" {
					tokens = append(tokens, tts.Token{Text: text, Tag: "NN", Start: tts.Float(t), End: tts.Float(t + per)})
					t += per
				}
				if trail != "" {
					tokens = append(tokens, tts.Token{Text: trail, Tag: string([]rune(trail)[0]), Start: tts.Float(t), End: tts.Float(t)})
				}
			}

			if !yield(tts.Chunk{Samples: tone(int(t*float64(rate)), rate), Tokens: tokens}, nil) {
				return
			}
		}
	}
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func splitTrailingPunct(w string) (string, string) {
	i := strings.LastIndexFunc(w, func(r rune) bool { return !unicode.IsPunct(r) })
	return w[:i+1], w[i+1:]
}

// tone returns n samples of a quiet 220 Hz sine.
func tone(n, rate int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.1 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
	}
	return out
}
