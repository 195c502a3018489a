package timeline

import (
	"errors"
	"iter"
	"math"
	"testing"

	"github.com/dgnsrekt/kokoro/internal/tts"
)

const epsilon = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func word(text string, start, end float64) tts.Token {
	return tts.Token{Text: text, Tag: "NN", Start: tts.Float(start), End: tts.Float(end)}
}

func punct(text string, start, end float64) tts.Token {
	return tts.Token{Text: text, Tag: text, Start: tts.Float(start), End: tts.Float(end)}
}

func TestIsPunctuationOnly(t *testing.T) {
	tests := []struct {
		name string
		tok  tts.Token
		want bool
	}{
		{"comma", tts.Token{Text: ",", Tag: ","}, true},
		{"period", tts.Token{Text: ".", Tag: "."}, true},
		{"padded period", tts.Token{Text: " . ", Tag: "."}, true},
		{"empty text with punct tag", tts.Token{Text: "", Tag: ":"}, true},
		{"abbreviation", tts.Token{Text: "Mr.", Tag: "."}, false},
		{"ellipsis", tts.Token{Text: "...", Tag: "."}, false},
		{"word", tts.Token{Text: "Hello", Tag: "UH"}, false},
		{"single letter word", tts.Token{Text: "a", Tag: "DT"}, false},
		{"punct text with word tag", tts.Token{Text: ",", Tag: "NN"}, false},
		{"quote tag not in set", tts.Token{Text: `"`, Tag: "``"}, false},
		{"multibyte single rune", tts.Token{Text: "—", Tag: "-"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPunctuationOnly(tt.tok); got != tt.want {
				t.Errorf("IsPunctuationOnly(%+v) = %v, want %v", tt.tok, got, tt.want)
			}
		})
	}
}

func TestExtractWordTimingsCount(t *testing.T) {
	tokens := []tts.Token{
		word("The", 0, 0.1),
		punct(",", 0.1, 0.15),
		{Text: "quick", Tag: "JJ", Start: tts.Float(0.15)},
		{Text: "brown", Tag: "JJ", End: tts.Float(0.4)},
		{Text: "fox", Tag: "NN"},
		punct(".", 0.5, 0.55),
		{Text: "Mr.", Tag: ".", Start: tts.Float(0.6), End: tts.Float(0.8)},
		word("Smith", 0.8, 0.8),
	}

	got := ExtractWordTimings(tokens, 2.0)

	// 8 tokens - 2 punctuation-only - 3 missing a timestamp endpoint
	if len(got) != 3 {
		t.Fatalf("Expected 3 timings, got %d: %+v", len(got), got)
	}

	want := []tts.WordTiming{
		{Word: "The", Start: 2.0, End: 2.1},
		{Word: "Mr.", Start: 2.6, End: 2.8},
		{Word: "Smith", Start: 2.8, End: 2.8},
	}
	for i := range want {
		if got[i].Word != want[i].Word || !near(got[i].Start, want[i].Start) || !near(got[i].End, want[i].End) {
			t.Errorf("timing %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExtractWordTimingsKeepsUntrimmedText(t *testing.T) {
	got := ExtractWordTimings([]tts.Token{word(" world ", 0, 0.3)}, 0)
	if len(got) != 1 || got[0].Word != " world " {
		t.Errorf("Expected untrimmed word, got %+v", got)
	}
}

func TestAssembleExample(t *testing.T) {
	chunks := []tts.Chunk{
		{
			Samples: make([]float32, 24000),
			Tokens:  []tts.Token{word("Hello", 0.0, 0.4), punct(",", 0.4, 0.45)},
		},
		{
			Samples: make([]float32, 12000),
			Tokens:  []tts.Token{word("world", 0.0, 0.3)},
		},
	}

	res, err := New(tts.SampleRate).Assemble(Slice(chunks))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	want := []tts.WordTiming{
		{Word: "Hello", Start: 0.0, End: 0.4},
		{Word: "world", Start: 1.0, End: 1.3},
	}
	if len(res.Timings) != len(want) {
		t.Fatalf("Expected %d timings, got %+v", len(want), res.Timings)
	}
	for i := range want {
		g := res.Timings[i]
		if g.Word != want[i].Word || !near(g.Start, want[i].Start) || !near(g.End, want[i].End) {
			t.Errorf("timing %d = %+v, want %+v", i, g, want[i])
		}
	}

	if !near(res.Elapsed, 1.5) {
		t.Errorf("Expected elapsed 1.5s, got %v", res.Elapsed)
	}
	if len(res.Audio) != 36000 {
		t.Errorf("Expected 36000 samples, got %d", len(res.Audio))
	}
	if res.Chunks != 2 || res.SampleRate != tts.SampleRate {
		t.Errorf("Unexpected result metadata: %+v", res)
	}
}

func TestAssembleElapsedIgnoresTokens(t *testing.T) {
	sizes := []int{24000, 0, 6000, 480, 12000}
	tokenSets := [][]tts.Token{
		nil,
		{word("silent", 0, 0)},
		{punct(".", 0, 0.1), punct(",", 0.1, 0.2)},
		{{Text: "untimed", Tag: "NN"}},
		{word("a", 0, 0.1), word("b", 0.1, 0.2)},
	}

	var chunks []tts.Chunk
	var want float64
	for i, n := range sizes {
		chunks = append(chunks, tts.Chunk{Samples: make([]float32, n), Tokens: tokenSets[i]})
		want += float64(n) / tts.SampleRate
	}

	res, err := (&Assembler{}).Assemble(Slice(chunks))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !near(res.Elapsed, want) {
		t.Errorf("Elapsed = %v, want %v", res.Elapsed, want)
	}

	// "silent" sits at the start of chunk 1, after 1s of chunk 0.
	if res.Timings[0].Word != "silent" || !near(res.Timings[0].Start, 1.0) {
		t.Errorf("Unexpected first timing %+v", res.Timings[0])
	}
	// "a" starts after 1s + 0s + 0.25s + 0.02s.
	if res.Timings[1].Word != "a" || !near(res.Timings[1].Start, 1.27) {
		t.Errorf("Unexpected second timing %+v", res.Timings[1])
	}
}

func TestAssembleStartsNonDecreasing(t *testing.T) {
	var chunks []tts.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, tts.Chunk{
			Samples: make([]float32, 2400*(i+1)),
			Tokens: []tts.Token{
				word("w", 0, 0.05),
				punct(",", 0.05, 0.06),
				word("x", 0.06, 0.1),
			},
		})
	}

	res, err := New(tts.SampleRate).Assemble(Slice(chunks))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(res.Timings) != 20 {
		t.Fatalf("Expected 20 timings, got %d", len(res.Timings))
	}
	for i := 1; i < len(res.Timings); i++ {
		if res.Timings[i].Start < res.Timings[i-1].Start {
			t.Fatalf("Start decreased at %d: %v < %v", i, res.Timings[i].Start, res.Timings[i-1].Start)
		}
	}
}

func TestAssemblePreservesOverlap(t *testing.T) {
	chunks := []tts.Chunk{{
		Samples: make([]float32, 2400),
		Tokens:  []tts.Token{word("one", 0.2, 0.5), word("two", 0.1, 0.3)},
	}}

	res, err := New(tts.SampleRate).Assemble(Slice(chunks))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if res.Timings[0].Word != "one" || res.Timings[1].Word != "two" || !near(res.Timings[1].Start, 0.1) {
		t.Errorf("Expected timings as given, got %+v", res.Timings)
	}
}

func TestAssembleConcatenatesInOrder(t *testing.T) {
	chunks := []tts.Chunk{
		{Samples: []float32{0.1, 0.2}},
		{Samples: []float32{}},
		{Samples: []float32{-0.5}},
	}

	res, err := New(tts.SampleRate).Assemble(Slice(chunks))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	want := []float32{0.1, 0.2, -0.5}
	if len(res.Audio) != len(want) {
		t.Fatalf("Audio = %v, want %v", res.Audio, want)
	}
	for i := range want {
		if res.Audio[i] != want[i] {
			t.Errorf("Audio[%d] = %v, want %v", i, res.Audio[i], want[i])
		}
	}
	if res.Chunks != 3 {
		t.Errorf("Expected 3 chunks, got %d", res.Chunks)
	}
}

func TestAssembleEmptyOutput(t *testing.T) {
	res, err := New(tts.SampleRate).Assemble(Slice(nil))
	if !errors.Is(err, tts.ErrEmptyOutput) {
		t.Fatalf("Expected ErrEmptyOutput, got %v", err)
	}
	if res != nil {
		t.Error("Expected no result")
	}
}

func TestAssembleSilentChunkIsNotEmpty(t *testing.T) {
	res, err := New(tts.SampleRate).Assemble(Slice([]tts.Chunk{{}}))
	if err != nil {
		t.Fatalf("A chunk with no samples is valid silence: %v", err)
	}
	if res.Elapsed != 0 || len(res.Audio) != 0 || len(res.Timings) != 0 {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestAssembleStopsOnStreamError(t *testing.T) {
	boom := errors.New("pipeline crashed")
	pulled := 0

	var stream iter.Seq2[tts.Chunk, error] = func(yield func(tts.Chunk, error) bool) {
		pulled++
		if !yield(tts.Chunk{Samples: make([]float32, 100), Tokens: []tts.Token{word("a", 0, 0.1)}}, nil) {
			return
		}
		pulled++
		if !yield(tts.Chunk{}, boom) {
			return
		}
		pulled++
		yield(tts.Chunk{Samples: make([]float32, 100)}, nil)
	}

	res, err := New(tts.SampleRate).Assemble(stream)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected stream error, got %v", err)
	}
	if res != nil {
		t.Error("Expected no partial result")
	}
	if pulled != 2 {
		t.Errorf("Expected iteration to stop after the error, pulled %d", pulled)
	}
}

func TestAssembleProcessesChunkBeforeNextPull(t *testing.T) {
	var seen []int

	stream := func(yield func(tts.Chunk, error) bool) {
		for i := 0; i < 3; i++ {
			seen = append(seen, i)
			if !yield(tts.Chunk{Samples: make([]float32, 10)}, nil) {
				return
			}
			if len(seen) != i+1 {
				t.Errorf("Chunk %d pulled ahead of processing", i)
			}
		}
	}

	if _, err := New(tts.SampleRate).Assemble(stream); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("Expected 3 pulls, got %d", len(seen))
	}
}
