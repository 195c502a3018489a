package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "speech.wav")

	samples := make([]float32, 2400)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(float64(i)/10))
	}

	if err := WriteWAV(path, samples, 24000); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	got, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if rate != 24000 {
		t.Errorf("Expected 24000 Hz, got %d", rate)
	}
	if len(got) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if math.Abs(float64(got[i]-samples[i])) > 1e-4 {
			t.Fatalf("sample %d = %v, want %v", i, got[i], samples[i])
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the wav file, found %d entries", len(entries))
	}
}

func TestWriteWAVInvalidRate(t *testing.T) {
	if err := WriteWAV(filepath.Join(t.TempDir(), "x.wav"), nil, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}
