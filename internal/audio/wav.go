package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes mono samples to path as a 16-bit PCM WAV file. The file is
// written next to path first and renamed into place once complete.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".*.wav.tmp")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	enc := wav.NewEncoder(tmp, sampleRate, BitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Data:           ToInt16(samples),
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to finalize wav: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close output file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("unable to move output into place: %w", err)
	}
	return nil
}

// ReadWAV decodes a 16-bit mono WAV file written by WriteWAV.
func ReadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to open wav: %w", err)
	}
	defer f.Close() //nolint:errcheck

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s is not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("unable to decode wav: %w", err)
	}

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / 32767
	}
	return out, int(dec.SampleRate), nil
}
