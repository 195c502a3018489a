package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// BitDepth of everything this package writes.
const BitDepth = 16

// ToInt16 converts float samples to 16-bit PCM values, clipping to range.
func ToInt16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * math.MaxInt16)
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int(v)
	}
	return out
}

// PCM16LE encodes samples as little-endian signed 16-bit PCM.
func PCM16LE(samples []float32) []byte {
	ints := ToInt16(samples)
	buf := make([]byte, len(ints)*2)
	for i, v := range ints {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v))) //nolint:gosec
	}
	return buf
}

// Duration returns the playing time of n mono samples at sampleRate.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}
