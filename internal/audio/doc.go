// Package audio writes assembled utterances to WAV files and plays them
// through the system audio device.
//
// Samples arrive as mono float32 in [-1, 1] and are converted to signed
// 16-bit PCM for both paths; out-of-range values are clipped.
package audio
