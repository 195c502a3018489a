//go:build nocgo
// +build nocgo

package audio

import (
	"context"
	"errors"
)

// Play is unavailable in builds without cgo.
func Play(context.Context, []float32, int) error {
	return errors.New("audio playback not available in nocgo build")
}
