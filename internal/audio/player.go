//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoCtx     *oto.Context
	otoRate    int
	otoErr     error
	otoCtxOnce sync.Once
)

func audioContext(sampleRate int) (*oto.Context, error) {
	otoCtxOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx, otoRate = ctx, sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("audio device already opened at %d Hz, cannot play %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// Play blocks until samples have been played or ctx is done.
func Play(ctx context.Context, samples []float32, sampleRate int) error {
	c, err := audioContext(sampleRate)
	if err != nil {
		return err
	}

	// data must stay referenced until the player is closed.
	data := PCM16LE(samples)
	p := c.NewPlayer(bytes.NewReader(data))
	defer p.Close() //nolint:errcheck

	log.Debug("Playback started", "duration", Duration(len(samples), sampleRate))
	p.Play()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			p.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return p.Err()
}
