package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dgnsrekt/kokoro/internal/audio"
	"github.com/dgnsrekt/kokoro/internal/speech"
	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

const followRate = 20 * time.Millisecond

var (
	playTimings string

	playCmd = &cobra.Command{
		Use:   "play FILE",
		Short: "Play a rendered WAV file",
		Long: paragraph(fmt.Sprintf("\n%s a file written by say. With --timings every word is printed as it is spoken.",
			keyword("Play"))),
		Example: paragraph("kokoro play hello.wav\nkokoro play readme.wav --timings readme.json"),
		Args:    cobra.ExactArgs(1),
		RunE:    runPlay,
	}
)

func runPlay(cmd *cobra.Command, args []string) error {
	path, err := homedir.Expand(args[0])
	if err != nil {
		return err
	}
	samples, rate, err := audio.ReadWAV(path)
	if err != nil {
		return tts.NewError(tts.ErrorCodeIOFailure, "unable to read audio", err).WithContext("path", path)
	}

	var timings []tts.WordTiming
	if playTimings != "" {
		p, err := homedir.Expand(playTimings)
		if err != nil {
			return err
		}
		if timings, err = speech.ReadTimings(p); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	if len(timings) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			followWords(ctx, cmd.OutOrStdout(), timings, time.Now(), followRate, stop)
		}()
	}

	err = audio.Play(ctx, samples, rate)
	close(stop)
	wg.Wait()
	return err
}

// followWords prints each word once playback started at start has reached
// its start time. When stop is closed the words already due are printed and
// it returns.
func followWords(ctx context.Context, w io.Writer, timings []tts.WordTiming, start time.Time, every time.Duration, stop <-chan struct{}) {
	next := 0
	flush := func() {
		elapsed := time.Since(start).Seconds()
		for next < len(timings) && timings[next].Start <= elapsed {
			fmt.Fprintln(w, timings[next].Word)
			next++
		}
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for next < len(timings) {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			flush()
			return
		case <-ticker.C:
			flush()
		}
	}
}

func init() {
	playCmd.Flags().StringVar(&playTimings, "timings", "", "word timings JSON written by say")
}
