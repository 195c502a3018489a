// Package pipeline drives the external synthesis engine and exposes its
// output as a pull-driven chunk stream.
package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/tts"
)

// Subprocess runs the synthesis engine as a child process. The text is
// written to its stdin; it prints one JSON object per chunk on stdout:
//
//	{"audio": "<base64 little-endian float32 samples>",
//	 "tokens": [{"text": "Hello", "tag": "UH", "start_ts": 0.0, "end_ts": 0.4}]}
//
// start_ts and end_ts may be null.
type Subprocess struct {
	command string
	args    []string
	timeout time.Duration
}

var _ tts.Pipeline = (*Subprocess)(nil)

// NewSubprocess creates a pipeline running cfg.Command.
func NewSubprocess(cfg tts.PipelineConfig) *Subprocess {
	return &Subprocess{
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		timeout: cfg.Timeout,
	}
}

type wireChunk struct {
	Audio  string      `json:"audio"`
	Tokens []tts.Token `json:"tokens"`
}

// Stream starts the engine and yields its chunks as they are printed. The
// process is started on the first pull and killed if the consumer stops
// early.
func (p *Subprocess) Stream(ctx context.Context, req tts.Request) iter.Seq2[tts.Chunk, error] {
	return func(yield func(tts.Chunk, error) bool) {
		var (
			runCtx context.Context
			cancel context.CancelFunc
		)
		if p.timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		} else {
			runCtx, cancel = context.WithCancel(ctx)
		}
		defer cancel()

		args := append(append([]string(nil), p.args...),
			"--voice", req.Voice,
			"--lang", req.Lang,
			"--repo", req.Repo)

		cmd := exec.CommandContext(runCtx, p.command, args...) //nolint:gosec
		cmd.Stdin = strings.NewReader(req.Text)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(tts.Chunk{}, synthesisError(fmt.Errorf("failed to create stdout pipe: %w", err), ""))
			return
		}

		start := time.Now()
		if err := cmd.Start(); err != nil {
			yield(tts.Chunk{}, synthesisError(fmt.Errorf("failed to start %s: %w", p.command, err), ""))
			return
		}
		log.Debug("Pipeline started", "command", p.command, "voice", req.Voice, "lang", req.Lang)

		dec := json.NewDecoder(stdout)
		for index := 0; ; index++ {
			var wc wireChunk
			err := dec.Decode(&wc)
			if errors.Is(err, io.EOF) {
				break
			}
			if err == nil {
				var chunk tts.Chunk
				chunk, err = wc.decode()
				if err == nil {
					if !yield(chunk, nil) {
						cancel()
						_ = cmd.Wait()
						return
					}
					continue
				}
			}

			cancel()
			_ = cmd.Wait()
			yield(tts.Chunk{}, synthesisError(fmt.Errorf("chunk %d: %w", index, err), stderr.String()))
			return
		}

		if err := cmd.Wait(); err != nil {
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("pipeline timed out after %v: %w", p.timeout, err)
			}
			yield(tts.Chunk{}, synthesisError(err, stderr.String()))
			return
		}

		log.Debug("Pipeline finished", "command", p.command, "duration", time.Since(start))
	}
}

func (wc wireChunk) decode() (tts.Chunk, error) {
	samples, err := DecodeSamples(wc.Audio)
	if err != nil {
		return tts.Chunk{}, err
	}
	return tts.Chunk{Samples: samples, Tokens: wc.Tokens}, nil
}

// DecodeSamples decodes base64 little-endian float32 samples.
func DecodeSamples(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid audio encoding: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("audio length %d is not a multiple of 4 bytes", len(raw))
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}

// EncodeSamples is the inverse of DecodeSamples.
func EncodeSamples(samples []float32) string {
	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func synthesisError(err error, stderr string) error {
	e := tts.Upstream(tts.StageSynthesis, err)
	if s := strings.TrimSpace(stderr); s != "" {
		e = e.WithContext("stderr", s)
	}
	return e
}
