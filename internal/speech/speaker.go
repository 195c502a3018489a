// Package speech runs a full synthesis: it makes sure the model and voice
// files are cached, drives the pipeline, assembles the timeline and writes
// the outputs.
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/audio"
	"github.com/dgnsrekt/kokoro/internal/cache"
	"github.com/dgnsrekt/kokoro/internal/timeline"
	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/dgnsrekt/kokoro/internal/voice"
	"github.com/dustin/go-humanize"
)

// ModelPatterns are the repository files the pipeline loads besides the
// voice.
var ModelPatterns = []string{"*.json", "*.txt", "kokoro-v*.pth"}

// Cache stores finished renders.
type Cache interface {
	Get(k cache.Key) (*timeline.Result, bool)
	Put(k cache.Key, res *timeline.Result) error
}

// Speaker turns text into audio and word timings.
type Speaker struct {
	cfg      tts.Config
	repo     tts.Repository
	resolver *voice.Resolver
	pipeline tts.Pipeline
	cache    Cache
}

// Option configures a Speaker.
type Option func(*Speaker)

// WithCache reuses stored renders for identical requests.
func WithCache(c Cache) Option {
	return func(s *Speaker) { s.cache = c }
}

// New creates a Speaker. cacheRoot is the hub cache repo materializes into.
func New(cfg tts.Config, repo tts.Repository, pipeline tts.Pipeline, cacheRoot string, opts ...Option) *Speaker {
	s := &Speaker{
		cfg:      cfg,
		repo:     repo,
		resolver: voice.NewResolver(repo, cfg, cacheRoot),
		pipeline: pipeline,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Say synthesizes text with the configured voice and language.
func (s *Speaker) Say(ctx context.Context, text string) (*timeline.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.NewError(tts.ErrorCodeInvalidInput, "text is empty", nil)
	}

	key := cache.Key{
		Text:     text,
		Voice:    s.cfg.Voice,
		Lang:     s.cfg.Lang,
		Repo:     s.cfg.Repo,
		Revision: s.cfg.Revision,
	}
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			log.Debug("Render cache hit", "key", key)
			return res, nil
		}
	}

	if err := s.Prepare(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	stream := s.pipeline.Stream(ctx, tts.Request{
		Text:  text,
		Voice: s.cfg.Voice,
		Lang:  s.cfg.Lang,
		Repo:  s.cfg.Repo,
	})
	res, err := timeline.New(s.cfg.SampleRate).Assemble(stream)
	if err != nil {
		return nil, err
	}

	log.Debug("Synthesis finished",
		"chunks", res.Chunks,
		"words", len(res.Timings),
		"audio", time.Duration(res.Elapsed*float64(time.Second)),
		"took", time.Since(start))

	if s.cache != nil {
		if err := s.cache.Put(key, res); err != nil {
			log.Warn("Could not store render", "err", err)
		}
	}
	return res, nil
}

// Prepare caches the model files and the voice.
func (s *Speaker) Prepare(ctx context.Context) error {
	if _, err := s.repo.Materialize(ctx, s.cfg.Repo, s.cfg.Revision, ModelPatterns); err != nil {
		return err
	}
	_, _, err := s.resolver.Ensure(ctx, s.cfg.Voice)
	return err
}

// WriteOutputs writes res as a WAV file to wavPath and, when timingsPath is
// set, the word timings as a JSON array.
func WriteOutputs(res *timeline.Result, wavPath, timingsPath string) error {
	if err := audio.WriteWAV(wavPath, res.Audio, res.SampleRate); err != nil {
		return tts.IOFailure(wavPath, err)
	}
	if info, err := os.Stat(wavPath); err == nil {
		log.Debug("Wrote audio", "path", wavPath, "size", humanize.Bytes(uint64(info.Size()))) //nolint:gosec
	}

	if timingsPath == "" {
		return nil
	}
	return WriteTimings(timingsPath, res.Timings)
}

// WriteTimings writes timings to path as a JSON array.
func WriteTimings(path string, timings []tts.WordTiming) error {
	b, err := tts.MarshalTimings(timings)
	if err != nil {
		return fmt.Errorf("unable to encode timings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tts.IOFailure(filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil { //nolint:gosec
		return tts.IOFailure(path, err)
	}
	return nil
}

// ReadTimings reads a file written by WriteTimings.
func ReadTimings(path string) ([]tts.WordTiming, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, tts.IOFailure(path, err)
	}
	var out []tts.WordTiming
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unable to decode timings: %w", err)
	}
	return out, nil
}
