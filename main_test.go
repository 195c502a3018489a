package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/dgnsrekt/kokoro/internal/voice"
	"github.com/spf13/viper"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("KOKORO_VOICE", "am_adam")
	t.Setenv("KOKORO_ALL_VOICES", "1")
	t.Setenv("KOKORO_PIPELINE_TIMEOUT", "30s")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Voice != "am_adam" {
		t.Errorf("Expected voice from env, got %q", cfg.Voice)
	}
	if !cfg.AllVoices {
		t.Error("Expected KOKORO_ALL_VOICES=1 to select all voices")
	}
	if cfg.Pipeline.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Pipeline.Timeout)
	}
	if cfg.Repo != "hexgrad/Kokoro-82M" || cfg.Lang != "a" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigRejectsBadRepo(t *testing.T) {
	t.Setenv("KOKORO_REPO", "not-a-repo")
	if _, err := loadConfig(); err == nil {
		t.Error("Expected an error for a malformed repository id")
	}
}

func TestDefaultConfigParses(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultConfig)); err != nil {
		t.Fatalf("default config is not valid YAML: %v", err)
	}

	if got := v.GetString("voice"); got != "af_heart" {
		t.Errorf("voice = %q", got)
	}
	if got := v.GetDuration("pipeline.timeout"); got != 5*time.Minute {
		t.Errorf("pipeline.timeout = %v", got)
	}
	if got := v.GetInt64("render_cache.max_size"); got != 512 {
		t.Errorf("render_cache.max_size = %d", got)
	}
	if !v.GetBool("render_cache.enabled") {
		t.Error("render cache should be enabled by default")
	}
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = filepath.Join(t.TempDir(), "nested", "kokoro.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile failed: %v", err)
	}
	b, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if string(b) != defaultConfig {
		t.Error("Expected the default config")
	}

	// An existing file is left alone.
	if err := os.WriteFile(configFile, []byte("voice: am_adam\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile failed: %v", err)
	}
	if b, _ := os.ReadFile(configFile); string(b) != "voice: am_adam\n" {
		t.Error("Existing config was overwritten")
	}

	configFile = filepath.Join(t.TempDir(), "kokoro.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("Expected an error for a non-YAML config file")
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	if err := printResult(&buf, "json", []string{"af_heart", "am_adam"}); err != nil {
		t.Fatalf("printResult failed: %v", err)
	}
	if got := buf.String(); got != "[\"af_heart\",\"am_adam\"]\n" {
		t.Errorf("json output = %q", got)
	}

	buf.Reset()
	st := voice.Status{Voices: []string{"af_heart", "am_adam"}, Downloaded: []string{}}
	if err := printResult(&buf, "json", st); err != nil {
		t.Fatalf("printResult failed: %v", err)
	}
	if got := buf.String(); got != "{\"voices\":[\"af_heart\",\"am_adam\"],\"downloaded\":[]}\n" {
		t.Errorf("json status = %q", got)
	}

	buf.Reset()
	if err := printResult(&buf, "yaml", st); err != nil {
		t.Fatalf("printResult failed: %v", err)
	}
	for _, want := range []string{"voices:", "- af_heart", "downloaded: []"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("yaml output %q lacks %q", buf.String(), want)
		}
	}

	if err := printResult(&buf, "xml", st); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

func TestVoicesDownloadRejectsPaths(t *testing.T) {
	root := t.TempDir()
	t.Setenv("KOKORO_CACHE_DIR", root)

	for _, arg := range []string{"../x", "voices/af_heart", ".."} {
		err := voicesDownloadCmd.RunE(voicesDownloadCmd, []string{arg})
		if !errors.Is(err, tts.ErrInvalidInput) {
			t.Errorf("download %q: expected ErrInvalidInput, got %v", arg, err)
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Cache should be untouched, found %d entries", len(entries))
	}
}

func TestFollowWords(t *testing.T) {
	timings := []tts.WordTiming{
		{Word: "Hello", Start: 0, End: 0.4},
		{Word: "world", Start: 0, End: 0.8},
		{Word: "later", Start: 3600, End: 3601},
	}

	// Stopped playback prints the words already due and returns.
	var buf bytes.Buffer
	stop := make(chan struct{})
	close(stop)
	followWords(context.Background(), &buf, timings, time.Now(), time.Hour, stop)
	if got := buf.String(); got != "Hello\nworld\n" {
		t.Errorf("stopped: got %q", got)
	}

	// Words are printed on the ticker once due; the loop ends with the last word.
	buf.Reset()
	followWords(context.Background(), &buf, timings[:2], time.Now(), time.Millisecond, make(chan struct{}))
	if got := buf.String(); got != "Hello\nworld\n" {
		t.Errorf("ticker: got %q", got)
	}

	// Cancellation ends the loop without waiting for later words.
	buf.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	followWords(ctx, &buf, timings[2:], time.Now(), time.Hour, make(chan struct{}))
	if buf.Len() != 0 {
		t.Errorf("cancelled: got %q", buf.String())
	}
}

func TestRunPlayMissingFile(t *testing.T) {
	err := runPlay(playCmd, []string{filepath.Join(t.TempDir(), "missing.wav")})
	if !errors.Is(err, tts.ErrIOFailure) {
		t.Errorf("Expected ErrIOFailure, got %v", err)
	}
}

func TestReadSayInput(t *testing.T) {
	reset := func() {
		sayText, sayFile, sayMarkdown = "", "", false
	}
	t.Cleanup(reset)

	reset()
	got, err := readSayInput([]string{"Hello,", "world."})
	if err != nil || got != "Hello, world." {
		t.Errorf("args: got %q, %v", got, err)
	}

	reset()
	sayText = "  spaced \n out  "
	got, err = readSayInput(nil)
	if err != nil || got != "spaced out" {
		t.Errorf("--text: got %q, %v", got, err)
	}

	reset()
	md := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(md, []byte("# Title\n\nSee [docs](https://x.y).\n\n```\ncode\n```\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	sayFile = md
	got, err = readSayInput(nil)
	if err != nil || got != "Title. See docs." {
		t.Errorf("--file markdown: got %q, %v", got, err)
	}

	reset()
	sayFile = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := readSayInput(nil); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestRunChecks(t *testing.T) {
	root := t.TempDir()
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	cfg.Pipeline.Command = "kokoro-pipeline-that-does-not-exist"

	results := runChecks(cfg, root)
	if len(results) != 3 {
		t.Fatalf("Expected 3 checks, got %d", len(results))
	}
	if results[0].OK {
		t.Error("Missing pipeline command should fail")
	}
	if !results[1].OK {
		t.Errorf("Temp cache root should be writable: %s", results[1].Detail)
	}
	if results[2].OK || results[2].Required {
		t.Errorf("Uncached voice should be an optional failure: %+v", results[2])
	}

	p := filepath.Join(voice.SnapshotsDir(root, cfg.Repo), "abc", "voices", cfg.Voice+".pt")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if r := checkVoice(root, cfg.Repo, cfg.Voice); !r.OK {
		t.Errorf("Expected cached voice to be found: %+v", r)
	}

	var buf bytes.Buffer
	writeReport(&buf, results)
	if !strings.Contains(buf.String(), "pipeline") || !strings.Contains(buf.String(), root) {
		t.Errorf("Unexpected report %q", buf.String())
	}
}
