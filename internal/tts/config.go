package tts

import (
	"fmt"
	"strings"
	"time"
)

// Defaults matching the published Kokoro model.
const (
	DefaultRepo  = "hexgrad/Kokoro-82M"
	DefaultVoice = "af_heart"
	DefaultLang  = "a"
)

// Config is passed explicitly to the resolver, the pipeline and the
// assembler. Nothing reads process-wide state after it is built.
type Config struct {
	// Repo is the remote repository id, "<org>/<name>".
	Repo string

	// Revision is a branch, tag or commit. Empty means the default branch.
	Revision string

	// Voice is the requested voice name.
	Voice string

	// AllVoices selects every voice instead of Voice.
	AllVoices bool

	// Lang is the pipeline language code (e.g. "a" for American English).
	Lang string

	// CacheDir overrides the hub cache root.
	CacheDir string

	// Quiet suppresses progress messages.
	Quiet bool

	// SampleRate of the pipeline output.
	SampleRate int

	Pipeline PipelineConfig
}

// PipelineConfig configures the synthesis subprocess.
type PipelineConfig struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// DefaultConfig returns the configuration the CLI starts from.
func DefaultConfig() Config {
	return Config{
		Repo:       DefaultRepo,
		Voice:      DefaultVoice,
		Lang:       DefaultLang,
		SampleRate: SampleRate,
		Pipeline: PipelineConfig{
			Command: "kokoro-pipeline",
			Timeout: 5 * time.Minute,
		},
	}
}

// Validate checks the configuration for values no component can work with.
func (c Config) Validate() error {
	if err := ValidateRepoID(c.Repo); err != nil {
		return err
	}
	if !c.AllVoices && strings.TrimSpace(c.Voice) == "" {
		return invalid("voice is required unless all voices are selected")
	}
	if c.Voice != "" {
		if err := ValidateVoiceName(c.Voice); err != nil {
			return err
		}
	}
	if c.Lang == "" {
		return invalid("language code is required")
	}
	if c.SampleRate <= 0 {
		return invalid(fmt.Sprintf("sample rate must be positive, got %d", c.SampleRate))
	}
	if c.Pipeline.Timeout < 0 {
		return invalid("pipeline timeout must not be negative")
	}
	return nil
}

// ValidateVoiceName checks that name can be used as a file name inside the
// voices directory.
func ValidateVoiceName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return invalid("voice name is required")
	case strings.ContainsAny(name, `/\`):
		return invalid(fmt.Sprintf("voice %q must not contain path separators", name))
	case name == "." || name == "..":
		return invalid(fmt.Sprintf("voice %q is not a valid name", name))
	}
	return nil
}

// ValidateRepoID checks that id has the "<org>/<name>" shape.
func ValidateRepoID(id string) error {
	org, name, ok := strings.Cut(id, "/")
	if !ok || org == "" || name == "" || strings.Contains(name, "/") {
		return invalid(fmt.Sprintf("repository id %q must look like <org>/<name>", id))
	}
	return nil
}

func invalid(msg string) error {
	return NewError(ErrorCodeInvalidInput, msg, nil)
}
