package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/audio"
	"github.com/dgnsrekt/kokoro/internal/markdown"
	"github.com/dgnsrekt/kokoro/internal/pipeline"
	"github.com/dgnsrekt/kokoro/internal/speech"
	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	sayText     string
	sayFile     string
	sayMarkdown bool
	sayOut      string
	sayTimings  string
	sayPlay     bool
	sayNoCache  bool
	sayDryRun   bool

	sayCmd = &cobra.Command{
		Use:   "say [TEXT]",
		Short: "Synthesize speech and word timings",
		Long: paragraph(fmt.Sprintf("\n%s text with a Kokoro voice. Writes a 24 kHz WAV file and, "+
			"optionally, a JSON array of word timings. Text comes from the arguments, --text, --file or stdin.",
			keyword("Speak"))),
		Example: paragraph("kokoro say --out hello.wav \"Hello, world.\"\n" +
			"kokoro say -v am_adam --file README.md --markdown --out readme.wav --timings readme.json"),
		RunE: runSay,
	}
)

func runSay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sayOut == "" && !sayPlay {
		return tts.NewError(tts.ErrorCodeInvalidInput, "either --out or --play is required", nil)
	}

	text, err := readSayInput(args)
	if err != nil {
		return err
	}

	client, err := newHubClient(cfg)
	if err != nil {
		return err
	}

	var p tts.Pipeline = pipeline.NewSubprocess(cfg.Pipeline)
	if sayDryRun {
		p = pipeline.NewMock()
	}

	var opts []speech.Option
	if !sayNoCache && !sayDryRun {
		rc, err := openRenderCache()
		if err != nil {
			log.Warn("Render cache unavailable", "err", err)
		} else if rc != nil {
			defer rc.Close() //nolint:errcheck
			opts = append(opts, speech.WithCache(rc))
		}
	}

	speaker := speech.New(cfg, client, p, client.CacheRoot(), opts...)
	res, err := speaker.Say(cmd.Context(), text)
	if err != nil {
		return err
	}

	if sayOut != "" {
		out, err := homedir.Expand(sayOut)
		if err != nil {
			return err
		}
		timings := sayTimings
		if timings != "" {
			if timings, err = homedir.Expand(timings); err != nil {
				return err
			}
		}
		if err := speech.WriteOutputs(res, out, timings); err != nil {
			return err
		}
		if !cfg.Quiet {
			log.Info("Wrote audio", "path", out, "words", len(res.Timings), "duration", audio.Duration(len(res.Audio), res.SampleRate))
		}
	}

	if sayPlay {
		return audio.Play(cmd.Context(), res.Audio, res.SampleRate)
	}
	return nil
}

// readSayInput returns the text to speak from, in order: arguments, --text,
// --file ("-" for stdin) or a piped stdin.
func readSayInput(args []string) (string, error) {
	var (
		b        []byte
		isMarkup = sayMarkdown
	)

	switch {
	case len(args) > 0:
		b = []byte(strings.Join(args, " "))
	case sayText != "":
		b = []byte(sayText)
	case sayFile == "-":
		var err error
		if b, err = io.ReadAll(os.Stdin); err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
	case sayFile != "":
		path, err := homedir.Expand(sayFile)
		if err != nil {
			return "", err
		}
		if b, err = os.ReadFile(path); err != nil {
			return "", tts.IOFailure(path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".mdown", ".mkd":
			isMarkup = true
		}
	default:
		piped, err := stdinIsPipe()
		if err != nil {
			return "", err
		}
		if !piped {
			return "", tts.NewError(tts.ErrorCodeInvalidInput, "no text given", nil)
		}
		if b, err = io.ReadAll(os.Stdin); err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
	}

	if isMarkup {
		return markdown.ToSpeech(b, markdown.Options{KeepCode: viper.GetBool("markdown.keep_code")}), nil
	}
	return markdown.Normalize(string(b)), nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func init() {
	flags := sayCmd.Flags()
	flags.StringVarP(&sayText, "text", "t", "", "text to speak")
	flags.StringVarP(&sayFile, "file", "f", "", "read text from a file (- for stdin)")
	flags.BoolVarP(&sayMarkdown, "markdown", "m", false, "treat the input as markdown")
	flags.StringVarP(&sayOut, "out", "o", "", "output WAV path")
	flags.StringVar(&sayTimings, "timings", "", "output path for word timings JSON")
	flags.BoolVarP(&sayPlay, "play", "p", false, "play the audio")
	flags.BoolVar(&sayNoCache, "no-cache", false, "always synthesize, bypassing the render cache")
	flags.BoolVar(&sayDryRun, "dry-run", false, "use a tone generator instead of the synthesis pipeline")

	sayCmd.MarkFlagsMutuallyExclusive("text", "file")
	viper.SetDefault("markdown.keep_code", false)
}
