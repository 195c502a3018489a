package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/dgnsrekt/kokoro/internal/voice"
	"github.com/spf13/cobra"
)

// checkResult is the outcome of one environment check.
type checkResult struct {
	Name     string
	OK       bool
	Required bool
	Detail   string
}

var (
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	missingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	optionalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1)
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that synthesis can run",
	Long:  paragraph("\n" + keyword("Check") + " the synthesis command, the model cache and the configured voice without touching the network."),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newHubClient(cfg)
		if err != nil {
			return err
		}

		results := runChecks(cfg, client.CacheRoot())
		writeReport(cmd.OutOrStdout(), results)

		for _, r := range results {
			if r.Required && !r.OK {
				return errors.New("missing required dependencies")
			}
		}
		return nil
	},
}

func runChecks(cfg tts.Config, cacheRoot string) []checkResult {
	return []checkResult{
		checkCommand(cfg.Pipeline.Command),
		checkCacheRoot(cacheRoot),
		checkVoice(cacheRoot, cfg.Repo, cfg.Voice),
	}
}

func checkCommand(command string) checkResult {
	r := checkResult{Name: "pipeline", Required: true}
	p, err := exec.LookPath(command)
	if err != nil {
		r.Detail = fmt.Sprintf("%s not found in PATH; set pipeline.command in the config file", command)
		return r
	}
	r.OK, r.Detail = true, p
	return r
}

func checkCacheRoot(root string) checkResult {
	r := checkResult{Name: "cache", Required: true}
	if err := os.MkdirAll(root, 0o755); err != nil {
		r.Detail = err.Error()
		return r
	}
	f, err := os.CreateTemp(root, ".kokoro-doctor-*")
	if err != nil {
		r.Detail = fmt.Sprintf("%s is not writable: %v", root, err)
		return r
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	r.OK, r.Detail = true, root
	return r
}

func checkVoice(root, repo, name string) checkResult {
	r := checkResult{Name: "voice " + name}
	asset, p, err := voice.FindCached(root, repo, name)
	switch {
	case err == nil:
		r.OK, r.Detail = true, fmt.Sprintf("%s (%s)", p, asset.Extension)
	case errors.Is(err, tts.ErrNotFound):
		r.Detail = "not cached yet; it is downloaded on first use"
	default:
		r.Detail = err.Error()
	}
	return r
}

func writeReport(w io.Writer, results []checkResult) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Kokoro environment"))
	b.WriteString("\n")
	for _, r := range results {
		switch {
		case r.OK:
			b.WriteString(okStyle.Render("  ✓ " + r.Name + ": "))
		case r.Required:
			b.WriteString(missingStyle.Render("  ✗ " + r.Name + ": "))
		default:
			b.WriteString(optionalStyle.Render("  ○ " + r.Name + ": "))
		}
		b.WriteString(r.Detail)
		b.WriteString("\n")
	}
	_, _ = io.WriteString(w, b.String())
}
