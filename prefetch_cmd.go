package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/voice"
	"github.com/spf13/cobra"
)

var prefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Download the whole model repository into the cache",
	Long:  paragraph("\n" + keyword("Prefetch") + " every file of the repository so later runs work offline."),
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

		logger := log.NewWithOptions(cmd.OutOrStdout(), log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Level:           log.GetLevel(),
		})

		revision := cfg.Revision
		if revision == "" {
			revision = "latest"
		}
		logger.Info("Prefetch", "repo", cfg.Repo, "revision", revision)
		logger.Info("Environment", "HF_HOME", os.Getenv("HF_HOME"), "HF_HUB_CACHE", os.Getenv("HF_HUB_CACHE"))
		logger.Info("Cache", "root", client.CacheRoot())

		start := time.Now()
		logger.Info("Starting snapshot download...")
		root, err := client.Materialize(cmd.Context(), cfg.Repo, cfg.Revision, nil)
		if err != nil {
			return err
		}

		voices, err := voice.ListDir(filepath.Join(root, voice.Dir))
		if err != nil {
			return err
		}
		logger.Info("Snapshot download finished.", "snapshot", root, "voices", len(voices), "took", time.Since(start).Round(time.Millisecond))
		return nil
	},
}
