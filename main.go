// Package main provides the entry point for the kokoro CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/cache"
	"github.com/dgnsrekt/kokoro/internal/hub"
	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const appName = "kokoro"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	logCloser  = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Speak text with Kokoro voices, with word timings",
		Long: paragraph(
			fmt.Sprintf("\nFetch %s from the model hub and turn text into audio with %s.",
				keyword("Kokoro voices"), keyword("word-level timings")),
		),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("config") {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return tts.NewError(tts.ErrorCodeInvalidInput, "unable to read config file", err).
						WithContext("path", configFile)
				}
			}

			closer, err := setupLog(viper.GetBool("debug"))
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
	}
)

// loadConfig builds the runtime configuration from flags, the config file
// and KOKORO_* environment variables, in that order of precedence.
func loadConfig() (tts.Config, error) {
	cfg := tts.DefaultConfig()
	cfg.Repo = viper.GetString("repo")
	cfg.Revision = viper.GetString("revision")
	cfg.Voice = strings.TrimSpace(viper.GetString("voice"))
	cfg.AllVoices = viper.GetBool("all_voices")
	cfg.Lang = viper.GetString("lang")
	cfg.Quiet = viper.GetBool("quiet") || !term.IsTerminal(int(os.Stderr.Fd())) //nolint:gosec
	cfg.Pipeline.Command = viper.GetString("pipeline.command")
	cfg.Pipeline.Args = viper.GetStringSlice("pipeline.args")
	cfg.Pipeline.Timeout = viper.GetDuration("pipeline.timeout")

	if dir := viper.GetString("cache_dir"); dir != "" {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return tts.Config{}, fmt.Errorf("unable to expand cache dir: %w", err)
		}
		cfg.CacheDir = expanded
	}

	if err := cfg.Validate(); err != nil {
		return tts.Config{}, err
	}
	return cfg, nil
}

// newHubClient creates the repository client from the hub environment.
func newHubClient(cfg tts.Config) (*hub.Client, error) {
	env, err := hub.LoadEnv()
	if err != nil {
		return nil, err
	}
	root, err := env.CacheRoot(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	log.Debug("Hub", "endpoint", env.Endpoint, "cache", root, "auth", env.Token != "")
	return hub.NewClient(hub.Options{
		Endpoint:          env.Endpoint,
		Token:             env.Token,
		CacheRoot:         root,
		RequestsPerSecond: viper.GetFloat64("hub.requests_per_second"),
		Timeout:           viper.GetDuration("hub.timeout"),
		Quiet:             cfg.Quiet,
	}), nil
}

// openRenderCache opens the render cache unless it is disabled.
func openRenderCache() (*cache.Disk, error) {
	if !viper.GetBool("render_cache.enabled") {
		return nil, nil
	}

	dir := viper.GetString("render_cache.dir")
	if dir == "" {
		d, err := gap.NewScope(gap.User, appName).CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to find cache directory: %w", err)
		}
		dir = filepath.Join(d, "renders")
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to expand render cache dir: %w", err)
	}

	cfg := cache.DefaultConfig(dir)
	if mb := viper.GetInt64("render_cache.max_size"); mb > 0 {
		cfg.Capacity = mb * 1024 * 1024
	}
	return cache.Open(cfg)
}

// reportError prints err and any voice suggestions it carries.
func reportError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)

	var te *tts.Error
	if errors.As(err, &te) {
		if s, ok := te.Context["suggestions"].([]string); ok && len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Did you mean %s?\n", strings.Join(s, ", "))
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logCloser()
	if err != nil {
		reportError(err)
		os.Exit(tts.ExitCode(err))
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.String("repo", tts.DefaultRepo, "model repository id")
	flags.String("revision", "", "repository branch, tag or commit (default main)")
	flags.StringP("voice", "v", tts.DefaultVoice, "voice name")
	flags.StringP("lang", "l", tts.DefaultLang, "language code")
	flags.String("cache-dir", "", "model cache directory (default HF_HUB_CACHE, HF_HOME or ~/.cache/huggingface/hub)")
	flags.BoolP("quiet", "q", false, "suppress progress messages")
	flags.Bool("debug", false, "debug logging, also written to the log file")

	_ = viper.BindPFlag("repo", flags.Lookup("repo"))
	_ = viper.BindPFlag("revision", flags.Lookup("revision"))
	_ = viper.BindPFlag("voice", flags.Lookup("voice"))
	_ = viper.BindPFlag("lang", flags.Lookup("lang"))
	_ = viper.BindPFlag("cache_dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	defaults := tts.DefaultConfig()
	viper.SetDefault("repo", defaults.Repo)
	viper.SetDefault("voice", defaults.Voice)
	viper.SetDefault("lang", defaults.Lang)
	viper.SetDefault("all_voices", false)
	viper.SetDefault("pipeline.command", defaults.Pipeline.Command)
	viper.SetDefault("pipeline.args", []string{})
	viper.SetDefault("pipeline.timeout", defaults.Pipeline.Timeout)
	viper.SetDefault("hub.requests_per_second", 4)
	viper.SetDefault("hub.timeout", time.Minute)
	viper.SetDefault("render_cache.enabled", true)
	viper.SetDefault("render_cache.dir", "")
	viper.SetDefault("render_cache.max_size", cache.DefaultCapacity/(1024*1024))

	rootCmd.AddCommand(sayCmd, playCmd, voicesCmd, prefetchCmd, doctorCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("KOKORO_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}
	configFile = filepath.Join(dirs[0], appName+".yml")
}
