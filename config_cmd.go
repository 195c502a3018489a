package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# model repository on the hub
repo: "hexgrad/Kokoro-82M"
# branch, tag or commit; empty means main
revision: ""
# voice used by say and voices list
voice: "af_heart"
# download every voice in voices list
all_voices: false
# pipeline language code ("a" American English, "b" British English, ...)
lang: "a"
# model cache; empty uses HF_HUB_CACHE, HF_HOME or ~/.cache/huggingface/hub
cache_dir: ""
# suppress progress messages
quiet: false

# synthesis engine, run once per say
pipeline:
  command: "kokoro-pipeline"
  args: []
  timeout: "5m"

hub:
  requests_per_second: 4
  timeout: "1m"

# finished renders, reused for identical requests
render_cache:
  enabled: true
  # empty uses the user cache directory
  dir: ""
  # megabytes
  max_size: 512

markdown:
  # read fenced code blocks aloud
  keep_code: false
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the kokoro config file",
	Long:    paragraph(fmt.Sprintf("\n%s the kokoro config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("kokoro config\nkokoro config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Kokoro", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
