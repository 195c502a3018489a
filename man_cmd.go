package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generate man pages",
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	RunE: func(*cobra.Command, []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return err
		}

		page = page.WithSection("Environment", "KOKORO_VOICE, KOKORO_ALL_VOICES, KOKORO_LANG, KOKORO_REPO\n"+
			"and any other configuration key with the KOKORO_ prefix.\n"+
			"HF_HUB_CACHE and HF_HOME select the model cache; HF_ENDPOINT and HF_TOKEN the hub.")
		fmt.Println(page.Build(roff.NewDocument()))
		return nil
	},
}
