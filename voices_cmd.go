package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/dgnsrekt/kokoro/internal/voice"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	outputFormat string

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List and download voices",
		Long:  paragraph(fmt.Sprintf("\nInspect the %s published in the model repository and the ones already cached.", keyword("voices"))),
		Args:  cobra.NoArgs,
	}

	voicesListCmd = &cobra.Command{
		Use:   "list",
		Short: "Download the selected voice, or all voices, and list them",
		Example: paragraph("kokoro voices list\n" +
			"kokoro voices list --all\n" +
			"KOKORO_ALL_VOICES=1 kokoro voices list --format yaml"),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := newResolver()
			if err != nil {
				return err
			}
			names, err := r.List(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), outputFormat, names)
		},
	}

	voicesRemoteCmd = &cobra.Command{
		Use:   "remote",
		Short: "List remote voices and the ones already downloaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := newResolver()
			if err != nil {
				return err
			}
			st, err := r.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), outputFormat, st)
		},
	}

	voicesDownloadCmd = &cobra.Command{
		Use:     "download VOICE",
		Short:   "Download a single voice file",
		Long:    paragraph("\nDownload the first of " + keyword("VOICE.pt") + ", VOICE.onnx and VOICE.bin the repository has."),
		Example: paragraph("kokoro voices download am_adam"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := tts.ValidateVoiceName(args[0]); err != nil {
				return err
			}
			r, err := newResolver()
			if err != nil {
				return err
			}
			asset, p, err := r.Ensure(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%s)\n", asset.Name, p)
			return nil
		},
	}
)

func newResolver() (*voice.Resolver, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := newHubClient(cfg)
	if err != nil {
		return nil, err
	}
	return voice.NewResolver(client, cfg, client.CacheRoot()), nil
}

// printResult writes v to w as JSON or YAML.
func printResult(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("unable to encode output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("unable to encode output: %w", err)
		}
		return enc.Close()
	default:
		return tts.NewError(tts.ErrorCodeInvalidInput, fmt.Sprintf("unknown output format %q", format), nil)
	}
}

func init() {
	voicesCmd.PersistentFlags().StringVar(&outputFormat, "format", "json", "output format (json or yaml)")

	voicesListCmd.Flags().BoolP("all", "a", false, "download and list every voice")
	_ = viper.BindPFlag("all_voices", voicesListCmd.Flags().Lookup("all"))

	voicesCmd.AddCommand(voicesListCmd, voicesRemoteCmd, voicesDownloadCmd)
}
