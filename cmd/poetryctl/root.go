package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JasonKing5/ifs/internal/client"
	"github.com/JasonKing5/ifs/internal/obs"
)

var (
	// flags
	baseURL  string
	logLevel string

	api *client.Client
)

func init() {
	RootCmd.PersistentFlags().StringVar(&baseURL, "api", "", "API base URL (overrides IFS_API_BASE_URL)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
}

var RootCmd = &cobra.Command{
	Use:          "poetryctl",
	Short:        "Browse and edit the poetry catalog",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := obs.ConfigureLogger(obs.LogOptions{Level: logLevel, Format: "text", Output: os.Stderr}); err != nil {
			return err
		}
		cfg, err := client.LoadConfig()
		if err != nil {
			return err
		}
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		api, err = client.NewFromConfig(cfg,
			client.WithNotifier(client.WriterNotifier{W: os.Stderr}),
			client.WithLoginRequired(func() {
				fmt.Fprintln(os.Stderr, "run `poetryctl login` to sign in again")
			}),
		)
		return err
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
