package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var envErr error
	cfg, envErr = DefaultConfig()
	if envErr != nil {
		cfg = &Config{ServerURL: "http://localhost:8080", Output: "text"}
	}

	rootCmd := &cobra.Command{
		Use:   "playersync",
		Short: "Player session and progression sync",
		Long: `playersync keeps a player's session and progression in sync with remote
storage.

"serve" runs the HTTP API. The progression commands run in process: they sign
in (anonymously unless --user is given), load the stored progression, apply
one change, wait for it to be saved and print the result.

Storage and identity settings come from PLAYERSYNC_* environment variables.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			if cfg.Output != "text" && cfg.Output != "json" {
				return fmt.Errorf("invalid output format %q: must be text or json", cfg.Output)
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL for remote commands (env: PLAYERSYNC_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.User, "user", "u", cfg.User, "Username; empty signs in anonymously (env: PLAYERSYNC_USERNAME)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Password, "password", "p", cfg.Password, "Password (env: PLAYERSYNC_PASSWORD)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging")

	rootCmd.AddCommand(newServeCmd())

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newGainCmd())
	rootCmd.AddCommand(newSpendCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newDeleteAccountCmd())

	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
