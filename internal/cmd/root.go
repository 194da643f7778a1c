// Package cmd implements the ovpn CLI commands using Cobra.
// It provides commands for running OpenVPN against configured remotes,
// managing credentials, and inspecting session logs.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JobsSteve/openvpn-adapter/internal/config"
	"github.com/JobsSteve/openvpn-adapter/internal/slogger"
)

// appConfig holds the loaded application configuration.
var appConfig *config.Config

// configLoader is used for reading and writing configuration keys.
var configLoader *config.Loader

// verbosity counts -v flags for log level selection.
var verbosity int

var rootCmd = &cobra.Command{
	Use:   "ovpn",
	Short: "Drive OpenVPN from the command line",
	Long: `ovpn is a CLI wrapper around the OpenVPN binary.

It runs OpenVPN as a child process with its standard streams redirected,
captures the daemon's output into per-remote session logs, and keeps VPN
credentials in encrypted storage instead of plaintext auth files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := slogger.New(slogger.Config{Verbosity: verbosity})

		// Store dependencies in context for subcommands
		ctx := cmd.Context()
		ctx = slogger.WithLogger(ctx, logger)
		ctx = WithConfig(ctx, appConfig)
		ctx = WithLoader(ctx, configLoader)
		cmd.SetContext(ctx)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")
}

func initConfig() {
	loader, err := config.NewLoader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
		return
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config validation failed: %v\n", err)
	}

	appConfig = cfg
	configLoader = loader
}
