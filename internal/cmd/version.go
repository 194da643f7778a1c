package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JobsSteve/openvpn-adapter/internal/launcher"
	"github.com/JobsSteve/openvpn-adapter/internal/version"
	"github.com/JobsSteve/openvpn-adapter/internal/vpn"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version, commit, and build date of ovpn, plus the OpenVPN binary's version banner.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("ovpn %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)

		cfg := ConfigFromContext(cmd.Context())
		if cfg == nil {
			return nil
		}

		adapter := vpn.New(cfg.Binary, launcher.New(), nil)
		banner, err := adapter.Version(cmd.Context())
		if err != nil {
			fmt.Printf("  openvpn: unavailable (%v)\n", err)
			return nil
		}
		fmt.Printf("  openvpn: %s\n", banner)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
