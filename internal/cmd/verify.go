package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JobsSteve/openvpn-adapter/internal/launcher"
	"github.com/JobsSteve/openvpn-adapter/internal/vpn"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [config-file]",
	Short: "Check an OpenVPN configuration for errors",
	Long: `Feed a configuration to the OpenVPN binary and report whether it
parses. Reads from stdin when no file is given or when the file is "-".`,
	Example: `  # Verify a config file
  ovpn verify office.ovpn

  # Verify from stdin
  cat office.ovpn | ovpn verify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerifyCmd,
}

func runVerifyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	var data []byte
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	adapter := vpn.New(cfg.Binary, launcher.New(), nil)
	if err := adapter.Verify(cmd.Context(), string(data)); err != nil {
		return err
	}

	fmt.Println("Configuration OK")
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
