package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JobsSteve/openvpn-adapter/internal/launcher"
	"github.com/JobsSteve/openvpn-adapter/internal/logging"
	"github.com/JobsSteve/openvpn-adapter/internal/prompt"
	"github.com/JobsSteve/openvpn-adapter/internal/secrets"
	"github.com/JobsSteve/openvpn-adapter/internal/spinner"
	"github.com/JobsSteve/openvpn-adapter/internal/vpn"
)

var connectCmd = &cobra.Command{
	Use:   "connect <remote>",
	Short: "Connect to a configured remote",
	Long: `Run OpenVPN against a configured remote until it exits.

Daemon output is written to a per-remote session log. Remotes with auth
enabled use credentials from the secrets store (see ` + "`ovpn auth set`" + `).`,
	Example: `  # Connect to the "office" remote
  ovpn connect office

  # Connect quietly, log file only
  ovpn connect office --quiet`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectCmd,
}

func runConnectCmd(cmd *cobra.Command, args []string) error {
	name := args[0]
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}
	remote, err := requireRemote(cfg, name)
	if err != nil {
		return err
	}

	var store secrets.Store
	if remote.Auth {
		store, err = openSecrets(cfg, prompt.New())
		if err != nil {
			return err
		}
	}

	logs := logging.NewStore(cfg.Storage.Logs)
	session := logging.NewSessionID()
	logPath, err := logs.EnsureSession(name, session)
	if err != nil {
		return err
	}

	var primary io.Writer
	var spin *spinner.Spinner
	switch {
	case !quiet:
		primary = os.Stdout
	case term.IsTerminal(int(os.Stderr.Fd())):
		// Quiet mode on a terminal still gets a one-line status ticker.
		spin = spinner.New(name, os.Stderr)
		primary = spin.Writer()
		go spin.Start() //nolint:errcheck // display only
		defer spin.Stop()
	}
	logw, err := logging.NewTeeWriter(primary, logPath)
	if err != nil {
		return err
	}
	defer logw.Close()

	adapter := vpn.New(cfg.Binary, launcher.New(), store)
	report, err := adapter.Connect(cmd.Context(), name, remote, cfg.Run, logw)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		if errors.Is(err, vpn.ErrNoCredentials) {
			return fmt.Errorf("%w, run `ovpn auth set %s` first", err, name)
		}
		return err
	}

	fmt.Printf("Session log: %s\n", logPath)
	switch {
	case report.AuthFailed:
		return fmt.Errorf("authentication failed for remote %s", name)
	case !report.Completed:
		return fmt.Errorf("tunnel did not come up (exit code %d)", report.ExitCode)
	}

	fmt.Printf("Disconnected from %s (exit code %d)\n", name, report.ExitCode)
	return nil
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Bool("quiet", false, "write daemon output to the session log only")
}
