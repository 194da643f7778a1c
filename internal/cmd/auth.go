package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JobsSteve/openvpn-adapter/internal/prompt"
	"github.com/JobsSteve/openvpn-adapter/internal/secrets"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage VPN credentials",
	Long: `Manage the credentials used for remotes with auth enabled.

Credentials are kept in encrypted storage and written to a private temp
file only for the lifetime of a connection, never to the config file.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set <remote>",
	Short: "Store credentials for a remote",
	Example: `  # Store username and password for the "office" remote
  ovpn auth set office`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthSet,
}

var authRmCmd = &cobra.Command{
	Use:   "rm <remote>",
	Short: "Remove stored credentials for a remote",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRm,
}

var authStatusCmd = &cobra.Command{
	Use:   "status <remote>",
	Short: "Show whether credentials are stored for a remote",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authRmCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	prompter := prompt.New()
	store, err := openSecrets(cfg, prompter)
	if err != nil {
		return err
	}

	username, err := prompter.Input("Username: ")
	if err != nil {
		return fmt.Errorf("read username: %w", err)
	}
	password, err := prompter.Secret("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if err := store.Set(name, secrets.Credentials{Username: username, Password: password}); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	prompter.Print(fmt.Sprintf("Credentials stored for %s.", name))
	return nil
}

func runAuthRm(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	prompter := prompt.New()
	confirmed, err := prompter.Confirm(
		fmt.Sprintf("Remove credentials for %s?", name),
		"This cannot be undone.",
	)
	if err != nil {
		return err
	}
	if !confirmed {
		prompter.Print("Aborted.")
		return nil
	}

	store, err := openSecrets(cfg, prompter)
	if err != nil {
		return err
	}

	if err := store.Delete(name); err != nil {
		return fmt.Errorf("remove credentials: %w", err)
	}

	prompter.Print(fmt.Sprintf("Credentials removed for %s.", name))
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	store, err := openSecrets(cfg, prompt.New())
	if err != nil {
		return err
	}

	creds, err := store.Get(name)
	if errors.Is(err, secrets.ErrNotFound) {
		fmt.Printf("%s: no credentials stored\n", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	fmt.Printf("%s: credentials stored for user %s\n", name, creds.Username)
	return nil
}
