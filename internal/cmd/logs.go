package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JobsSteve/openvpn-adapter/internal/logging"
)

// Default poll interval for following logs.
const defaultLogPollInterval = 100 * time.Millisecond

var logsCmd = &cobra.Command{
	Use:   "logs <remote> [session]",
	Short: "View session logs for a remote",
	Long: `View daemon output from a connection session.

Without a session argument the most recent session is shown. Use
--list to enumerate the sessions recorded for a remote.`,
	Example: `  # View the latest session (last 100 lines)
  ovpn logs office

  # Follow a running session
  ovpn logs office -f

  # Show last 500 lines of a specific session
  ovpn logs office 20260830-120000 -n 500

  # List recorded sessions
  ovpn logs office --list`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLogsCmd,
}

func runLogsCmd(cmd *cobra.Command, args []string) error {
	remote := args[0]

	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")
	full, _ := cmd.Flags().GetBool("full")
	list, _ := cmd.Flags().GetBool("list")

	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}
	store := logging.NewStore(cfg.Storage.Logs)

	if list {
		sessions, err := store.Sessions(remote)
		if err != nil {
			return err
		}
		for _, session := range sessions {
			fmt.Println(session)
		}
		return nil
	}

	var session string
	if len(args) == 2 {
		session = args[1]
	} else {
		session, err = store.LatestSession(remote)
		if err != nil {
			return err
		}
		if session == "" {
			return fmt.Errorf("no sessions recorded for remote %s", remote)
		}
	}

	if !store.SessionExists(remote, session) {
		return fmt.Errorf("no log file found for session %s", session)
	}

	reader := logging.NewReader(store)

	if follow {
		// Follow mode: show last N lines then stream new output
		return reader.FollowWithHistory(cmd.Context(), remote, session, os.Stdout, lines, defaultLogPollInterval)
	}

	var logLines []string
	if full {
		logLines, err = reader.ReadAll(remote, session)
	} else {
		logLines, err = reader.ReadLastN(remote, session, lines)
	}
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	for _, line := range logLines {
		fmt.Println(line)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().BoolP("follow", "f", false, "follow log output")
	logsCmd.Flags().IntP("lines", "n", logging.DefaultTailLines, "number of lines to show")
	logsCmd.Flags().Bool("full", false, "show the entire log")
	logsCmd.Flags().Bool("list", false, "list recorded sessions for the remote")
}
