package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JobsSteve/openvpn-adapter/internal/launcher"
	"github.com/JobsSteve/openvpn-adapter/internal/logging"
	"github.com/JobsSteve/openvpn-adapter/internal/slogger"
)

var runCmd = &cobra.Command{
	Use:   "run <command> [args...]",
	Short: "Run a command with redirected standard streams",
	Long: `Run a command as a child process with its standard streams redirected
through pipes, feed it input, and capture its output to completion.

Input is taken from --input, or from stdin when stdin is not a terminal.
With --no-stdin the child reads from the null device instead.`,
	Example: `  # Run openvpn --version through the redirector
  ovpn run openvpn --version

  # Feed a file to a command's stdin
  ovpn run --input payload.txt gzip -c

  # Pipe data through
  echo hello | ovpn run tr a-z A-Z

  # Capture output to a log file as well
  ovpn run --log /tmp/out.log openvpn --show-ciphers`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRunCmd,
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	noStdin, _ := cmd.Flags().GetBool("no-stdin")
	combine, _ := cmd.Flags().GetBool("combine-stderr")
	logPath, _ := cmd.Flags().GetString("log")
	dir, _ := cmd.Flags().GetString("dir")

	input, disableStdin, err := resolveInput(inputPath, noStdin)
	if err != nil {
		return err
	}

	log := slogger.L(cmd.Context())
	log.Debug("running command", "path", args[0], "args", args[1:], "stdin", !disableStdin)

	res, err := launcher.Run(cmd.Context(), launcher.New(), launcher.RunOptions{
		Path:          args[0],
		Args:          args[1:],
		Dir:           dir,
		Input:         input,
		CombineOutErr: combine,
		DisableStdin:  disableStdin,
	})
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if logPath != "" {
		tee, err := logging.NewTeeWriterAppend(os.Stdout, logPath)
		if err != nil {
			return err
		}
		defer tee.Close()
		out = tee
	}

	if _, err := out.Write(res.Output); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := os.Stderr.Write(res.Errout); err != nil {
		return fmt.Errorf("write errout: %w", err)
	}

	if !res.Status.Success {
		return fmt.Errorf("%s exited with code %d", args[0], res.Status.ExitCode)
	}
	return nil
}

// resolveInput decides what to feed the child's stdin. A terminal stdin
// with no --input means no input at all rather than blocking on a read.
func resolveInput(inputPath string, noStdin bool) ([]byte, bool, error) {
	if noStdin {
		return nil, true, nil
	}

	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, false, fmt.Errorf("read input file: %w", err)
		}
		return data, false, nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, true, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, false, fmt.Errorf("read stdin: %w", err)
	}
	return data, false, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags stop at the first positional argument so the child's own
	// flags pass through untouched.
	runCmd.Flags().SetInterspersed(false)

	runCmd.Flags().String("input", "", "file to feed to the child's stdin")
	runCmd.Flags().Bool("no-stdin", false, "connect the child's stdin to the null device")
	runCmd.Flags().Bool("combine-stderr", false, "merge the child's stderr into stdout")
	runCmd.Flags().String("log", "", "append captured output to this file")
	runCmd.Flags().String("dir", "", "working directory for the child")
}
