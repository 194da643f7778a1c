// Package vpn drives an OpenVPN binary as a child process, exchanging
// data with it over redirected standard streams.
package vpn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/JobsSteve/openvpn-adapter/internal/config"
	"github.com/JobsSteve/openvpn-adapter/internal/launcher"
	"github.com/JobsSteve/openvpn-adapter/internal/secrets"
	"github.com/JobsSteve/openvpn-adapter/internal/slogger"
)

// ErrInvalidConfig is returned by Verify when the daemon rejects a
// configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrNoCredentials is returned by Connect when a remote requires
// authentication but no credentials are stored for it.
var ErrNoCredentials = errors.New("no stored credentials")

// Adapter wraps an OpenVPN binary behind a small, testable API.
type Adapter struct {
	binary   string
	launcher launcher.Launcher
	secrets  secrets.Store
}

// New creates an Adapter for the given binary path. The secrets store
// may be nil when no remote uses authentication.
func New(binary string, l launcher.Launcher, store secrets.Store) *Adapter {
	return &Adapter{
		binary:   binary,
		launcher: l,
		secrets:  store,
	}
}

// Version runs `<binary> --version` and returns the first line of the
// banner, e.g. "OpenVPN 2.6.12 x86_64-pc-linux-gnu ...".
//
// OpenVPN exits non-zero after printing the banner, so the exit status
// is ignored as long as output was produced.
func (a *Adapter) Version(ctx context.Context) (string, error) {
	res, err := launcher.Run(ctx, a.launcher, launcher.RunOptions{
		Path:          a.binary,
		Args:          []string{"--version"},
		CombineOutErr: true,
		DisableStdin:  true,
	})
	if err != nil {
		return "", fmt.Errorf("run %s --version: %w", a.binary, err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Output)), "\n")
	if line == "" {
		return "", fmt.Errorf("%s --version produced no output", a.binary)
	}
	return strings.TrimSpace(line), nil
}

// Verify feeds configText to the daemon over stdin and reports whether
// it parses. Connection attempts are capped at one retry so a valid
// config with an unreachable remote still terminates.
func (a *Adapter) Verify(ctx context.Context, configText string) error {
	res, err := launcher.Run(ctx, a.launcher, launcher.RunOptions{
		Path:          a.binary,
		Args:          []string{"--config", "stdin", "--connect-retry-max", "1", "--verb", "0"},
		Input:         []byte(configText),
		CombineOutErr: true,
	})
	if err != nil {
		return fmt.Errorf("run %s: %w", a.binary, err)
	}

	if line := optionsError(res.Output); line != "" {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, line)
	}
	return nil
}

// optionsError returns the first "Options error:" line, if any.
func optionsError(output []byte) string {
	for _, ev := range ParseEvents(output) {
		if strings.HasPrefix(ev.Message, "Options error:") {
			return strings.TrimSpace(strings.TrimPrefix(ev.Message, "Options error:"))
		}
	}
	return ""
}

// Connect runs the daemon against the named remote until it exits and
// returns a Report of the session. All daemon output is copied to logw.
//
// When the remote requires authentication, stored credentials are
// written to a private temp file passed via --auth-user-pass and
// removed once the daemon has exited.
func (a *Adapter) Connect(ctx context.Context, name string, remote config.Remote, run config.RunConfig, logw io.Writer) (*Report, error) {
	log := slogger.L(ctx)

	args, cleanup, err := a.connectArgs(name, remote, run)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	log.Debug("starting daemon", "binary", a.binary, "remote", name)
	res, err := launcher.Run(ctx, a.launcher, launcher.RunOptions{
		Path:          a.binary,
		Args:          args,
		CombineOutErr: true,
		DisableStdin:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", a.binary, err)
	}

	if logw != nil {
		if _, err := logw.Write(res.Output); err != nil {
			return nil, fmt.Errorf("write session log: %w", err)
		}
	}

	report := BuildReport(res.Output, res.Status.ExitCode)
	log.Debug("daemon exited",
		"remote", name,
		"exit_code", report.ExitCode,
		"completed", report.Completed,
	)
	return report, nil
}

// connectArgs builds the daemon argument list for a remote. The
// returned cleanup removes any temporary credential file and is always
// safe to call.
func (a *Adapter) connectArgs(name string, remote config.Remote, run config.RunConfig) ([]string, func(), error) {
	cleanup := func() {}

	var args []string
	if remote.Config != "" {
		args = append(args, "--config", remote.Config)
	} else {
		args = append(args, "--client")
	}

	args = append(args, "--remote", remote.Host, strconv.Itoa(remote.Port))
	if remote.Proto != "" {
		args = append(args, "--proto", remote.Proto)
	}
	args = append(args, "--verb", strconv.Itoa(run.Verbosity))

	if remote.Auth {
		if a.secrets == nil {
			return nil, cleanup, fmt.Errorf("%w for remote %s", ErrNoCredentials, name)
		}
		creds, err := a.secrets.Get(name)
		if err != nil {
			if errors.Is(err, secrets.ErrNotFound) {
				return nil, cleanup, fmt.Errorf("%w for remote %s", ErrNoCredentials, name)
			}
			return nil, cleanup, fmt.Errorf("load credentials: %w", err)
		}

		authPath, err := writeAuthFile(creds)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { os.Remove(authPath) }
		args = append(args, "--auth-user-pass", authPath)
	}

	return args, cleanup, nil
}

// writeAuthFile writes credentials in the two-line format the daemon
// expects from --auth-user-pass, readable only by the owner.
func writeAuthFile(creds secrets.Credentials) (string, error) {
	f, err := os.CreateTemp("", "ovpn-auth-*")
	if err != nil {
		return "", fmt.Errorf("create auth file: %w", err)
	}

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("restrict auth file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s\n%s\n", creds.Username, creds.Password); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write auth file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close auth file: %w", err)
	}

	return f.Name(), nil
}
