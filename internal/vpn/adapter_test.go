package vpn

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JobsSteve/openvpn-adapter/internal/config"
	"github.com/JobsSteve/openvpn-adapter/internal/launcher"
	"github.com/JobsSteve/openvpn-adapter/internal/secrets"
)

// fakeBinary writes an executable shell script standing in for the
// OpenVPN binary and returns its path.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openvpn")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700))
	return path
}

// memStore is an in-memory secrets.Store for tests.
type memStore struct {
	creds map[string]secrets.Credentials
}

func (m *memStore) Set(remote string, creds secrets.Credentials) error {
	if m.creds == nil {
		m.creds = map[string]secrets.Credentials{}
	}
	m.creds[remote] = creds
	return nil
}

func (m *memStore) Get(remote string) (secrets.Credentials, error) {
	creds, ok := m.creds[remote]
	if !ok {
		return secrets.Credentials{}, secrets.ErrNotFound
	}
	return creds, nil
}

func (m *memStore) Delete(remote string) error {
	delete(m.creds, remote)
	return nil
}

func TestVersion(t *testing.T) {
	binary := fakeBinary(t, `echo "OpenVPN 2.6.12 x86_64-pc-linux-gnu [SSL (OpenSSL)]"
echo "library versions: OpenSSL 3.0"
exit 1`)

	a := New(binary, launcher.New(), nil)
	version, err := a.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OpenVPN 2.6.12 x86_64-pc-linux-gnu [SSL (OpenSSL)]", version)
}

func TestVersionNoOutput(t *testing.T) {
	binary := fakeBinary(t, "exit 1")

	a := New(binary, launcher.New(), nil)
	_, err := a.Version(context.Background())
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		// Consumes the config from stdin and stays quiet.
		binary := fakeBinary(t, "cat >/dev/null\nexit 0")

		a := New(binary, launcher.New(), nil)
		require.NoError(t, a.Verify(context.Background(), "client\nremote vpn.example.com 1194\n"))
	})

	t.Run("rejected", func(t *testing.T) {
		binary := fakeBinary(t, `cat >/dev/null
echo "Options error: Unrecognized option or missing parameter(s): bogus-option"
exit 1`)

		a := New(binary, launcher.New(), nil)
		err := a.Verify(context.Background(), "bogus-option\n")
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "bogus-option")
	})
}

func TestConnect(t *testing.T) {
	binary := fakeBinary(t, `echo "Tue Aug 25 12:00:01 2026 OpenVPN 2.6.12 starting"
echo "Tue Aug 25 12:00:05 2026 Initialization Sequence Completed"
exit 0`)

	a := New(binary, launcher.New(), nil)
	remote := config.Remote{Host: "vpn.example.com", Port: 1194, Proto: "udp"}

	var logw bytes.Buffer
	report, err := a.Connect(context.Background(), "office", remote, config.RunConfig{Verbosity: 3}, &logw)
	require.NoError(t, err)

	assert.True(t, report.Completed)
	assert.False(t, report.AuthFailed)
	assert.Equal(t, 0, report.ExitCode)
	assert.Contains(t, logw.String(), "Initialization Sequence Completed")
}

func TestConnectWithAuth(t *testing.T) {
	// Echo the credentials file back so the test can see its content,
	// then record its path for the removal check.
	binary := fakeBinary(t, `auth=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "--auth-user-pass" ]; then auth="$arg"; fi
  prev="$arg"
done
echo "auth-file $auth"
cat "$auth"
exit 0`)

	store := &memStore{}
	require.NoError(t, store.Set("office", secrets.Credentials{Username: "alice", Password: "s3cret"}))

	a := New(binary, launcher.New(), store)
	remote := config.Remote{Host: "vpn.example.com", Port: 1194, Auth: true}

	var logw bytes.Buffer
	report, err := a.Connect(context.Background(), "office", remote, config.RunConfig{}, &logw)
	require.NoError(t, err)
	assert.Equal(t, 0, report.ExitCode)

	// The daemon saw the two-line credentials file.
	assert.Contains(t, logw.String(), "alice\ns3cret\n")

	// The file is gone once Connect returns.
	var authPath string
	for _, ev := range report.Events {
		if after, ok := strings.CutPrefix(ev.Message, "auth-file "); ok {
			authPath = after
		}
	}
	require.NotEmpty(t, authPath)
	_, statErr := os.Stat(authPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConnectMissingCredentials(t *testing.T) {
	binary := fakeBinary(t, "exit 0")
	remote := config.Remote{Host: "vpn.example.com", Port: 1194, Auth: true}

	t.Run("no store", func(t *testing.T) {
		a := New(binary, launcher.New(), nil)
		_, err := a.Connect(context.Background(), "office", remote, config.RunConfig{}, nil)
		require.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("empty store", func(t *testing.T) {
		a := New(binary, launcher.New(), &memStore{})
		_, err := a.Connect(context.Background(), "office", remote, config.RunConfig{}, nil)
		require.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestConnectArgs(t *testing.T) {
	a := New("openvpn", launcher.New(), nil)

	t.Run("with config file", func(t *testing.T) {
		args, cleanup, err := a.connectArgs("office", config.Remote{
			Host:   "vpn.example.com",
			Port:   1194,
			Proto:  "tcp",
			Config: "/etc/openvpn/office.ovpn",
		}, config.RunConfig{Verbosity: 4})
		require.NoError(t, err)
		defer cleanup()

		assert.Equal(t, []string{
			"--config", "/etc/openvpn/office.ovpn",
			"--remote", "vpn.example.com", "1194",
			"--proto", "tcp",
			"--verb", "4",
		}, args)
	})

	t.Run("without config file", func(t *testing.T) {
		args, cleanup, err := a.connectArgs("office", config.Remote{
			Host: "vpn.example.com",
			Port: 1194,
		}, config.RunConfig{Verbosity: 3})
		require.NoError(t, err)
		defer cleanup()

		assert.Equal(t, []string{
			"--client",
			"--remote", "vpn.example.com", "1194",
			"--verb", "3",
		}, args)
	})
}
