package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/JobsSteve/openvpn-adapter/internal/config"
	"github.com/JobsSteve/openvpn-adapter/internal/prompt"
	"github.com/JobsSteve/openvpn-adapter/internal/secrets"
)

// secretsPasswordEnv names the environment variable that unlocks the
// file-backed secrets store without an interactive prompt.
const secretsPasswordEnv = "OVPN_SECRETS_PASSWORD"

// requireConfig returns the loaded config or an error if initialization failed.
func requireConfig(ctx context.Context) (*config.Config, error) {
	cfg := ConfigFromContext(ctx)
	if cfg == nil {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}

// requireLoader returns the config loader or an error if initialization failed.
func requireLoader(ctx context.Context) (*config.Loader, error) {
	loader := LoaderFromContext(ctx)
	if loader == nil {
		return nil, errors.New("config loader not initialized")
	}
	return loader, nil
}

// requireRemote resolves a named remote from config, listing the known
// names when the lookup fails.
func requireRemote(cfg *config.Config, name string) (config.Remote, error) {
	remote, err := cfg.Remote(name)
	if err != nil {
		if names := cfg.RemoteNames(); len(names) > 0 {
			return config.Remote{}, fmt.Errorf("%w (known remotes: %v)", err, names)
		}
		return config.Remote{}, fmt.Errorf("%w (no remotes configured, see `ovpn config`)", err)
	}
	return remote, nil
}

// openSecrets opens the credential store. The file backend's password
// comes from OVPN_SECRETS_PASSWORD when set, otherwise the user is
// prompted.
func openSecrets(cfg *config.Config, prompter prompt.Prompter) (secrets.Store, error) {
	password := os.Getenv(secretsPasswordEnv)
	if password == "" {
		var err error
		password, err = prompter.Secret("Secrets store password: ")
		if err != nil {
			return nil, fmt.Errorf("read store password: %w", err)
		}
	}

	store, err := secrets.Open(cfg.Storage.Secrets, password)
	if err != nil {
		return nil, fmt.Errorf("open secrets store: %w", err)
	}
	return store, nil
}
