// Package config provides configuration management for the OpenVPN adapter.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration locations.
const (
	DefaultConfigDir  = ".config/openvpn-adapter"
	DefaultConfigFile = "config.yaml"
	DefaultDataDir    = ".local/share/openvpn-adapter"
)

// defaultBinary is the OpenVPN executable resolved via PATH.
const defaultBinary = "openvpn"

// Sentinel errors for configuration operations.
var (
	ErrInvalidKey   = errors.New("invalid configuration key")
	ErrInvalidProto = errors.New("invalid remote protocol")
	ErrNoRemote     = errors.New("remote not defined in configuration")
	ErrNoEditor     = errors.New("$EDITOR environment variable not set")
)

// validProtos contains the allowed remote protocols (unexported).
var validProtos = map[string]bool{
	"udp": true,
	"tcp": true,
}

// validKeys is built once from Config struct reflection.
var validKeys = buildValidKeys()

// validate is the shared validator instance.
var validate = validator.New()

// Config represents the full adapter configuration.
type Config struct {
	Binary  string            `mapstructure:"binary" validate:"required"`
	Storage StorageConfig     `mapstructure:"storage" validate:"required"`
	Run     RunConfig         `mapstructure:"run"`
	Remotes map[string]Remote `mapstructure:"remotes" validate:"dive"`
}

// StorageConfig holds storage location configuration.
type StorageConfig struct {
	Logs    string `mapstructure:"logs" validate:"required"`
	Secrets string `mapstructure:"secrets" validate:"required"`
}

// RunConfig holds defaults for child process transactions.
type RunConfig struct {
	CombineOutput bool `mapstructure:"combine_output"`
	Verbosity     int  `mapstructure:"verbosity" validate:"gte=0,lte=11"`
}

// Remote describes one OpenVPN endpoint.
type Remote struct {
	Host   string `mapstructure:"host" validate:"required"`
	Port   int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	Proto  string `mapstructure:"proto" validate:"omitempty,oneof=udp tcp"`
	Config string `mapstructure:"config"`
	Auth   bool   `mapstructure:"auth"`
}

// Validate checks the configuration for errors using struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Remote looks up a named remote.
func (c *Config) Remote(name string) (Remote, error) {
	r, ok := c.Remotes[name]
	if !ok {
		return Remote{}, fmt.Errorf("%w: %s", ErrNoRemote, name)
	}
	return r, nil
}

// RemoteNames returns the configured remote names.
func (c *Config) RemoteNames() []string {
	names := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		names = append(names, name)
	}
	return names
}

// IsValidProto returns true if the protocol name is valid.
func IsValidProto(name string) bool {
	return validProtos[name]
}

// ValidProtoNames returns the list of valid remote protocols.
func ValidProtoNames() []string {
	return []string{"udp", "tcp"}
}

// Loader provides configuration loading and saving.
type Loader struct {
	v       *viper.Viper
	path    string
	homeDir string
}

// NewLoader creates a new configuration loader.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	configPath := filepath.Join(home, DefaultConfigDir, DefaultConfigFile)

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Environment variable binding
	v.SetEnvPrefix("OVPN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific env vars to config keys.
	// We intentionally ignore errors here as BindEnv only fails if called with zero arguments.
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("binary", "OVPN_BINARY")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("storage.logs", "OVPN_LOGS_DIR")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("storage.secrets", "OVPN_SECRETS_DIR")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("run.combine_output", "OVPN_COMBINE_OUTPUT")

	l := &Loader{
		v:       v,
		path:    configPath,
		homeDir: home,
	}

	// Set defaults before any config reading
	l.setDefaults()

	return l, nil
}

// setDefaults sets all default configuration values using Viper.
func (l *Loader) setDefaults() {
	l.v.SetDefault("binary", defaultBinary)
	l.v.SetDefault("storage.logs", "~/"+DefaultDataDir+"/logs")
	l.v.SetDefault("storage.secrets", "~/"+DefaultDataDir+"/secrets")
	l.v.SetDefault("run.combine_output", false)
	l.v.SetDefault("run.verbosity", 3)
	l.v.SetDefault("remotes", map[string]any{})
}

// Load reads the configuration file, creating defaults if it doesn't exist.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.createDefault(); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Expand paths
	cfg.Storage.Logs = l.expandPath(cfg.Storage.Logs)
	cfg.Storage.Secrets = l.expandPath(cfg.Storage.Secrets)

	return &cfg, nil
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Get returns a configuration value by dot-notation key.
func (l *Loader) Get(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return l.v.Get(key), nil
}

// Set sets a configuration value by dot-notation key.
func (l *Loader) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	// Validate protocol names when setting a remote proto
	if strings.HasPrefix(key, "remotes.") && strings.HasSuffix(key, ".proto") && value != "" {
		if !validProtos[value] {
			return fmt.Errorf("%w: %s (valid: udp, tcp)", ErrInvalidProto, value)
		}
	}

	l.v.Set(key, value)
	return l.v.WriteConfig()
}

// createDefault writes the default configuration file using Viper.
func (l *Loader) createDefault() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return l.v.SafeWriteConfigAs(l.path)
}

// expandPath replaces ~ with the home directory.
func (l *Loader) expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	if path == "~" {
		return l.homeDir
	}
	return path
}

// ValidateKey checks if a key is a valid configuration key.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	// Check for exact match in derived valid keys
	if validKeys[key] {
		return nil
	}

	// Check for remotes.<name> patterns (map type needs special handling)
	if strings.HasPrefix(key, "remotes.") {
		parts := strings.SplitN(key, ".", 3)
		if len(parts) == 2 {
			// remotes.<name>
			return nil
		}
		if len(parts) == 3 {
			switch parts[2] {
			case "host", "port", "proto", "config", "auth":
				return nil
			}
			return fmt.Errorf("%w: %s (valid remote fields: host, port, proto, config, auth)", ErrInvalidKey, key)
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

// buildValidKeys builds the set of valid keys from Config struct using reflection.
func buildValidKeys() map[string]bool {
	keys := make(map[string]bool)
	addKeysFromType(reflect.TypeOf(Config{}), "", keys)
	return keys
}

// addKeysFromType recursively adds keys from a struct type.
func addKeysFromType(t reflect.Type, prefix string, keys map[string]bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		keys[key] = true

		// Recurse into nested structs (but not maps)
		if field.Type.Kind() == reflect.Struct {
			addKeysFromType(field.Type, key, keys)
		}
	}
}
