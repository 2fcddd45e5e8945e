// Package config loads the ledger configuration from a TOML file,
// falling back to defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full configuration tree.
type Config struct {
	// Currency is the ISO 4217 code used when formatting amounts.
	Currency string `toml:"currency"`

	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Auth    AuthConfig    `toml:"auth"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// StorageConfig controls the persistence envelope.
type StorageConfig struct {
	// Path is the SQLite database file.
	Path string `toml:"path"`

	// Name and Version form the envelope key (name@v<version>).
	Name    string `toml:"name"`
	Version int    `toml:"version"`
}

// AuthConfig controls the optional write-API passphrase. With an empty
// PassphraseHash the API runs open (local single-user default).
type AuthConfig struct {
	PassphraseHash string `toml:"passphrase_hash"`
	TokenSecret    string `toml:"token_secret"`
	TokenTTL       string `toml:"token_ttl"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TokenDuration parses TokenTTL, defaulting to 24h on bad input.
func (a AuthConfig) TokenDuration() time.Duration {
	d, err := time.ParseDuration(a.TokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Enabled reports whether the write API requires authentication.
func (a AuthConfig) Enabled() bool {
	return a.PassphraseHash != ""
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Currency: "USD",
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    8090,
			Metrics: true,
		},
		Storage: StorageConfig{
			Path:    filepath.Join(home, ".splitledger", "ledger.db"),
			Name:    "splitledger",
			Version: 3,
		},
		Auth: AuthConfig{
			TokenTTL: "24h",
		},
	}
}

// DefaultPath is the conventional config location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".splitledger", "config.toml")
}

// Load reads the config at path, layered over defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
