package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied by Load for fields absent from the file.
const (
	DefaultListenAddr      = "127.0.0.1:8964"
	DefaultToastDismissMs  = 4000
	DefaultTokenTTLSeconds = 300
)

// Config represents the global ~/.pmschat/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`

	// APIBaseURL is the PMS backend REST root, e.g. https://api.example.com.
	APIBaseURL string `toml:"api_base_url"`
	// APIToken is the bearer token for the PMS backend session.
	APIToken string `toml:"api_token"`
	// WSURL is the live transport endpoint. Empty means derive from
	// APIBaseURL by swapping the scheme to ws(s) and appending /ws/chat.
	WSURL string `toml:"ws_url"`
	// ListenAddr is where the local HTTP API binds.
	ListenAddr string `toml:"listen_addr"`

	ToastDismissMs  int `toml:"toast_dismiss_ms"`
	TokenTTLSeconds int `toml:"token_ttl_seconds"`
}

// ToastDismiss returns the toast auto-dismiss duration.
func (c *Config) ToastDismiss() time.Duration {
	return time.Duration(c.ToastDismissMs) * time.Millisecond
}

// TokenTTL returns the fallback lifetime for opaque chat tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.ToastDismissMs <= 0 {
		c.ToastDismissMs = DefaultToastDismissMs
	}
	if c.TokenTTLSeconds <= 0 {
		c.TokenTTLSeconds = DefaultTokenTTLSeconds
	}
}

// Load reads config from the given path. Returns nil and an error if the
// file is missing or not valid TOML.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
