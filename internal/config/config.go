// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

// Package config loads and validates the process configuration from a
// YAML file, NETDODGE_-prefixed environment variables, and command-line
// flags, in that order of increasing precedence.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full process configuration.
type Config struct {
	// Backend platform identity. The first four are mandatory.
	ProductID    string `koanf:"product_id"`
	SandboxID    string `koanf:"sandbox_id"`
	DeploymentID string `koanf:"deployment_id"`
	ClientID     string `koanf:"client_id"`
	// ClientSecret is required in practice for developer-tool logins
	// but only warned about when missing.
	ClientSecret string `koanf:"client_secret"`

	ProductName    string `koanf:"product_name"`
	ProductVersion string `koanf:"product_version"`
	SteamAppID     string `koanf:"steam_app_id"`

	// Developer auth tool coordinates, used by the developer login kind.
	DevAuthURL        string `koanf:"dev_auth_url"`
	DeveloperUsername string `koanf:"developer_username"`

	// LoginKind selects the credential kind: developer, portal,
	// storefront, or device.
	LoginKind string `koanf:"login_kind"`

	// DisplayName and DeviceModel decorate backend logins.
	DisplayName string `koanf:"display_name"`
	DeviceModel string `koanf:"device_model"`

	PollInterval time.Duration `koanf:"poll_interval"`
	MetricsAddr  string        `koanf:"metrics_addr"`

	LogFormat string `koanf:"log_format"`
	LogLevel  string `koanf:"log_level"`
}

// Defaults returns the configuration used before any source is applied.
func Defaults() Config {
	return Config{
		ProductName:    "netdodge",
		ProductVersion: "dev",
		LoginKind:      "developer",
		DisplayName:    "Player",
		DeviceModel:    "unknown",
		PollInterval:   100 * time.Millisecond,
		MetricsAddr:    "127.0.0.1:9109",
		LogFormat:      "text",
		LogLevel:       "info",
	}
}

// Load layers the YAML file at path (optional, skipped when absent),
// NETDODGE_-prefixed environment variables, and flags over Defaults.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, oops.Code("CONFIG_PARSE").
					With("path", path).
					Wrapf(err, "could not parse config file")
			}
		} else if !os.IsNotExist(err) {
			return Config{}, oops.Code("CONFIG_READ").
				With("path", path).
				Wrapf(err, "could not read config file")
		}
	}

	// NETDODGE_PRODUCT_ID maps to product_id.
	if err := k.Load(env.Provider("NETDODGE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "NETDODGE_"))
	}), nil); err != nil {
		return Config{}, oops.Code("CONFIG_ENV").Wrapf(err, "could not read environment")
	}

	if flags != nil {
		// --login-kind maps to login_kind.
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS").Wrapf(err, "could not apply flags")
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL").Wrapf(err, "could not decode configuration")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = Defaults().PollInterval
	}
	return cfg, nil
}

// Validate checks the platform identity block. Missing mandatory ids
// are fatal; a missing client secret only logs a warning.
func (c Config) Validate(logger *slog.Logger) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"product_id", c.ProductID},
		{"sandbox_id", c.SandboxID},
		{"deployment_id", c.DeploymentID},
		{"client_id", c.ClientID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return oops.Code("CONFIG_MISSING").
			With("fields", strings.Join(missing, ", ")).
			Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.ClientSecret == "" {
		logger.Warn("client_secret not configured, developer logins may be rejected")
	}
	return nil
}
