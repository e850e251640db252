// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/netdodge/netdodge/pkg/errutil"
)

func writeConfig(t *testing.T, doc map[string]any) string {
	t.Helper()
	raw, err := yaml.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"product_id":    "prod-1",
		"sandbox_id":    "sandbox-1",
		"deployment_id": "deploy-1",
		"client_id":     "client-1",
		"client_secret": "hush",
		"login_kind":    "device",
		"poll_interval": "250ms",
	})

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "prod-1", cfg.ProductID)
	assert.Equal(t, "device", cfg.LoginKind)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	// Untouched fields keep their defaults.
	assert.Equal(t, "netdodge", cfg.ProductName)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t not yaml ["), 0o600))

	_, err := Load(path, nil)
	errutil.AssertErrorCode(t, err, "CONFIG_PARSE")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, map[string]any{"product_id": "from-file"})
	t.Setenv("NETDODGE_PRODUCT_ID", "from-env")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ProductID)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("NETDODGE_LOGIN_KIND", "portal")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("login_kind", "", "")
	require.NoError(t, flags.Parse([]string{"--login_kind=storefront"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "storefront", cfg.LoginKind)
}

func TestValidate_MissingIdentityIsFatal(t *testing.T) {
	cfg := Defaults()
	cfg.ProductID = "prod-1"

	err := cfg.Validate(discard())
	errutil.AssertErrorCode(t, err, "CONFIG_MISSING")
	assert.Contains(t, err.Error(), "sandbox_id")
}

func TestValidate_MissingSecretOnlyWarns(t *testing.T) {
	cfg := Defaults()
	cfg.ProductID = "p"
	cfg.SandboxID = "s"
	cfg.DeploymentID = "d"
	cfg.ClientID = "c"

	assert.NoError(t, cfg.Validate(discard()))
}
