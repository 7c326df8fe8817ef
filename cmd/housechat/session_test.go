package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiclient "github.com/splax/housechat/pkg/api/client"
)

func TestConfigRoundTripIsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	t.Setenv("HOUSECHAT_CONFIG", path)
	t.Setenv("HOUSECHAT_API", "")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, apiclient.DefaultBaseURL, cfg.APIBaseURL)

	cfg.remember(apiclient.Account{
		User:   apiclient.User{ID: "u-1"},
		Tokens: apiclient.TokenPair{AccessToken: "a", RefreshToken: "r"},
	})
	require.NoError(t, saveConfig(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := requireSession()
	require.NoError(t, err)
	assert.Equal(t, "u-1", loaded.UserID)
	assert.Equal(t, "r", loaded.RefreshToken)
}

func TestEnvOverridesSavedAPI(t *testing.T) {
	t.Setenv("HOUSECHAT_CONFIG", filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, saveConfig(cliConfig{APIBaseURL: "http://saved:4000"}))

	t.Setenv("HOUSECHAT_API", "http://env:4000")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://env:4000", cfg.APIBaseURL)

	_, err = requireSession()
	assert.ErrorContains(t, err, "not logged in")
}
