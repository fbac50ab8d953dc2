package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialdesk/internal/config"
)

func TestNew_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.New(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, config.DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, filepath.Join(dir, "state.db"), cfg.StatePath())
	assert.False(t, cfg.HasState())
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/dialdesk", config.DefaultConfigDir())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "api_url: https://desk.example.com/api/v1/\nactor_email: ops@example.com\nhistory_limit: 20\napi_timeout: 3s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://desk.example.com/api/v1", cfg.APIURL)
	assert.Equal(t, "ops@example.com", cfg.ActorEmail)
	assert.Equal(t, 20, cfg.HistoryLimit)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_url: https://file.example.com\n"), 0600))
	t.Setenv("DIALDESK_API_URL", "https://env.example.com")
	t.Setenv("DIALDESK_PROJECT_ID", "proj-7")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.APIURL)
	assert.Equal(t, "proj-7", cfg.ProjectID)
}

func TestLoad_DotenvInConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DIALDESK_ACTOR_PHONE=+15550001111\n"), 0600))
	t.Setenv("DIALDESK_ACTOR_PHONE", "")
	os.Unsetenv("DIALDESK_ACTOR_PHONE")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "+15550001111", cfg.ActorPhone)
	os.Unsetenv("DIALDESK_ACTOR_PHONE")
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_url: [unterminated\n"), 0600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}
