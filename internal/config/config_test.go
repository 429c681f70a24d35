package config

import (
	"testing"
	"time"

	"github.com/iotku/subdonic/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8080/api/v1/subsonic", cfg.CatalogURL)
	assert.Equal(t, "!", cfg.CommandPrefix)
	assert.Equal(t, 10*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 5, cfg.OwnerLookupAttempts)
	assert.Equal(t, 10*time.Second, cfg.OwnerLookupTimeout)
	assert.Equal(t, catalog.DefaultWeights, cfg.RankWeights())
	assert.True(t, cfg.FilterPlaceholders)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("RANK_ALBUM", "3")
	t.Setenv("RANK_LIVE", "0")
	t.Setenv("COMMAND_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, catalog.Weights{Title: 10, Album: 3, Live: 0, Artist: 5}, cfg.RankWeights())
	assert.Equal(t, 2, cfg.CommandWorkers)
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("COMMAND_WORKERS", "many")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_TokenRequiredOutsideTestMode(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)

	cfg.TestMode = true
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		DiscordToken:        "t",
		CatalogURL:          "not a url",
		CommandPrefix:       "a b",
		CommandWorkers:      0,
		IdleTimeout:         time.Second,
		DefaultVolume:       200,
		OwnerLookupAttempts: 1,
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"CATALOG_URL", "COMMAND_PREFIX", "COMMAND_WORKERS", "DEFAULT_VOLUME"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestAPIConfig(t *testing.T) {
	t.Setenv("SUBSONIC_URL", "https://music.example.com")
	t.Setenv("SUBSONIC_USER", "me")

	cfg, err := LoadAPI()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "subdonic", cfg.SubsonicClient)

	cfg.SubsonicURL = ""
	assert.ErrorContains(t, cfg.Validate(), "SUBSONIC_URL")
}
