package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TALLY_DB_PATH", "TALLY_WIKI", "TALLY_LADDER_FILE", "TALLY_MAX_ITEMS", "TALLY_DEBUG"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/tally.db", cfg.DBPath)
	assert.Equal(t, "wiki", cfg.Wiki)
	assert.Empty(t, cfg.LadderFile)
	assert.Equal(t, 5000, cfg.MaxItems)
	assert.False(t, cfg.Debug)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TALLY_DB_PATH", "/tmp/test.db")
	t.Setenv("TALLY_WIKI", "enwiki")
	t.Setenv("TALLY_LADDER_FILE", "/etc/tally/ladder.json")
	t.Setenv("TALLY_MAX_ITEMS", "250")
	t.Setenv("TALLY_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "enwiki", cfg.Wiki)
	assert.Equal(t, "/etc/tally/ladder.json", cfg.LadderFile)
	assert.Equal(t, 250, cfg.MaxItems)
	assert.True(t, cfg.Debug)
}

func TestLoadRejectsBadMaxItems(t *testing.T) {
	clearEnv(t)

	t.Setenv("TALLY_MAX_ITEMS", "not a number")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TALLY_MAX_ITEMS", "0")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TALLY_MAX_ITEMS", "-5")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadDebug(t *testing.T) {
	clearEnv(t)
	t.Setenv("TALLY_DEBUG", "maybe")
	_, err := Load()
	assert.Error(t, err)
}
