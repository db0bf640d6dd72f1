package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 31337, cfg.Network.Port)
	assert.Equal(t, 8, cfg.Network.MaxPlayers)
	assert.Equal(t, 60, cfg.Network.GameTickHz)
	assert.Equal(t, 20, cfg.Network.NetworkTickHz)
	assert.Equal(t, 15*time.Second, cfg.Network.ConnectionTimeout)
	assert.Equal(t, 10, cfg.World.NPCCount)
	assert.Equal(t, 30*time.Second, cfg.World.SaveInterval)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadOverridesLayerOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[network]
port = 4000
max_players = 8

[world]
npc_count = 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Network.Port)
	assert.Equal(t, 8, cfg.Network.MaxPlayers)
	assert.Equal(t, 25, cfg.World.NPCCount)
	// Untouched keys keep their defaults.
	assert.Equal(t, 60, cfg.Network.GameTickHz)
	assert.Equal(t, 128, cfg.Network.InQueueSize)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[network\nport="), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
