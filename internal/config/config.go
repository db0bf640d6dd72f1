package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Network  NetworkConfig  `toml:"network"`
	Supabase SupabaseConfig `toml:"supabase"`
	World    WorldConfig    `toml:"world"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	Port              int           `toml:"port"`
	MaxPlayers        int           `toml:"max_players"`
	GameTickHz        int           `toml:"game_tick_hz"`
	NetworkTickHz     int           `toml:"network_tick_hz"`
	ConnectionTimeout time.Duration `toml:"connection_timeout"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
}

type SupabaseConfig struct {
	URL     string `toml:"url"`
	AnonKey string `toml:"anon_key"`
}

type WorldConfig struct {
	NPCCount     int           `toml:"npc_count"`
	SeedFile     string        `toml:"seed_file"`
	SaveInterval time.Duration `toml:"save_interval"`
	RandomSeed   int64         `toml:"random_seed"` // 0 = time-based
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads a TOML config, layering it over defaults. A missing file is
// not an error — flags and defaults carry a bare deployment.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Server.StartTime = time.Now().Unix()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "Cybrelink",
		},
		Network: NetworkConfig{
			Port:              31337,
			MaxPlayers:        8,
			GameTickHz:        60,
			NetworkTickHz:     20,
			ConnectionTimeout: 15 * time.Second,
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
		},
		World: WorldConfig{
			NPCCount:     10,
			SaveInterval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
