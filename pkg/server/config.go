package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
	"github.com/uecdago/uecda-server/pkg/protocol"
)

// Config is the root YAML configuration with server, game, rules, and
// logging sections. Keys missing from the file keep their defaults.
type Config struct {
	Server  NetConfig       `yaml:"server"`
	Game    GameConfig      `yaml:"game"`
	Rules   daihinmin.Rules `yaml:"rules"`
	Logging LoggingConfig   `yaml:"logging"`
}

// NetConfig is the listen address and protocol version.
type NetConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ProtocolVersion int    `yaml:"protocol_version"`
}

// GameConfig sets the session length and the per-turn response window.
type GameConfig struct {
	NumGames    int `yaml:"num_games"`
	NumPlayers  int `yaml:"num_players"`
	TurnTimeout int `yaml:"turn_timeout"`
}

// LoggingConfig controls the debug level and whether dealt hands are logged.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	ShowHands bool   `yaml:"show_hands"`
}

// DefaultConfig returns the stock configuration: listen on every interface
// at the standard port, 100 games, all required rules on, eleven-back off.
func DefaultConfig() Config {
	return Config{
		Server: NetConfig{
			Host:            "0.0.0.0",
			Port:            protocol.DefaultPort,
			ProtocolVersion: protocol.Version,
		},
		Game: GameConfig{
			NumGames:    100,
			NumPlayers:  daihinmin.NumSeats,
			TurnTimeout: 60,
		},
		Rules: daihinmin.DefaultRules(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML config over the defaults. An empty path or a
// missing file yields the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the coordinator cannot serve. Port 0 is
// allowed and binds an ephemeral port.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.ProtocolVersion != protocol.Version {
		return fmt.Errorf("unsupported protocol version %d, this server speaks %d",
			c.Server.ProtocolVersion, protocol.Version)
	}
	if c.Game.NumPlayers != daihinmin.NumSeats {
		return fmt.Errorf("protocol %d is fixed at %d players, got %d",
			protocol.Version, daihinmin.NumSeats, c.Game.NumPlayers)
	}
	if c.Game.NumGames < 1 {
		return fmt.Errorf("num_games must be positive, got %d", c.Game.NumGames)
	}
	if c.Game.TurnTimeout < 1 {
		return fmt.Errorf("turn_timeout must be positive, got %d", c.Game.TurnTimeout)
	}
	return nil
}

// Addr returns the host:port string to listen on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// TurnTimeoutDuration returns the per-turn response window.
func (g GameConfig) TurnTimeoutDuration() time.Duration {
	return time.Duration(g.TurnTimeout) * time.Second
}
