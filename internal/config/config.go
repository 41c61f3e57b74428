package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig holds settings for the relay server runtime.
type ServerConfig struct {
	ListenAddr    string `env:"ECHOWIRE_LISTEN_ADDR" envDefault:":9000"`
	Database      DatabaseConfig
	UploadDir     string        `env:"ECHOWIRE_UPLOAD_DIR" envDefault:"public/uploads"`
	HistoryLimit  int           `env:"ECHOWIRE_HISTORY_LIMIT" envDefault:"100"`
	WriteTimeout  time.Duration `env:"ECHOWIRE_WRITE_TIMEOUT" envDefault:"15s"`
	MaxFrameBytes int64         `env:"ECHOWIRE_MAX_FRAME_BYTES" envDefault:"10485760"`
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerURL     string `env:"ECHOWIRE_SERVER_URL" envDefault:"ws://localhost:9000/socket"`
	CommandPrefix string `env:"ECHOWIRE_COMMAND_PREFIX" envDefault:"/"`
}

// DatabaseConfig captures message archive configuration.
type DatabaseConfig struct {
	Path string `env:"ECHOWIRE_DB_PATH" envDefault:"echowire.db"`
}

// LoadServerConfig builds the server configuration from environment variables.
func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse server config: %w", err)
	}
	return cfg, nil
}

// LoadClientConfig builds the client configuration from environment variables.
func LoadClientConfig() (ClientConfig, error) {
	cfg := ClientConfig{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse client config: %w", err)
	}
	return cfg, nil
}
