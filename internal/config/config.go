// Package config loads the server's INI configuration file (spec.md
// §6) into a typed Config via viper's ini codec.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig is the [server] section.
type ServerConfig struct {
	HTTPPort  int  `mapstructure:"http_port"`
	HTTPSPort int  `mapstructure:"https_port"`
	Threads   int  `mapstructure:"threads"`
	EnableSSL bool `mapstructure:"enable_ssl"`
}

// SSLConfig is the [ssl] section.
type SSLConfig struct {
	CertPath string `mapstructure:"cert_path"`
	KeyPath  string `mapstructure:"key_path"`
}

// LoggingConfig is the [logging] section.
type LoggingConfig struct {
	Basename         string `mapstructure:"basename"`
	RollSizeMB       int    `mapstructure:"roll_size_mb"`
	FlushIntervalSec int    `mapstructure:"flush_interval_sec"`
	LogLevel         string `mapstructure:"log_level"`
}

// Route is one parsed entry of the [routes] section: "METHOD, /path, handler_name".
type Route struct {
	Method      string
	Pattern     string
	HandlerName string
}

// Config is the fully parsed server.ini.
type Config struct {
	Server  ServerConfig
	SSL     SSLConfig
	Logging LoggingConfig
	Routes  []Route
}

// DefaultPath is the config path used when no CLI argument is given.
const DefaultPath = "server.ini"

// Load reads and parses the INI file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	v.SetDefault("server.threads", 0)
	v.SetDefault("server.enable_ssl", false)
	v.SetDefault("logging.log_level", "INFO")
	v.SetDefault("logging.roll_size_mb", 64)
	v.SetDefault("logging.flush_interval_sec", 1)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.UnmarshalKey("server", &cfg.Server); err != nil {
		return nil, fmt.Errorf("config: decode [server]: %w", err)
	}
	if err := v.UnmarshalKey("ssl", &cfg.SSL); err != nil {
		return nil, fmt.Errorf("config: decode [ssl]: %w", err)
	}
	if err := v.UnmarshalKey("logging", &cfg.Logging); err != nil {
		return nil, fmt.Errorf("config: decode [logging]: %w", err)
	}

	raw := v.GetStringMapString("routes")
	for _, val := range raw {
		route, err := parseRoute(val)
		if err != nil {
			return nil, fmt.Errorf("config: decode [routes]: %w", err)
		}
		cfg.Routes = append(cfg.Routes, route)
	}

	return cfg, nil
}

func parseRoute(value string) (Route, error) {
	parts := strings.SplitN(value, ",", 3)
	if len(parts) != 3 {
		return Route{}, fmt.Errorf("route %q: want \"METHOD, /path, handler_name\"", value)
	}
	return Route{
		Method:      strings.TrimSpace(parts[0]),
		Pattern:     strings.TrimSpace(parts[1]),
		HandlerName: strings.TrimSpace(parts[2]),
	}, nil
}
